// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger used across streamchat.
//
// Console output goes through tint (colored, compact); file output and the
// "json" format use slog's JSON handler. Loggers are passed to the packages
// that need them; only main installs one as the slog default.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/jeranaias/streamchat/internal/config"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options selects where and how logs are written.
type Options struct {
	// Level is debug, info, warn or error
	Level string
	// Format is "text" or "json"
	Format string
	// File appends logs to a file instead of Writer
	File string
	// Writer is the console destination (default os.Stderr)
	Writer io.Writer
}

// FromConfig converts the [log] config section. verbose forces debug level.
func FromConfig(c config.LogConfig, verbose bool) Options {
	opts := Options{Level: c.Level, Format: c.Format, File: c.File}
	if verbose {
		opts.Level = "debug"
	}
	return opts
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New returns a logger and a function that releases its resources.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := ParseLevel(opts.Level)
	closer := func() error { return nil }

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = func() error {
			f.Sync()
			return f.Close()
		}
		w = f
		if opts.Format == "" {
			opts.Format = "json"
		}
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	}
	return slog.New(handler), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
