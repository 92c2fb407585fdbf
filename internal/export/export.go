// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a chat snapshot into a document.
type Exporter interface {
	Export(chat *storage.Chat) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	MimeType() string
}

// ErrEmptyChat is returned for a chat without messages.
var ErrEmptyChat = errors.New("chat has no messages")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Default: current directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds the chat ID and timestamps.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark")
	Theme string

	// Now stamps the export. Tests set it for stable output.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// ForFormat returns the exporter for "md"/"markdown", "html"/"htm" or
// "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (supported: md, html, json)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports chat into opts.OutputDir and returns the file path.
func ExportToFile(chat *storage.Chat, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(chat.Summary),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("open %s: %w", outputPath, err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// PROJECTION
// =============================================================================

// turns builds the projection of a finished chat with the given markup.
func turns(chat *storage.Chat, m render.Markup) ([]render.Turn, error) {
	if chat == nil {
		return nil, errors.New("chat is nil")
	}
	msgs, _ := chat.Messages()
	if len(msgs) == 0 {
		return nil, ErrEmptyChat
	}
	b := render.NewBuilder(m, chat.Functions.Normalize())
	return b.Build(msgs, false), nil
}

func title(chat *storage.Chat) string {
	if chat.Summary != "" {
		return chat.Summary
	}
	return "Chat " + chat.ID
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var sb strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			sb.WriteRune('_')
		case r < 32 || r == 127:
			sb.WriteRune('-')
		default:
			sb.WriteRune(r)
		}
	}

	if sb.Len() == 0 {
		return "chat"
	}
	return sb.String()
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
