// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared setup for commands: config, logging, storage, markup.

package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/transport"
)

// Env is everything a command needs besides its own arguments.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Store      storage.Store

	closers []func() error
}

// Setup loads configuration, applies the global flags on top of it and opens
// the logger and snapshot store.
func Setup(args Args) (*Env, error) {
	if args.NoColor {
		ForceColorsEnabled(false)
	}

	var (
		cfg  *config.Config
		path = args.ConfigPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		path, _ = config.ConfigPathTOML()
	}
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cfg, args); err != nil {
		return nil, err
	}

	env := &Env{Config: cfg, ConfigPath: path}

	logger, closeLog, err := logging.New(logging.FromConfig(cfg.Log, args.Verbose))
	if err != nil {
		return nil, err
	}
	env.Logger = logger
	env.closers = append(env.closers, closeLog)

	storePath, err := cfg.StoragePath()
	if err != nil {
		env.Close()
		return nil, err
	}
	st, err := storage.Open(cfg.Storage.Backend, storePath)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	env.Store = st
	env.closers = append(env.closers, st.Close)

	logger.Debug("environment ready",
		"config", path,
		"server", cfg.Server.URL,
		"storage", cfg.Storage.Backend,
		"storage_path", storePath,
		"markup", cfg.UI.Markup)
	return env, nil
}

// applyFlags overrides config values with the global flags and revalidates.
func applyFlags(cfg *config.Config, args Args) error {
	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Markup != "" {
		cfg.UI.Markup = args.Markup
	}
	if args.Storage != "" {
		cfg.Storage.Backend = args.Storage
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// Close releases everything Setup opened, in reverse order.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewMarkup returns the markup selected by ui.markup. width is the wrap
// width for terminal markup when ui.word_wrap is 0. Terminal markup falls
// back to plain text when colors are disabled.
func NewMarkup(ui config.UIConfig, width int) (render.Markup, error) {
	switch ui.Markup {
	case "plain":
		return render.PlainMarkup{}, nil
	case "html":
		style := "monokai"
		if ui.Theme == "light" {
			style = "github"
		}
		return render.NewHTMLMarkup(style), nil
	default:
		if !ColorsEnabled() {
			return render.PlainMarkup{}, nil
		}
		wrap := ui.WordWrap
		if wrap <= 0 {
			wrap = width
		}
		return render.NewTermMarkup(ui.Theme, wrap)
	}
}

// NewClient returns a transport client for the configured server.
func (e *Env) NewClient(chatID string) *transport.Client {
	return transport.New(transport.Options{
		URL:              e.Config.Server.URL,
		ChatID:           chatID,
		PingInterval:     e.Config.Server.PingInterval(),
		HandshakeTimeout: e.Config.Server.HandshakeTimeout(),
		ReconnectMax:     e.Config.Server.ReconnectMax,
		Logger:           e.Logger,
	})
}

// OpenSession creates a session for chatID. When chatID names a saved chat
// the snapshot is restored; an empty chatID starts a new chat.
func (e *Env) OpenSession(chatID string, tr session.Transport, markup render.Markup) (*session.Session, error) {
	if chatID == "" {
		chatID = storage.NewChatID()
	}

	sess := session.New(chatID, session.Options{
		Logger:    e.Logger,
		Transport: tr,
		Markup:    markup,
		Functions: e.Config.Functions,
	})

	chat, err := e.Store.Load(chatID)
	switch {
	case errors.Is(err, storage.ErrChatNotFound):
		e.Logger.Debug("starting new chat", "chat", chatID)
		return sess, nil
	case err != nil:
		return nil, fmt.Errorf("load chat %s: %w", chatID, err)
	}

	if err := sess.Restore(chat); err != nil {
		return nil, fmt.Errorf("restore chat %s: %w", chatID, err)
	}
	e.Logger.Info("chat restored", "chat", chatID, "messages", len(chat.Order))
	return sess, nil
}

// ResolveChatID returns the chat ID to use: the --chat flag, or a new one.
func ResolveChatID(args Args) string {
	if args.ChatID != "" {
		return args.ChatID
	}
	return storage.NewChatID()
}
