// streamchat - A terminal client for streaming chat servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/cli"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/ui/chat"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdHelp:
		if args.Subcommand != "" {
			cli.DisplayError(os.Stderr, cli.NewValidationError("command", args.Subcommand, "unknown command"))
			cli.PrintUsage(os.Stderr)
			return cli.ExitUsageError
		}
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	env, err := cli.Setup(args)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	defer env.Close()

	switch cmd {
	case cli.CmdTUI:
		if cli.IsTTY() && cli.IsStdoutTTY() {
			err = runTUI(ctx, env, args)
		} else {
			env.Logger.Debug("no terminal, using line mode")
			err = cli.HandleChatCommand(ctx, env, args)
		}
	case cli.CmdChat:
		err = cli.HandleChatCommand(ctx, env, args)
	case cli.CmdReplay:
		err = cli.HandleReplay(env, args)
	case cli.CmdChats:
		err = cli.HandleChats(env, args)
	case cli.CmdExport:
		err = cli.HandleExport(env, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(env, args)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

// =============================================================================
// FULL-SCREEN CHAT
// =============================================================================

// runTUI runs the full-screen chat. The transport runs on its own goroutine
// and feeds the program; the session is only touched by the program until it
// exits.
func runTUI(ctx context.Context, env *cli.Env, args cli.Args) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chatID := cli.ResolveChatID(args)
	client := env.NewClient(chatID)

	newMarkup := func(width int) (render.Markup, error) {
		return cli.NewMarkup(env.Config.UI, width)
	}
	markup, err := newMarkup(cli.GetTerminalWidth() - 4)
	if err != nil {
		return err
	}
	sess, err := env.OpenSession(chatID, client, markup)
	if err != nil {
		return err
	}
	saver := session.NewAutosaver(sess, env.Store, env.Config.Storage.AutosaveInterval(), env.Logger)

	m := chat.New(chat.Options{
		Session:   sess,
		Autosaver: saver,
		Theme:     styles.NewTheme(env.Config.UI.Theme),
		Logger:    env.Logger,
		ServerURL: env.Config.Server.URL,
		RenderFPS: env.Config.UI.RenderFPS,
		NewMarkup: newMarkup,
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
		tea.WithContext(ctx),
	)

	// Function display settings follow edits to the config file.
	watcher, err := config.NewWatcher(env.ConfigPath, 200*time.Millisecond, func(cfg *config.Config, err error) {
		p.Send(chat.ConfigReloadMsg{Config: cfg, Err: err})
	}, env.Logger)
	if err == nil {
		if err := watcher.Watch(); err != nil {
			env.Logger.Debug("config watch unavailable", "path", env.ConfigPath, "error", err)
		}
		defer watcher.Close()
	}

	go chat.Pump(p, client.Events())
	go func() {
		p.Send(chat.TransportDoneMsg{Err: client.Run(ctx)})
	}()

	final, runErr := p.Run()
	cancel()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run interface: %w", runErr)
	}

	if sess.Generating() {
		if err := sess.StopGenerating(); err != nil {
			env.Logger.Debug("stop on exit failed", "error", err)
		}
	}
	if err := saver.Flush(); err != nil {
		env.Logger.Warn("final save failed", "chat", sess.ID(), "error", err)
	}
	if !args.Quiet {
		fmt.Fprintln(os.Stderr, cli.DimStyle.Render("Chat saved as "+sess.ID()))
	}

	if fm, ok := final.(chat.Model); ok && fm.TransportErr() != nil {
		return cli.NewCommandError("connect", "", fm.TransportErr())
	}
	return nil
}
