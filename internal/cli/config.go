// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show the configuration file path
//   init                Write a default configuration file
//   set <key> <value>   Set a configuration value
//
// Examples:
//   streamchat config
//   streamchat config show --json
//   streamchat config set server.url ws://chat.local:5000/ws
//   streamchat config set storage.backend sqlite
//   streamchat config set ui.render_fps 60
//   streamchat config init --force
//
// Flags:
//   --json              Output in JSON format
//   --force             Overwrite an existing file (init)

package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jeranaias/streamchat/internal/config"
)

// HandleConfig runs the config command.
func HandleConfig(env *Env, args Args) error {
	return runConfig(os.Stdout, env, args)
}

func runConfig(w io.Writer, env *Env, args Args) error {
	switch args.Subcommand {
	case "show", "":
		if args.Option("json", "") == "true" {
			return NewJSONResponse("config show", env.Config).Write(w)
		}
		printConfig(w, env.Config, env.ConfigPath)
		return nil

	case "path":
		return printConfigPath(w, env.ConfigPath, args.Option("json", "") == "true")

	case "init":
		return initConfig(w, env.ConfigPath, args.Option("force", "") == "true")

	case "set":
		if len(args.Raw) < 2 {
			return ErrMissingArgument("key and value", "streamchat config set ui.render_fps 60")
		}
		return setConfig(w, env, args.Raw[0], strings.Join(args.Raw[1:], " "))

	default:
		return &ValidationError{
			Field:   "subcommand",
			Value:   args.Subcommand,
			Reason:  "must be show, path, init or set",
			Example: "streamchat config show",
		}
	}
}

// =============================================================================
// SHOW
// =============================================================================

func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, TitleStyle.Render("streamchat configuration"))
	fmt.Fprintln(w, DimStyle.Render(path))
	fmt.Fprintln(w, RenderSeparator())

	section := ""
	for _, key := range cfg.Keys() {
		head, name, ok := strings.Cut(key, ".")
		if !ok {
			head, name = "", key
		}
		if head != section {
			section = head
			fmt.Fprintln(w)
			fmt.Fprintln(w, InfoStyle.Render("["+section+"]"))
		}
		v, _ := cfg.Get(key)
		value := fmt.Sprint(v)
		if value == "" {
			value = DimStyle.Render("(default)")
		}
		fmt.Fprintln(w, RenderField(name, value))
	}

	if len(cfg.Functions) > 0 {
		names := make([]string, 0, len(cfg.Functions))
		for name := range cfg.Functions {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w)
		fmt.Fprintln(w, InfoStyle.Render("[functions]"))
		for _, name := range names {
			fmt.Fprintln(w, RenderField(name, functionSummary(cfg.Functions[name])))
		}
	}
}

func functionSummary(fc config.FunctionConfig) string {
	var parts []string
	if fc.Header.Show != nil && !*fc.Header.Show {
		parts = append(parts, "header hidden")
	} else if fc.Header.Text != "" {
		parts = append(parts, "header "+fc.Header.Text)
	}
	if fc.Arguments.ShowKeyAsCode != nil {
		parts = append(parts, "code from "+fc.Arguments.ShowKeyAsCode.Key)
	}
	if fc.Result.Type != "" {
		parts = append(parts, "result "+fc.Result.Type)
	}
	if len(parts) == 0 {
		return "defaults"
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// PATH / INIT
// =============================================================================

func printConfigPath(w io.Writer, path string, asJSON bool) error {
	_, err := os.Stat(path)
	exists := err == nil
	if asJSON {
		return NewJSONResponse("config path", map[string]interface{}{
			"path":   path,
			"exists": exists,
		}).Write(w)
	}
	fmt.Fprintln(w, path)
	if !exists {
		fmt.Fprintln(w, DimStyle.Render("(not created yet; run: streamchat config init)"))
	}
	return nil
}

func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init",
			fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.SaveFile(config.Default(), path); err != nil {
		return NewCommandError("config", "init", err)
	}
	fmt.Fprintln(w, SuccessStyle.Render("Wrote "+path))
	return nil
}

// =============================================================================
// SET
// =============================================================================

// setConfig edits the file itself, so flag and environment overrides in
// env.Config are not written back.
func setConfig(w io.Writer, env *Env, key, value string) error {
	cfg, err := config.LoadFile(env.ConfigPath)
	if err != nil {
		return NewCommandError("config", "set", err)
	}
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Reason:  err.Error(),
			Example: "streamchat config set ui.theme light",
		}
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.SaveFile(cfg, env.ConfigPath); err != nil {
		return NewCommandError("config", "set", err)
	}
	env.Logger.Info("config updated", "key", key, "path", env.ConfigPath)

	v, _ := cfg.Get(key)
	fmt.Fprintln(w, SuccessStyle.Render("✓ ")+RenderField(key, fmt.Sprint(v)))
	return nil
}
