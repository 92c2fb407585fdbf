// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the line-mode commands of
// streamchat.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus command options and positionals
//   - Env: Loaded config, logger and snapshot store shared by commands
//   - ArgParser: Flag/positional splitter used for commands and slash commands
//
// # Usage
//
//	cmd, args := cli.Parse()
//	env, err := cli.Setup(args)
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	defer env.Close()
//
//	switch cmd {
//	case cli.CmdChat:
//	    err = cli.HandleChatCommand(ctx, env, args)
//	case cli.CmdExport:
//	    err = cli.HandleExport(env, args)
//	// ...
//	}
//
// # Commands
//
//   - chat: Line-mode chat over the websocket transport
//   - replay: Feed a recorded JSONL event log through a session
//   - chats: List, search, show and delete saved chats
//   - export: Write a saved chat as markdown, HTML or JSON
//   - config: Show, create and edit the configuration file
//
// The full-screen interface lives in the ui/chat package.
package cli
