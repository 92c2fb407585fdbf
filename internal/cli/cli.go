// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing for streamchat.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdReplay
	CmdChats
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdReplay:
		return "replay"
	case CmdChats:
		return "chats"
	case CmdExport:
		return "export"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Server     string
	ChatID     string
	Markup     string
	Storage    string
	Verbose    bool
	Quiet      bool
	NoColor    bool

	// Subcommand is the first positional argument of commands that have them
	// (chats list, config path).
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

// Option returns a command-specific option or def when it was not given.
func (a Args) Option(name, def string) string {
	if v, ok := a.Options[name]; ok && v != "" {
		return v
	}
	return def
}

const usageText = `streamchat - terminal client for streaming chat servers
Version: %s

USAGE:
    streamchat [global flags] [command] [args]

COMMANDS:
    tui                     Full-screen chat (default)
    chat                    Line-mode chat for plain terminals and pipes
    replay <file>           Feed a JSONL event log through a session and print the transcript
    chats [list]            List saved chats
    chats search <text>     Find saved chats by summary or preview
    chats show <id>         Print a saved chat
    chats delete <id>       Delete a saved chat
    export <id>             Write a saved chat as markdown, html or json
    config [show|path|init] Inspect or create the configuration file
    config set <key> <val>  Change one setting, e.g. ui.render_fps 60
    version                 Show version information
    help                    Show this help

GLOBAL FLAGS:
    -c, --config PATH       Configuration file (default: %s)
    -s, --server URL        Chat server websocket URL
        --chat ID           Resume a saved chat by ID
    -m, --markup NAME       Text rendering: term, html or plain
        --storage NAME      Snapshot backend: file or sqlite
    -v, --verbose           Debug logging
    -q, --quiet             Minimal output
        --no-color          Disable colored output

EXPORT FLAGS:
    --format FORMAT         md, html or json (default: md)
    -o, --output PATH       Output file (default: stdout)
    --dir DIR               Write a generated file name into DIR
    --open                  Open the file after writing it
    --no-metadata           Omit front matter and header details

REPLAY FLAGS:
    --save                  Save the replayed chat to the snapshot store
    --stream                Print responses as they grow

EXAMPLES:
    streamchat
    streamchat --server ws://localhost:5000/ws chat
    streamchat --chat chat_3f2a9c0d1e7b chat
    streamchat chats
    streamchat export chat_3f2a9c0d1e7b --format html -o chat.html
    streamchat --markup plain replay session.jsonl

ENVIRONMENT:
    STREAMCHAT_SERVER_URL, STREAMCHAT_STORAGE, STREAMCHAT_STORAGE_PATH,
    STREAMCHAT_LOG_LEVEL, STREAMCHAT_LOG_FILE, STREAMCHAT_MARKUP,
    STREAMCHAT_RENDER_FPS, NO_COLOR
`

// PrintUsage prints the usage/help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version, "~/.streamchat/config.toml")
}

// PrintVersion prints version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "streamchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]

	p := NewArgParser(remaining)
	for name, val := range p.flags {
		parsed.Options[name] = val
	}
	for name, on := range p.boolFlags {
		if on {
			parsed.Options[name] = "true"
		}
	}
	if v := p.Flag("o"); v != "" {
		parsed.Options["output"] = v
	}
	parsed.Raw = p.PositionalFrom(0)

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "chat":
		return CmdChat, parsed

	case "replay":
		return CmdReplay, parsed

	case "chats", "ls":
		parsed.Subcommand = p.Subcommand()
		if parsed.Subcommand == "" {
			parsed.Subcommand = "list"
		}
		parsed.Raw = p.PositionalFrom(1)
		return CmdChats, parsed

	case "export":
		return CmdExport, parsed

	case "config":
		parsed.Subcommand = p.Subcommand()
		if parsed.Subcommand == "" {
			parsed.Subcommand = "show"
		}
		parsed.Raw = p.PositionalFrom(1)
		return CmdConfig, parsed

	case "version", "--version", "-V":
		return CmdVersion, parsed

	case "help", "--help", "-h":
		return CmdHelp, parsed

	default:
		parsed.Subcommand = cmd
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags are only recognised before the command name.
func parseGlobalFlags(args []string) ([]string, Args) {
	parsed := Args{
		Options: make(map[string]string),
	}

	value := func(i int) (string, int) {
		if i+1 < len(args) {
			return args[i+1], i + 1
		}
		return "", i
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		if name, val, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(name, "--") {
			switch name {
			case "--config":
				parsed.ConfigPath = val
			case "--server":
				parsed.Server = val
			case "--chat":
				parsed.ChatID = val
			case "--markup":
				parsed.Markup = val
			case "--storage":
				parsed.Storage = val
			default:
				return args[i:], parsed
			}
			i++
			continue
		}

		switch arg {
		case "-c", "--config":
			parsed.ConfigPath, i = value(i)
		case "-s", "--server":
			parsed.Server, i = value(i)
		case "--chat":
			parsed.ChatID, i = value(i)
		case "-m", "--markup":
			parsed.Markup, i = value(i)
		case "--storage":
			parsed.Storage, i = value(i)
		case "-v", "--verbose":
			parsed.Verbose = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--no-color":
			parsed.NoColor = true
		default:
			return args[i:], parsed
		}
		i++
	}

	return nil, parsed
}
