// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Export a saved chat.
//
// Command: export <id>
// Short:   Write a saved chat as markdown, html or json
//
// Flags:
//   --format FORMAT     md, html or json (default: md)
//   -o, --output PATH   Output file, "-" for stdout (default: stdout)
//   --dir DIR           Write a generated file name into DIR instead
//   --open              Open the file afterwards
//   --no-metadata       Leave out chat ID and timestamps

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/streamchat/internal/export"
	"github.com/jeranaias/streamchat/internal/util"
)

// HandleExport runs the export command.
func HandleExport(env *Env, args Args) error {
	if len(args.Raw) == 0 {
		return ErrMissingArgument("id", "streamchat export chat_3f2a9c0d1e7b --format html -o chat.html")
	}

	chat, err := env.Store.Load(args.Raw[0])
	if err != nil {
		return NewCommandError("export", "", err)
	}

	opts := export.DefaultOptions()
	opts.Theme = env.Config.UI.Theme
	opts.IncludeMetadata = args.Option("no-metadata", "") != "true"
	opts.OpenAfterExport = args.Option("open", "") == "true"

	exp, err := export.ForFormat(args.Option("format", "md"), opts)
	if err != nil {
		return NewValidationError("format", args.Option("format", ""), err.Error())
	}

	if dir := args.Option("dir", ""); dir != "" {
		opts.OutputDir = dir
		path, err := export.ExportToFile(chat, exp, opts)
		if err != nil {
			return NewCommandError("export", "", err)
		}
		fmt.Fprintln(os.Stderr, SuccessStyle.Render("Exported to "+path))
		return nil
	}

	content, err := exp.Export(chat)
	if err != nil {
		return NewCommandError("export", "", err)
	}

	out := args.Option("output", "-")
	if out == "-" {
		_, err = os.Stdout.Write(content)
		return err
	}
	if err := util.AtomicWriteFile(out, content, 0644); err != nil {
		return NewCommandError("export", "write", err)
	}
	env.Logger.Info("chat exported", "chat", chat.ID, "format", exp.MimeType(), "path", out)
	fmt.Fprintln(os.Stderr, SuccessStyle.Render("Exported to "+out))
	return nil
}
