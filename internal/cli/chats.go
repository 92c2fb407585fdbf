// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats.go - Saved chat management.
//
// Command: chats [subcommand]
// Short:   List, search, show and delete saved chats
// Aliases: ls
//
// Subcommands:
//   list (default)      List saved chats, newest first
//   search <query>      List chats whose summary or first message matches
//   show <id>           Print a saved chat
//   delete <id>...      Delete saved chats
//
// Flags:
//   --json              Print the list as JSON
//   --yes, -y           Delete without asking

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
)

// HandleChats runs the chats command.
func HandleChats(env *Env, args Args) error {
	return runChats(os.Stdout, env, args)
}

func runChats(w io.Writer, env *Env, args Args) error {
	switch args.Subcommand {
	case "list", "ls":
		metas, err := env.Store.List()
		if err != nil {
			return NewCommandError("chats", "list", err)
		}
		return printChatList(w, "chats list", metas, args.Option("json", "") == "true")

	case "search", "find":
		query := strings.Join(args.Raw, " ")
		if query == "" {
			return ErrMissingArgument("query", "streamchat chats search sales")
		}
		metas, err := env.Store.Search(query)
		if err != nil {
			return NewCommandError("chats", "search", err)
		}
		return printChatList(w, "chats search", metas, args.Option("json", "") == "true")

	case "show", "cat":
		if len(args.Raw) == 0 {
			return ErrMissingArgument("id", "streamchat chats show chat_3f2a9c0d1e7b")
		}
		chat, err := env.Store.Load(args.Raw[0])
		if err != nil {
			return NewCommandError("chats", "show", err)
		}
		markup, err := NewMarkup(env.Config.UI, GetTerminalWidth())
		if err != nil {
			return err
		}
		return printChat(w, chat, markup)

	case "delete", "rm":
		if len(args.Raw) == 0 {
			return ErrMissingArgument("id", "streamchat chats delete chat_3f2a9c0d1e7b")
		}
		ok, err := RequireConfirmation(
			fmt.Sprintf("Delete %d chat(s)?", len(args.Raw)),
			[][2]string{{"Chats", strings.Join(args.Raw, ", ")}},
			ConfirmationOptions{
				ConfirmFlag: args.Option("yes", "") == "true" || args.Option("y", "") == "true",
				JSONMode:    args.Option("json", "") == "true",
				Out:         w,
			})
		if err != nil {
			return NewCommandError("chats", "delete", err)
		}
		if !ok {
			ShowCancellationMessage(w)
			return nil
		}
		for _, id := range args.Raw {
			if err := env.Store.Delete(id); err != nil {
				return NewCommandError("chats", "delete", err)
			}
			env.Logger.Info("chat deleted", "chat", id)
			fmt.Fprintln(w, SuccessStyle.Render("Deleted "+id))
		}
		return nil

	default:
		return NewValidationError("subcommand", args.Subcommand, "must be one of: list, search, show, delete")
	}
}

func printChatList(w io.Writer, command string, metas []storage.ChatMeta, asJSON bool) error {
	if asJSON {
		if metas == nil {
			metas = []storage.ChatMeta{}
		}
		return NewJSONResponse(command, metas).Write(w)
	}
	fmt.Fprint(w, storage.FormatChatList(metas))
	if len(metas) == 0 {
		fmt.Fprintln(w)
	}
	return nil
}

// printChat writes the projection of a saved chat.
func printChat(w io.Writer, chat *storage.Chat, markup render.Markup) error {
	msgs, _ := chat.Messages()
	b := render.NewBuilder(markup, chat.Functions.Normalize())

	fmt.Fprintln(w, TitleStyle.Render(chat.Summary))
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%s · updated %s", chat.ID, chat.UpdatedAt.Format("2006-01-02 15:04"))))
	fmt.Fprintln(w)
	fmt.Fprintln(w, FormatTranscript(b.Build(msgs, false)))
	return nil
}
