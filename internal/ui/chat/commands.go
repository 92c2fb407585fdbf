// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/cli"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/ui/components"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runSlashCommand executes a /command typed into the input box. The input is
// cleared unless the command fails or refills it.
func (m Model) runSlashCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	p := cli.NewArgParser(fields[1:])

	fail := func(err error) (tea.Model, tea.Cmd) {
		return m, m.toast(components.ToastKindError, err.Error())
	}

	switch name {
	case "/quit", "/q", "/exit":
		return m.quit()

	case "/help", "/h", "/?":
		m.input.Reset()
		m.showHelp = !m.showHelp
		return m, nil

	case "/attach", "/a":
		path := cli.JoinPositionalArgs(p, 0)
		if path == "" {
			return fail(cli.ErrMissingArgument("path", "/attach ./plot.png"))
		}
		if err := m.sess.Attach(path); err != nil {
			return fail(err)
		}
		m.input.Reset()
		m.syncStatus()
		pr := m.sess.Prompt()
		return m, m.toast(components.ToastKindSuccess,
			fmt.Sprintf("Attached %s (%d image(s), %d file(s) pending)", path, len(pr.Images), len(pr.Files)))

	case "/detach":
		m.sess.ClearPrompt()
		m.input.Reset()
		m.syncStatus()
		return m, m.toast(components.ToastKindStatus, "Attachments dropped")

	case "/edit", "/e":
		if m.sess.Generating() {
			return fail(fmt.Errorf("cannot edit while generating"))
		}
		n, err := cli.ParsePositiveInt(p.Positional(0), "message number")
		if err != nil {
			return fail(err)
		}
		turns := m.sess.Turns()
		id, err := cli.UserTurnID(turns, n)
		if err != nil {
			return fail(err)
		}
		text := cli.JoinPositionalArgs(p, 1)
		if text == "" {
			// Load the message so it can be edited in place.
			m.input.SetValue(fmt.Sprintf("/edit %d %s", n, userText(turns, id)))
			m.input.CursorEnd()
			m.refresh()
			return m, nil
		}
		return m.send(func() error { return m.sess.ChangeUserMessageAndSubmit(id, text) }, true)

	case "/regen", "/r":
		if m.sess.Generating() {
			return fail(fmt.Errorf("cannot regenerate while generating"))
		}
		index, err := cli.AgentTurnIndex(m.sess.Turns(), p.Positional(0))
		if err != nil {
			return fail(err)
		}
		return m.send(func() error { return m.sess.RegenerateOnAgentResponse(index) }, true)

	case "/reset":
		if err := m.sess.Reset(); err != nil {
			return fail(err)
		}
		m.input.Reset()
		m.refresh()
		return m, m.toast(components.ToastKindStatus, "Chat reset")

	case "/save":
		if m.saver == nil {
			return fail(fmt.Errorf("saving is disabled"))
		}
		if err := m.saver.Flush(); err != nil {
			m.syncStatus()
			return fail(err)
		}
		m.input.Reset()
		m.syncStatus()
		return m, m.toast(components.ToastKindSuccess, "Saved "+m.sess.ID())

	case "/dismiss":
		m.sess.Notices().Clear()
		m.input.Reset()
		m.refresh()
		return m, nil

	default:
		return fail(cli.NewValidationError("command", name, "unknown command, try /help"))
	}
}

func userText(turns []render.Turn, id string) string {
	for _, t := range turns {
		if u, ok := t.(*render.UserTurn); ok && u.ID == id {
			return u.Text
		}
	}
	return ""
}
