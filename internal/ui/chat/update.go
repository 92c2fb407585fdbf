// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/ui/components"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m.quit()

	case key.Matches(msg, m.keyMap.Stop):
		if m.sess.Generating() {
			return m.stop()
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		return m, nil

	case m.showHelp:
		// Any other key closes the overlay.
		m.showHelp = false
		return m, nil

	case key.Matches(msg, m.keyMap.Help) && (msg.Type == tea.KeyF1 || m.input.Value() == ""):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keyMap.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	before := m.input.LineCount()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.LineCount() != before {
		m.refresh()
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m Model) stop() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if err := m.sess.StopGenerating(); err != nil {
		m.logger.Warn("stop request failed", "error", err)
		cmd = m.toast(components.ToastKindError, "Stop failed: "+err.Error())
	} else {
		cmd = m.toast(components.ToastKindStatus, "Stopped")
	}
	m.refresh()
	return m, cmd
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		return m.runSlashCommand(text)
	}

	if m.sess.Generating() {
		return m, m.toast(components.ToastKindWarning, "Wait for the response or press Esc to stop it")
	}
	if !m.sess.Connected() {
		return m, m.toast(components.ToastKindWarning, "Not connected")
	}

	m.sess.SetPromptText(text)
	if m.sess.Prompt().IsEmpty() {
		return m, nil
	}
	return m.send(m.sess.SendMessage, true)
}

// send runs a session action that may start a generation. clearInput empties
// the input box when the action succeeds.
func (m Model) send(action func() error, clearInput bool) (tea.Model, tea.Cmd) {
	if err := action(); err != nil {
		m.logger.Debug("send failed", "error", err)
		m.refresh()
		return m, m.toast(components.ToastKindError, err.Error())
	}
	if clearInput {
		m.input.Reset()
	}

	var cmd tea.Cmd
	if m.sess.Generating() {
		cmd = m.startSpinner()
	}
	m.refresh()
	m.viewport.GotoBottom()
	return m, cmd
}
