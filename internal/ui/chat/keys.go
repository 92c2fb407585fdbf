// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Submit     key.Binding
	Newline    key.Binding
	Stop       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings. Plain arrow keys belong to
// the input box, so the transcript scrolls with ctrl+arrows and paging keys.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ScrollUp: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("C-up", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("C-down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("ctrl+home"),
			key.WithHelp("C-Home", "go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("ctrl+end"),
			key.WithHelp("C-End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("A-Enter/C-j", "new line"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("Esc/C-c", "stop generating"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1", "?"),
			key.WithHelp("F1/?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Stop, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.ScrollUp, k.ScrollDown, k.PageUp, k.PageDown, k.Top, k.Bottom},
		// Input
		{k.Submit, k.Newline, k.Stop},
		// Other
		{k.Help, k.Quit},
	}
}

// =============================================================================
// SLASH COMMAND HELP
// =============================================================================

// HelpItem is one line of the help overlay.
type HelpItem struct {
	Key  string
	Desc string
}

// SlashCommands lists the commands typed into the input box.
var SlashCommands = []HelpItem{
	{"/attach <path>", "Attach a file or image to the next message"},
	{"/detach", "Drop pending attachments"},
	{"/edit <n> [text]", "Edit user message n (no text loads it for editing)"},
	{"/regen [n]", "Regenerate response n (default: last)"},
	{"/reset", "Replace the chat with the server defaults"},
	{"/save", "Save the chat now"},
	{"/dismiss", "Clear notices"},
	{"/help", "Toggle this help"},
	{"/quit", "Exit"},
}
