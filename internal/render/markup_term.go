// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// TermMarkup renders markdown as ANSI text for the terminal. Code blocks are
// highlighted by glamour.
type TermMarkup struct {
	renderer *glamour.TermRenderer
}

// NewTermMarkup creates a terminal markup. theme is "dark", "light" or
// "auto"; wrap is the word wrap width.
func NewTermMarkup(theme string, wrap int) (*TermMarkup, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	switch theme {
	case "light":
		opts = append(opts, glamour.WithStandardStyle("light"))
	case "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle("dark"))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &TermMarkup{renderer: r}, nil
}

// Markdown renders src, falling back to the source text on error.
func (m *TermMarkup) Markdown(src string) string {
	out, err := m.renderer.Render(src)
	if err != nil {
		return src
	}
	return strings.Trim(out, "\n")
}

// Message renders assistant prose the same way as Markdown.
func (m *TermMarkup) Message(src string) string {
	return m.Markdown(src)
}

// Cursor places the glyph after the last visible rune.
func (m *TermMarkup) Cursor(rendered string) string {
	return insertAfterVisible(rendered, CursorGlyph)
}
