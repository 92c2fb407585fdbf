// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Markup renders markdown text and places the streaming cursor.
type Markup interface {
	// Markdown renders a short markdown fragment: a header, a title or a
	// fenced block.
	Markdown(src string) string
	// Message renders assistant prose. Code blocks may get a language banner.
	Message(src string) string
	// Cursor returns rendered output with the cursor placed after the last
	// visible text.
	Cursor(rendered string) string
}

// CursorGlyph is the cursor drawn by the text markups.
const CursorGlyph = "▍"

// =============================================================================
// PLAIN
// =============================================================================

// PlainMarkup leaves text as written.
type PlainMarkup struct{}

func (PlainMarkup) Markdown(src string) string { return src }
func (PlainMarkup) Message(src string) string  { return src }

// Cursor appends the glyph after the last non-space rune.
func (PlainMarkup) Cursor(rendered string) string {
	i := len(strings.TrimRightFunc(rendered, unicode.IsSpace))
	return rendered[:i] + CursorGlyph + rendered[i:]
}

// =============================================================================
// ANSI-AWARE CURSOR
// =============================================================================

// insertAfterVisible inserts glyph after the last visible, non-space rune of
// s, stepping over ANSI escape sequences.
func insertAfterVisible(s, glyph string) string {
	end := 0
	for i := 0; i < len(s); {
		if s[i] == 0x1b {
			i = skipEscape(s, i)
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if !unicode.IsSpace(r) {
			end = i
		}
	}
	return s[:end] + glyph + s[end:]
}

// skipEscape returns the index just past the escape sequence at s[i].
func skipEscape(s string, i int) int {
	i++ // ESC
	if i >= len(s) {
		return i
	}
	switch s[i] {
	case '[': // CSI: parameters then a final byte in @..~
		for i++; i < len(s); i++ {
			if s[i] >= 0x40 && s[i] <= 0x7e {
				return i + 1
			}
		}
		return i
	case ']': // OSC: terminated by BEL or ESC \
		for i++; i < len(s); i++ {
			if s[i] == 0x07 {
				return i + 1
			}
			if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
		}
		return i
	default:
		return i + 1
	}
}
