// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// print.go - Transcript output for the line-mode commands.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/streamchat/internal/render"
)

// =============================================================================
// FULL TRANSCRIPT
// =============================================================================

// FormatTranscript renders every turn of a projection as text.
func FormatTranscript(turns []render.Turn) string {
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, FormatTurn(t))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatTurn renders one turn with its role label.
func FormatTurn(t render.Turn) string {
	var sb strings.Builder
	switch t := t.(type) {
	case *render.UserTurn:
		sb.WriteString(UserLabelStyle.Render("You"))
		sb.WriteString("\n")
		for i := range t.Images {
			sb.WriteString(DimStyle.Render(fmt.Sprintf("[image %d]", i+1)))
			sb.WriteString("\n")
		}
		for _, f := range t.Files {
			sb.WriteString(DimStyle.Render(fmt.Sprintf("[file: %s (%s)]", f.Name, f.FileType)))
			sb.WriteString("\n")
		}
		sb.WriteString(t.Text)

	case *render.AgentTurn:
		sb.WriteString(AgentLabelStyle.Render("Assistant"))
		for _, p := range t.Parts {
			text := formatPart(p)
			if text == "" {
				continue
			}
			sb.WriteString("\n")
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func formatPart(p render.Part) string {
	switch p := p.(type) {
	case *render.ContentPart:
		if p.Markup != "" {
			return p.Markup
		}
		return p.Source

	case *render.ToolCallPart:
		var lines []string
		if p.ShowHeader {
			lines = append(lines, toolHeader(p))
		}
		if p.ArgsMarkup != "" {
			if p.ArgsTitle != "" {
				lines = append(lines, DimStyle.Render(p.ArgsTitle))
			}
			lines = append(lines, p.ArgsMarkup)
		}
		if p.ResultMarkup != nil {
			if p.ResultTitle != "" {
				lines = append(lines, DimStyle.Render(p.ResultTitle))
			}
			if p.Status == render.StatusError {
				lines = append(lines, ErrorStyle.Render(*p.ResultMarkup))
			} else {
				lines = append(lines, *p.ResultMarkup)
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func toolHeader(p *render.ToolCallPart) string {
	var mark string
	switch p.Status {
	case render.StatusProgress:
		mark = WarningStyle.Render("…")
	case render.StatusError:
		mark = ErrorStyle.Render("✗")
	default:
		mark = SuccessStyle.Render("✓")
	}
	return ToolHeaderStyle.Render("⚙ "+headerText(p)) + " " + mark
}

// =============================================================================
// STREAMING OUTPUT
// =============================================================================

// streamPrinter writes the agent turn being generated as it grows. Only the
// new suffix of each part is written, so the output can go to a plain
// terminal or a pipe.
type streamPrinter struct {
	w     io.Writer
	turn  int
	parts []partProgress
	open  bool
}

type partProgress struct {
	text   string
	args   string
	header bool
	result bool
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w, turn: -1}
}

// Begin starts following the agent turn after the last user turn.
func (p *streamPrinter) Begin(turns []render.Turn) {
	p.turn = len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		if _, ok := turns[i].(*render.UserTurn); ok {
			p.turn = i + 1
			break
		}
	}
	p.parts = nil
	p.open = false
}

// Active reports whether a turn is being followed.
func (p *streamPrinter) Active() bool {
	return p.turn >= 0
}

// Update writes whatever the followed turn gained since the last call.
func (p *streamPrinter) Update(turns []render.Turn) {
	if p.turn < 0 || p.turn >= len(turns) {
		return
	}
	agent, ok := turns[p.turn].(*render.AgentTurn)
	if !ok {
		return
	}
	if !p.open {
		fmt.Fprintln(p.w, AgentLabelStyle.Render("Assistant"))
		p.open = true
	}

	for i, part := range agent.Parts {
		if i >= len(p.parts) {
			p.parts = append(p.parts, partProgress{})
			if i > 0 {
				fmt.Fprintln(p.w)
			}
		}
		prog := &p.parts[i]

		switch part := part.(type) {
		case *render.ContentPart:
			prog.text = p.suffix(prog.text, part.Source, nil)

		case *render.ToolCallPart:
			if !prog.header && part.ShowHeader {
				fmt.Fprintln(p.w, ToolHeaderStyle.Render("⚙ "+headerText(part)))
				prog.header = true
			}
			prog.args = p.suffix(prog.args, part.Arguments, DimStyle.Render)
			if !prog.result && part.ResultMarkup != nil {
				fmt.Fprintln(p.w)
				if part.ResultTitle != "" {
					fmt.Fprintln(p.w, DimStyle.Render(part.ResultTitle))
				}
				if part.Status == render.StatusError {
					fmt.Fprint(p.w, ErrorStyle.Render(*part.ResultMarkup))
				} else {
					fmt.Fprint(p.w, *part.ResultMarkup)
				}
				prog.result = true
			}
		}
	}
}

// suffix writes the part of next that is not in printed. When next no
// longer extends printed the whole text is written again on a new line.
func (p *streamPrinter) suffix(printed, next string, style func(...string) string) string {
	if next == printed {
		return printed
	}
	out := next
	if strings.HasPrefix(next, printed) {
		out = next[len(printed):]
	} else if printed != "" {
		fmt.Fprintln(p.w)
	}
	if style != nil {
		out = style(out)
	}
	fmt.Fprint(p.w, out)
	return next
}

// Finish ends the followed turn.
func (p *streamPrinter) Finish() {
	if p.open {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w)
	}
	p.turn = -1
	p.parts = nil
	p.open = false
}

func headerText(p *render.ToolCallPart) string {
	if p.Header != "" {
		return p.Header
	}
	return p.Name
}
