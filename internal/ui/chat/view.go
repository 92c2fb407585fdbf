// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/ui/components"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight    = 1
	statusBarHeight = 1
	maxNoticeLines  = 3
)

// transcriptWidth is the width available inside a turn block.
func (m Model) transcriptWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// refresh re-renders the transcript into the viewport and recomputes the
// layout. The view keeps following the bottom if it was there.
func (m *Model) refresh() {
	m.syncStatus()

	inputHeight := m.input.LineCount()
	if inputHeight > maxInputHeight {
		inputHeight = maxInputHeight
	}
	if inputHeight < 1 {
		inputHeight = 1
	}
	m.input.SetHeight(inputHeight)

	vpHeight := m.height - headerHeight - statusBarHeight - (inputHeight + 1) - lipgloss.Height(m.renderNotices())
	if m.sess.Notices().Len() == 0 {
		vpHeight++
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Height = vpHeight

	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MAIN VIEW
// =============================================================================

func (m Model) renderChat() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.showHelp {
		body = lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.renderHelp())
	} else if m.toasts.HasToasts() {
		body = overlayBottom(body, components.RenderToastStack(m.toasts.Toasts(), m.width))
	}

	parts := []string{m.renderHeader(), body}
	if notices := m.renderNotices(); notices != "" {
		parts = append(parts, notices)
	}
	parts = append(parts,
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.statusBar.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("streamchat")
	sub := m.serverURL
	if sub == "" {
		sub = m.sess.ID()
	}
	line := title + " " + m.theme.HeaderSubtitle.Render(util.TruncateWidth(sub, m.width-14))
	return m.theme.Header.Width(m.width).Render(line)
}

// overlayBottom replaces the last lines of base with overlay.
func overlayBottom(base, overlay string) string {
	lines := strings.Split(base, "\n")
	over := strings.Split(overlay, "\n")
	if len(over) > len(lines) {
		over = over[len(over)-len(lines):]
	}
	copy(lines[len(lines)-len(over):], over)
	return strings.Join(lines, "\n")
}

func (m Model) renderNotices() string {
	items := m.sess.Notices().Items()
	if len(items) == 0 {
		return ""
	}
	var lines []string
	start := 0
	if len(items) > maxNoticeLines {
		start = len(items) - maxNoticeLines + 1
		lines = append(lines, m.theme.Dim.Render(fmt.Sprintf("  %d earlier notice(s), /dismiss clears", start)))
	}
	for _, n := range items[start:] {
		style := m.theme.NoticeClient
		if n.Kind == session.NoticeServer {
			style = m.theme.NoticeServer
		}
		text := util.TruncateWidth("["+n.Kind.String()+"] "+n.Text, m.width-2)
		lines = append(lines, style.Render(text))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	turns := m.sess.Turns()
	if len(turns) == 0 {
		hint := "Type a message to start."
		if !m.sess.Connected() {
			hint = "Waiting for the server..."
		}
		return m.theme.Dim.Render(hint)
	}

	width := m.transcriptWidth()
	blocks := make([]string, 0, len(turns))
	userN, agentN := 0, 0
	for _, t := range turns {
		switch t := t.(type) {
		case *render.UserTurn:
			userN++
			blocks = append(blocks, m.renderUserTurn(t, userN, width))
		case *render.AgentTurn:
			agentN++
			blocks = append(blocks, m.renderAgentTurn(t, agentN, width))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderUserTurn(t *render.UserTurn, n, width int) string {
	var lines []string
	lines = append(lines, m.theme.UserLabel.Render(fmt.Sprintf("You #%d", n)))
	for i := range t.Images {
		lines = append(lines, m.theme.Attachment.Render(fmt.Sprintf("[image %d]", i+1)))
	}
	for _, f := range t.Files {
		lines = append(lines, m.theme.Attachment.Render(fmt.Sprintf("[file: %s (%s)]", f.Name, f.FileType)))
	}
	if t.Text != "" {
		lines = append(lines, t.Text)
	}
	return m.theme.UserBlock.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderAgentTurn(t *render.AgentTurn, n, width int) string {
	lines := []string{m.theme.AgentLabel.Render(fmt.Sprintf("Assistant #%d", n))}
	for _, p := range t.Parts {
		if text := m.renderPart(p); text != "" {
			lines = append(lines, text)
		}
	}
	return m.theme.AgentBlock.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderPart(p render.Part) string {
	switch p := p.(type) {
	case *render.ContentPart:
		if p.Markup != "" {
			return strings.TrimRight(p.Markup, "\n")
		}
		return p.Source

	case *render.ToolCallPart:
		var lines []string
		if p.ShowHeader {
			icon, style := m.theme.ToolStatus(p.Status)
			name := p.Header
			if name == "" {
				name = p.Name
			}
			lines = append(lines, m.theme.ToolHeader.Render(name)+" "+style.Render(icon))
		}
		if p.ArgsMarkup != "" {
			if p.ArgsTitle != "" {
				lines = append(lines, m.theme.ToolTitle.Render(p.ArgsTitle))
			}
			lines = append(lines, strings.TrimRight(p.ArgsMarkup, "\n"))
		}
		if p.ResultMarkup != nil {
			if p.ResultTitle != "" {
				lines = append(lines, m.theme.ToolTitle.Render(p.ResultTitle))
			}
			result := strings.TrimRight(*p.ResultMarkup, "\n")
			if p.Status == render.StatusError {
				result = m.theme.ToolError.Render(result)
			}
			lines = append(lines, result)
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HelpTitle.Render("Keys"))
	sb.WriteString("\n")
	for _, group := range m.keyMap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			sb.WriteString(fmt.Sprintf("  %s %s\n",
				m.theme.ShortcutKey.Render(util.PadRight(h.Key, 14)), m.theme.ShortcutDesc.Render(h.Desc)))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.HelpTitle.Render("Commands"))
	sb.WriteString("\n")
	for _, c := range SlashCommands {
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			m.theme.ShortcutKey.Render(util.PadRight(c.Key, 18)), m.theme.ShortcutDesc.Render(c.Desc)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.theme.Dim.Render("Press any key to close"))
	return m.theme.HelpBox.Render(sb.String())
}
