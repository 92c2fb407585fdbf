// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/ui/styles"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the connection and generation state shown in the status bar.
type Status int

const (
	StatusConnecting Status = iota
	StatusReady
	StatusGenerating
	StatusDisconnected
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusReady:
		return "Ready"
	case StatusGenerating:
		return "Generating"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Icon returns a shape for the status so it does not rely on color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Active
	case StatusGenerating:
		return "~"
	case StatusDisconnected:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Pending
	}
}

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line of the chat view.
type StatusBar struct {
	ChatID      string
	Status      Status
	Spinner     string // current spinner frame while generating
	Notices     int
	Attachments int

	LastSave time.Time
	SaveErr  error

	Width         int
	ShowShortcuts bool
	theme         *styles.Theme

	now func() time.Time
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status:        StatusConnecting,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
		now:           time.Now,
	}
}

// SetWidth updates the status bar width
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar
func (s *StatusBar) View() string {
	sep := s.theme.Dim.Render(" | ")

	left := []string{s.renderStatus()}
	if s.Width >= 60 && s.ChatID != "" {
		left = append(left, s.theme.Dim.Render(s.ChatID))
	}
	if save := s.renderSave(); save != "" {
		left = append(left, save)
	}
	if s.Attachments > 0 {
		left = append(left, s.theme.InfoStyle.Render(fmt.Sprintf("+%d attached", s.Attachments)))
	}
	if s.Notices > 0 {
		left = append(left, s.theme.WarningStyle.Render(fmt.Sprintf("%s %d notice(s)", styles.StatusIndicators.Warning, s.Notices)))
	}
	leftText := strings.Join(left, sep)

	var right string
	if s.ShowShortcuts && s.Width >= 100 {
		right = s.renderShortcuts()
	}

	inner := s.Width - 2
	gap := inner - lipgloss.Width(leftText) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = inner - lipgloss.Width(leftText)
	}
	line := leftText
	if gap > 0 {
		line += strings.Repeat(" ", gap) + right
	} else {
		line = util.TruncateWidth(line, inner)
	}

	return s.theme.StatusBar.Width(s.Width).Render(line)
}

func (s *StatusBar) renderStatus() string {
	text := s.Status.Icon() + " " + s.Status.String()
	switch s.Status {
	case StatusReady:
		return s.theme.StatusConnected.Render(text)
	case StatusGenerating:
		if s.Spinner != "" {
			text = s.Spinner + " " + s.Status.String()
		}
		return s.theme.StatusGenerating.Render(text)
	case StatusDisconnected:
		return s.theme.StatusDisconnected.Render(text)
	default:
		return s.theme.Dim.Render(text)
	}
}

func (s *StatusBar) renderSave() string {
	if s.SaveErr != nil {
		return s.theme.ErrorStyle.Render(styles.StatusIndicators.Error + " save failed")
	}
	if s.LastSave.IsZero() {
		return ""
	}
	ago := s.now().Sub(s.LastSave)
	if ago < time.Second {
		return s.theme.Dim.Render("saved")
	}
	return s.theme.Dim.Render("saved " + formatAgo(ago) + " ago")
}

func (s *StatusBar) renderShortcuts() string {
	pairs := [][2]string{{"Enter", "send"}, {"Esc", "stop"}, {"?", "help"}, {"C-q", "quit"}}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, s.theme.ShortcutKey.Render(p[0])+" "+s.theme.ShortcutDesc.Render(p[1]))
	}
	return strings.Join(parts, "  ")
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
