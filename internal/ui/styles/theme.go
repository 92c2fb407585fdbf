// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/streamchat/internal/render"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// TURN STYLES
	// ==========================================================================

	UserLabel  lipgloss.Style
	UserBlock  lipgloss.Style
	AgentLabel lipgloss.Style
	AgentBlock lipgloss.Style
	Attachment lipgloss.Style

	ToolHeader   lipgloss.Style
	ToolTitle    lipgloss.Style
	ToolProgress lipgloss.Style
	ToolSuccess  lipgloss.Style
	ToolError    lipgloss.Style

	// ==========================================================================
	// NOTICES
	// ==========================================================================

	NoticeServer lipgloss.Style
	NoticeClient lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar          lipgloss.Style
	StatusConnected    lipgloss.Style
	StatusDisconnected lipgloss.Style
	StatusGenerating   lipgloss.Style
	ShortcutKey        lipgloss.Style
	ShortcutDesc       lipgloss.Style
	Spinner            lipgloss.Style

	// ==========================================================================
	// OVERLAYS AND TOASTS
	// ==========================================================================

	HelpBox   lipgloss.Style
	HelpTitle lipgloss.Style
	Toast     lipgloss.Style

	// ==========================================================================
	// UTILITY STYLES
	// ==========================================================================

	Dim          lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto"). Auto asks
// the terminal for its background color.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch mode {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Turns
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.UserBlock = lipgloss.NewStyle().
		Foreground(UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(UserBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.AgentLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.AgentBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(AssistantBorder).
		BorderLeft(true).
		PaddingLeft(1)

	t.Attachment = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ToolHeader = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.ToolTitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Underline(true)

	t.ToolProgress = lipgloss.NewStyle().
		Foreground(Amber)

	t.ToolSuccess = lipgloss.NewStyle().
		Foreground(ToolSuccessFg)

	t.ToolError = lipgloss.NewStyle().
		Foreground(ToolErrorFg).
		Bold(true)

	// Notices
	t.NoticeServer = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		BorderLeft(true).
		PaddingLeft(1)

	t.NoticeClient = lipgloss.NewStyle().
		Foreground(Amber).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Amber).
		BorderLeft(true).
		PaddingLeft(1)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusConnected = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StatusDisconnected = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.StatusGenerating = lipgloss.NewStyle().
		Foreground(Purple)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	// Overlays
	t.HelpBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.HelpTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)

	t.Toast = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)

	// Utility
	t.Dim = lipgloss.NewStyle().Foreground(TextMuted)
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Cyan)
}

// ToolStatus returns the indicator and style for a tool call status.
func (t *Theme) ToolStatus(s render.Status) (string, lipgloss.Style) {
	switch s {
	case render.StatusProgress:
		return StatusIndicators.Pending, t.ToolProgress
	case render.StatusError:
		return StatusIndicators.Error, t.ToolError
	default:
		return StatusIndicators.Success, t.ToolSuccess
	}
}
