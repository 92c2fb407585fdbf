// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the streamchat TUI.

Colors are lipgloss AdaptiveColor values, so the same palette works on dark
and light terminals. A Theme resolves the ui.theme setting ("dark", "light"
or "auto") once and builds every style from it:

	theme := styles.NewTheme(cfg.UI.Theme)
	header := theme.Header.Render("streamchat")

Tool call state is shown with a shape as well as a color, see
StatusIndicators and Theme.ToolStatus.
*/
package styles
