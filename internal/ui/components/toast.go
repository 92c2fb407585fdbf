// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements non-blocking toasts. They sit above the status bar and
// expire on their own, so the transcript stays usable while one is shown.
package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan color)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose/red color)
	ToastKindError
	// ToastKindWarning is a warning toast (amber color)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald color)
	ToastKindSuccess
)

// DefaultToastDuration is how long status and success toasts stay up.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so errors can be read.
const ErrorToastDuration = 8 * time.Second

// Toast is one transient message.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be gone at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts. It is owned by the Bubble Tea
// model and not safe for concurrent use.
type ToastManager struct {
	toasts    []Toast
	nextID    int
	maxToasts int

	now func() time.Time
}

// NewToastManager creates a new toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{
		nextID:    1,
		maxToasts: 3,
		now:       time.Now,
	}
}

// Add shows a toast and returns its ID. The oldest toast is dropped when
// the stack is full.
func (m *ToastManager) Add(kind ToastKind, message string) int {
	d := DefaultToastDuration
	if kind == ToastKindError || kind == ToastKindWarning {
		d = ErrorToastDuration
	}
	t := Toast{
		ID:        m.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: m.now(),
		Duration:  d,
	}
	m.nextID++

	m.toasts = append(m.toasts, t)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[len(m.toasts)-m.maxToasts:]
	}
	return t.ID
}

// AddError is shorthand for Add(ToastKindError, message).
func (m *ToastManager) AddError(message string) int { return m.Add(ToastKindError, message) }

// AddSuccess is shorthand for Add(ToastKindSuccess, message).
func (m *ToastManager) AddSuccess(message string) int { return m.Add(ToastKindSuccess, message) }

// AddStatus is shorthand for Add(ToastKindStatus, message).
func (m *ToastManager) AddStatus(message string) int { return m.Add(ToastKindStatus, message) }

// Remove dismisses a toast early.
func (m *ToastManager) Remove(id int) {
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Prune drops expired toasts and reports whether any are left.
func (m *ToastManager) Prune(now time.Time) bool {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return len(m.toasts) > 0
}

// Toasts returns the visible toasts, oldest first.
func (m *ToastManager) Toasts() []Toast {
	return append([]Toast(nil), m.toasts...)
}

// HasToasts reports whether any toast is visible.
func (m *ToastManager) HasToasts() bool {
	return len(m.toasts) > 0
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.toasts = nil
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// ToastTickMsg drives toast expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks every 250ms while toasts are visible.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast no wider than width.
func RenderToast(toast Toast, width int) string {
	maxWidth := 60
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch toast.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	text := wordwrap.String(toast.Message, maxWidth-len(icon)-5)
	content := iconStyle.Render(icon) + " " + strings.ReplaceAll(text, "\n", "\n"+strings.Repeat(" ", len(icon)+1))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(content)
}

// RenderToastStack renders toasts right-aligned in a block width wide,
// newest at the bottom.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, RenderToast(t, width))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
