// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/session"
)

// =============================================================================
// TRANSPORT MESSAGES
// =============================================================================

// EventMsg carries one server event into the program. The transport runs on
// its own goroutine and hands events over with tea.Program.Send, so the
// session is only ever touched from Update.
type EventMsg struct {
	Event session.Event
}

// TransportDoneMsg is sent once the transport's Run returns. Err is nil when
// the program is shutting down.
type TransportDoneMsg struct {
	Err error
}

// ConfigReloadMsg is sent by the config file watcher. The function display
// settings of a successfully reloaded file replace the session's.
type ConfigReloadMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

// redrawMsg flushes a redraw that was held back by the frame limiter.
type redrawMsg struct{}

// Pump forwards every event from events to p until the channel closes.
// It blocks, so run it on its own goroutine.
func Pump(p *tea.Program, events <-chan session.Event) {
	for ev := range events {
		p.Send(EventMsg{Event: ev})
	}
}
