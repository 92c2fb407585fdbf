// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/storage"
)

// =============================================================================
// AUTOSAVER
// =============================================================================

// Autosaver writes a session to a store when it has unsaved changes. Like
// the session it belongs to one goroutine.
type Autosaver struct {
	session *Session
	store   storage.Store
	logger  *slog.Logger

	// interval is the minimum time between saves (0 = only on Flush)
	interval time.Duration
	lastSave time.Time
	lastErr  error
}

// NewAutosaver creates an autosaver for sess.
func NewAutosaver(sess *Session, st storage.Store, interval time.Duration, logger *slog.Logger) *Autosaver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Autosaver{
		session:  sess,
		store:    st,
		logger:   logger,
		interval: interval,
		lastSave: time.Now(),
	}
}

// ShouldSave reports whether a save is due: the session is dirty, not
// generating, and the interval has passed.
func (a *Autosaver) ShouldSave(now time.Time) bool {
	if a.interval <= 0 || !a.session.Dirty() || a.session.Generating() {
		return false
	}
	return now.Sub(a.lastSave) >= a.interval
}

// Check saves when a save is due. It reports whether a save happened.
func (a *Autosaver) Check(now time.Time) (bool, error) {
	if !a.ShouldSave(now) {
		return false, nil
	}
	return true, a.save(now)
}

// Flush saves a dirty session regardless of the interval. A session that is
// generating is not saved and ErrGenerating is returned.
func (a *Autosaver) Flush() error {
	if !a.session.Dirty() {
		return nil
	}
	return a.save(time.Now())
}

func (a *Autosaver) save(now time.Time) error {
	chat, err := a.session.Snapshot()
	if err != nil {
		return err
	}
	if _, err := a.store.Save(chat); err != nil {
		a.lastErr = err
		a.logger.Error("autosave failed", "chat", chat.ID, "error", err)
		return err
	}
	a.session.MarkSaved()
	a.lastSave = now
	a.lastErr = nil
	a.logger.Debug("chat saved", "chat", chat.ID, "messages", len(chat.Order))
	return nil
}

// LastSave returns when the session was last written.
func (a *Autosaver) LastSave() time.Time { return a.lastSave }

// LastError returns the error of the last failed save, if the latest attempt
// failed.
func (a *Autosaver) LastError() error { return a.lastErr }

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to drive autosave.
type TickMsg struct {
	Time time.Time
}

// SavedMsg reports the outcome of an autosave.
type SavedMsg struct {
	Err error
}

// TickCmd returns a command that ticks once a second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick saves if due and schedules the next tick.
func (a *Autosaver) HandleTick(msg TickMsg) tea.Cmd {
	saved, err := a.Check(msg.Time)
	if !saved || errors.Is(err, ErrGenerating) {
		return TickCmd()
	}
	return tea.Batch(
		func() tea.Msg { return SavedMsg{Err: err} },
		TickCmd(),
	)
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatDuration returns a short human-readable duration such as "42s" or
// "3m 5s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
