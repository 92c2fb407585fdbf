// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// =============================================================================
// NOTICES
// =============================================================================

// NoticeKind tells where a notice came from.
type NoticeKind int

const (
	// NoticeServer is an error event sent by the server.
	NoticeServer NoticeKind = iota
	// NoticeClient is a problem found while applying an event locally.
	NoticeClient
)

// String returns the display name of the kind.
func (k NoticeKind) String() string {
	if k == NoticeServer {
		return "Server"
	}
	return "Client"
}

// Notice is one user-visible diagnostic.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Notices is an ordered list of diagnostics, deduplicated by text.
type Notices struct {
	items []Notice
}

// Add records a notice unless one with the same text exists. It reports
// whether the notice was added.
func (n *Notices) Add(kind NoticeKind, text string) bool {
	for _, it := range n.items {
		if it.Text == text {
			return false
		}
	}
	n.items = append(n.items, Notice{Kind: kind, Text: text})
	return true
}

// Remove drops the notice with the given text.
func (n *Notices) Remove(text string) {
	kept := n.items[:0:0]
	for _, it := range n.items {
		if it.Text != text {
			kept = append(kept, it)
		}
	}
	n.items = kept
}

// Items returns a copy of the notices, oldest first.
func (n *Notices) Items() []Notice {
	out := make([]Notice, len(n.items))
	copy(out, n.items)
	return out
}

// Len returns the number of notices.
func (n *Notices) Len() int {
	return len(n.items)
}

// Clear removes every notice.
func (n *Notices) Clear() {
	n.items = nil
}
