// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates one chat: it owns the message store, applies
// server events to it and issues generation commands.
//
// # Ownership
//
// A Session is not safe for concurrent use. It belongs to a single goroutine
// (the TUI update loop, the line-mode loop or the replay loop). Transport
// goroutines hand events to that goroutine instead of calling Dispatch
// themselves.
//
// # Event Flow
//
//	server --event--> Dispatch --> store --> projection --> Turns()
//	user action --> SendMessage / ChangeUserMessageAndSubmit --> Transport
//
// Problems caused by a single event never abort the session. They are
// recorded as notices and the event is dropped:
//
//	for _, n := range sess.Notices().Items() {
//	    fmt.Println(n.Kind, n.Text)
//	}
//
// # Persistence
//
// Snapshot and Restore convert between a live session and a storage.Chat.
// Autosaver writes dirty sessions on a timer, skipping while generating.
package session
