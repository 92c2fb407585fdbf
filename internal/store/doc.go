// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the ordered message collection of a single chat.
//
// A Store is an ordered identity map: messages are keyed by ID and kept in
// insertion order. Every mutation replaces the order slice and the mapping
// together (copy-on-write), so a Snapshot handed to an observer never changes
// afterwards and never shows the two disagreeing.
//
// # Usage
//
//	s := store.New()
//	unsubscribe := s.Subscribe(func(snap store.Snapshot) {
//	    redraw(snap.Messages())
//	})
//	defer unsubscribe()
//
//	s.Upsert(model.NewUserMessage(model.TextContent("hello")))
//
// A Store is not safe for concurrent use. It belongs to whichever goroutine
// owns the chat session.
package store
