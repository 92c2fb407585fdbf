// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat snapshots between runs.
//
// A snapshot is the transcript (order plus id-to-message mapping in wire
// shape), the unsent prompt and the function display config in effect when
// it was taken. Two backends implement Store:
//
//   - FileStore: one JSON file per chat, written atomically
//   - SQLiteStore: a single database file (modernc.org/sqlite, no cgo)
//
// # Usage
//
//	store, err := storage.Open("sqlite", path)
//	id, err := store.Save(chat)
//	chat, err := store.Load(id)
//	metas, err := store.List()
//
// Missing chats are reported as ErrChatNotFound:
//
//	if errors.Is(err, storage.ErrChatNotFound) {
//	    ...
//	}
package storage
