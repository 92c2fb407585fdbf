// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved chats as Markdown, HTML or JSON.
//
// Markdown and HTML are rendered from the same projection the terminal
// shows, so tool calls appear with their configured headers, argument code
// blocks and results. JSON is the snapshot itself.
//
// # Usage
//
//	exp, err := export.ForFormat("html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(chat, exp, opts)
package export
