// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport connects a session to the chat server over a websocket.
//
// Every frame in either direction is a JSON envelope:
//
//	{"event": "message-update", "data": {...}}
//
// Inbound envelopes are delivered on the Events channel as session.Event
// values, together with locally generated connect and disconnect events.
// The channel is consumed by the goroutine that owns the session; the
// client's own goroutines never touch it.
//
// Outbound commands go through Send, which makes *Client a
// session.Transport.
package transport
