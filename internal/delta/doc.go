// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package delta folds streamed assistant fragments into a message store.
//
// The first delta for an unknown ID creates an assistant message. Later
// deltas for the same ID append content and grow or extend tool calls, which
// are addressed by their position in the message's tool call list.
//
// Fragments that cannot be placed (an index past the end of the list, or the
// first chunk of a call with no ID or name) are dropped and logged. Deltas
// that are malformed as a whole are rejected with one of the model error
// kinds and leave the store unchanged.
package delta
