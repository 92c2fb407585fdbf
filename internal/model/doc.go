// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts.
//
// This package defines the core domain types shared by the message store,
// the delta reconciler and the projection builder.
//
// # Key Types
//
//   - Message: sealed union of UserMessage, AssistantMessage, ToolMessage
//     and SystemMessage
//   - ToolCall: a function invocation requested by an assistant message
//   - Delta: one streamed fragment of an in-progress assistant message
//   - PartialMessage: the permissive OpenAI-style wire shape used by the
//     server events and by snapshots
//
// # Role Dispatch
//
// Message is closed to this package. Code that needs per-role behaviour
// switches on the concrete type:
//
//	switch m := msg.(type) {
//	case *model.UserMessage:
//	    ...
//	case *model.AssistantMessage:
//	    ...
//	}
//
// # Errors
//
// The reconciliation error taxonomy lives here so that every package can
// match on it with errors.Is:
//
//	if errors.Is(err, model.ErrIncompleteToolCall) {
//	    ...
//	}
package model
