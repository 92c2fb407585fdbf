// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a message list into display-ready turns.
//
// A Builder groups messages into alternating user and agent turns. Each
// assistant tool call becomes a ToolCallPart whose result is looked up among
// the tool messages that follow it, and whose Status says whether the call is
// still running, finished or failed. While the model is generating, the part
// being streamed carries a cursor.
//
// # Markup
//
// Text is rendered through a Markup implementation:
//
//   - PlainMarkup: source text unchanged, cursor glyph appended
//   - HTMLMarkup: goldmark HTML with chroma-highlighted code blocks, cursor
//     as a <span class="stream-cursor-span"></span>
//   - TermMarkup: glamour ANSI output for the terminal
//
// # Usage
//
//	b := render.NewBuilder(render.PlainMarkup{}, cfg.Functions)
//	for _, turn := range b.Build(messages, generating) {
//	    switch t := turn.(type) {
//	    case *render.UserTurn:
//	        ...
//	    case *render.AgentTurn:
//	        ...
//	    }
//	}
package render
