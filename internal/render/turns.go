// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "github.com/jeranaias/streamchat/internal/model"

// =============================================================================
// TURNS
// =============================================================================

// Turn is one entry of the projection: *UserTurn or *AgentTurn.
type Turn interface {
	isTurn()
}

// UserTurn is a single user message.
type UserTurn struct {
	ID     string
	Text   string
	Images []model.ContentPart
	Files  []model.ContentPart
}

// AgentTurn is every assistant and tool message between two user messages.
type AgentTurn struct {
	Parts []Part
}

func (*UserTurn) isTurn()  {}
func (*AgentTurn) isTurn() {}

// =============================================================================
// AGENT PARTS
// =============================================================================

// Part is one element of an agent turn: *ContentPart or *ToolCallPart.
type Part interface {
	isPart()
}

// ContentPart is assistant prose.
type ContentPart struct {
	Source string
	Markup string
	Cursor bool
}

// ToolCallPart is one tool call with its result, if any.
type ToolCallPart struct {
	ID   string
	Name string

	// Header is empty when ShowHeader is false
	ShowHeader bool
	Header     string

	Status Status

	Arguments  string
	ArgsMarkup string
	ArgsTitle  string

	// Result is nil until the matching tool message arrives
	Result       *string
	ResultMarkup *string
	ResultTitle  string
	ResultType   string

	Cursor bool
}

func (*ContentPart) isPart()  {}
func (*ToolCallPart) isPart() {}
