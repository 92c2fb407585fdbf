// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// DELTA TYPES
// =============================================================================

// Delta is one streamed fragment of an assistant message. The first delta
// for an ID creates the message; later deltas with the same ID are merged
// into it.
//
// Pointer fields distinguish "absent" from "empty" the way the wire does.
type Delta struct {
	ID        string          `json:"id,omitempty"`
	Role      Role            `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a fragment of a single tool call, addressed by its
// position in the assistant message's tool call list.
type ToolCallDelta struct {
	Index    *int           `json:"index,omitempty"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function *FunctionDelta `json:"function,omitempty"`
}

// FunctionDelta carries the function name and an arguments fragment.
type FunctionDelta struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// Call returns the tool call fragment of the delta. Only the first entry is
// considered: the upstream contract sends at most one call per chunk.
func (d Delta) Call() (ToolCallDelta, bool) {
	if len(d.ToolCalls) == 0 {
		return ToolCallDelta{}, false
	}
	return d.ToolCalls[0], true
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}
