// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// WIRE SHAPE
// =============================================================================

// PartialMessage is the OpenAI-style message shape used on the wire and in
// snapshots. Every field is optional; FromPartial decides whether the
// combination makes a valid Message.
type PartialMessage struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role,omitempty"`
	Content    *Content   `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// =============================================================================
// CONVERT FROM WIRE
// =============================================================================

// FromPartial converts a wire message into a Message. A missing ID is
// replaced with a generated one.
func FromPartial(pm PartialMessage) (Message, error) {
	const op = "model.FromPartial"

	id := pm.ID
	if id == "" {
		id = NewID()
	}

	switch pm.Role {
	case RoleSystem:
		return &SystemMessage{ID: id, Content: joined(pm.Content)}, nil

	case RoleUser:
		content := TextContent("")
		if pm.Content != nil {
			content = pm.Content.Clone()
		}
		return &UserMessage{ID: id, Content: content}, nil

	case RoleAssistant:
		var calls []ToolCall
		if len(pm.ToolCalls) > 0 {
			calls = make([]ToolCall, 0, len(pm.ToolCalls))
			for i, call := range pm.ToolCalls {
				if call.ID == "" || call.Function.Name == "" {
					return nil, Errorf(ErrMalformedMessage, op,
						"assistant message %q has an invalid tool call at position %d", id, i)
				}
				switch call.Type {
				case "":
					call.Type = ToolTypeFunction
				case ToolTypeFunction:
				default:
					return nil, Errorf(ErrUnsupportedToolType, op,
						"assistant message %q has a tool call of type %q", id, call.Type)
				}
				calls = append(calls, call)
			}
		}
		content := joined(pm.Content)
		return &AssistantMessage{ID: id, Content: &content, ToolCalls: calls}, nil

	case RoleTool:
		if pm.ToolCallID == "" {
			return nil, Errorf(ErrMalformedMessage, op, "tool message %q has no tool_call_id", id)
		}
		return &ToolMessage{ID: id, ToolCallID: pm.ToolCallID, Content: joined(pm.Content)}, nil

	default:
		return nil, Errorf(ErrMalformedMessage, op, "unknown role %q", pm.Role)
	}
}

// FromPartials converts a list of wire messages, dropping the entries that
// cannot be converted. The dropped entries' errors are returned for logging.
func FromPartials(pms []PartialMessage) ([]Message, []error) {
	msgs := make([]Message, 0, len(pms))
	var dropped []error
	seen := make(map[string]bool, len(pms))
	for _, pm := range pms {
		msg, err := FromPartial(pm)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		if seen[msg.MessageID()] {
			dropped = append(dropped, Errorf(ErrMalformedMessage, "model.FromPartials",
				"duplicate message id %q", msg.MessageID()))
			continue
		}
		seen[msg.MessageID()] = true
		msgs = append(msgs, msg)
	}
	return msgs, dropped
}

func joined(c *Content) string {
	if c == nil {
		return ""
	}
	return c.JoinedText()
}

// =============================================================================
// CONVERT TO WIRE
// =============================================================================

// ToPartial converts a Message into its wire shape, keeping the ID.
func ToPartial(msg Message) PartialMessage {
	switch m := msg.(type) {
	case *SystemMessage:
		c := TextContent(m.Content)
		return PartialMessage{ID: m.ID, Role: RoleSystem, Content: &c}
	case *UserMessage:
		c := m.Content.Clone()
		return PartialMessage{ID: m.ID, Role: RoleUser, Content: &c}
	case *AssistantMessage:
		pm := PartialMessage{ID: m.ID, Role: RoleAssistant}
		if m.Content != nil {
			c := TextContent(*m.Content)
			pm.Content = &c
		}
		if len(m.ToolCalls) > 0 {
			pm.ToolCalls = make([]ToolCall, len(m.ToolCalls))
			copy(pm.ToolCalls, m.ToolCalls)
		}
		return pm
	case *ToolMessage:
		c := TextContent(m.Content)
		return PartialMessage{ID: m.ID, Role: RoleTool, Content: &c, ToolCallID: m.ToolCallID}
	}
	return PartialMessage{}
}

// ToOpenAI converts messages, in order, into the list sent with a
// start-generating request. Internal IDs are stripped and empty tool call
// lists are omitted.
func ToOpenAI(msgs []Message) []PartialMessage {
	out := make([]PartialMessage, 0, len(msgs))
	for _, msg := range msgs {
		pm := ToPartial(msg)
		pm.ID = ""
		out = append(out, pm)
	}
	return out
}
