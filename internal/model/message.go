// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE UNION
// =============================================================================

// Message is one entry of a transcript. The set of implementations is closed:
// *UserMessage, *AssistantMessage, *ToolMessage and *SystemMessage.
//
// Messages held by the store are treated as immutable values. Code that needs
// to change one clones it first.
type Message interface {
	MessageID() string
	MessageRole() Role
	isMessage()
}

// UserMessage is a prompt written by the user.
type UserMessage struct {
	ID      string
	Content Content
}

// AssistantMessage is a model response. Content is nil when the model only
// produced tool calls.
type AssistantMessage struct {
	ID        string
	Content   *string
	ToolCalls []ToolCall
}

// ToolMessage carries the result of a tool call back to the model.
type ToolMessage struct {
	ID         string
	ToolCallID string
	Content    string
}

// SystemMessage is an instruction that is sent to the model but never shown.
type SystemMessage struct {
	ID      string
	Content string
}

func (m *UserMessage) MessageID() string      { return m.ID }
func (m *AssistantMessage) MessageID() string { return m.ID }
func (m *ToolMessage) MessageID() string      { return m.ID }
func (m *SystemMessage) MessageID() string    { return m.ID }

func (m *UserMessage) MessageRole() Role      { return RoleUser }
func (m *AssistantMessage) MessageRole() Role { return RoleAssistant }
func (m *ToolMessage) MessageRole() Role      { return RoleTool }
func (m *SystemMessage) MessageRole() Role    { return RoleSystem }

func (*UserMessage) isMessage()      {}
func (*AssistantMessage) isMessage() {}
func (*ToolMessage) isMessage()      {}
func (*SystemMessage) isMessage()    {}

// Text returns the assistant content, treating nil as empty.
func (m *AssistantMessage) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Clone returns a deep copy of the assistant message so that the copy's tool
// calls can be edited without touching the original.
func (m *AssistantMessage) Clone() *AssistantMessage {
	out := &AssistantMessage{ID: m.ID}
	if m.Content != nil {
		c := *m.Content
		out.Content = &c
	}
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}

// Clone returns a deep copy of the user message.
func (m *UserMessage) Clone() *UserMessage {
	return &UserMessage{ID: m.ID, Content: m.Content.Clone()}
}

// NewUserMessage creates a user message with a generated ID.
func NewUserMessage(content Content) *UserMessage {
	return &UserMessage{ID: NewID(), Content: content}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// =============================================================================
// TOOL CALLS
// =============================================================================

// ToolTypeFunction is the only supported tool call type.
const ToolTypeFunction = "function"

// ToolCall is a structured function-invocation request embedded in an
// assistant message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is the function part of a tool call. Arguments holds JSON
// text that may still be incomplete while the call is streaming.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// =============================================================================
// CONTENT
// =============================================================================

// PartType identifies the kind of a content part.
type PartType string

const (
	PartText   PartType = "text"
	PartImage  PartType = "image_url"
	PartBinary PartType = "binary"
)

// ImageURL references an image, usually as a data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`

	// Binary attachments
	Name     string `json:"name,omitempty"`
	FileType string `json:"fileType,omitempty"`
	Data     []byte `json:"content,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: &ImageURL{URL: url}}
}

// BinaryPart returns a binary attachment part.
func BinaryPart(name, fileType string, data []byte) ContentPart {
	return ContentPart{Type: PartBinary, Name: name, FileType: fileType, Data: data}
}

// Content is message content on the wire: either a plain string or an
// ordered list of parts. A non-nil Parts slice means the list form.
type Content struct {
	Text  string
	Parts []ContentPart
}

// TextContent returns plain text content.
func TextContent(text string) Content {
	return Content{Text: text}
}

// PartsContent returns multi-part content.
func PartsContent(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{Parts: parts}
}

// IsParts reports whether the content is in list form.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// PlainText returns the plain string, or the first text part for list form.
func (c Content) PlainText() string {
	if !c.IsParts() {
		return c.Text
	}
	for _, p := range c.Parts {
		if p.Type == PartText {
			return p.Text
		}
	}
	return ""
}

// JoinedText concatenates every text part. Used where a role only accepts a
// string but the wire sent a list.
func (c Content) JoinedText() string {
	if !c.IsParts() {
		return c.Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Files returns the non-text parts in order.
func (c Content) Files() []ContentPart {
	var out []ContentPart
	for _, p := range c.Parts {
		if p.Type != PartText {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	if c.Parts == nil {
		return Content{Text: c.Text}
	}
	parts := make([]ContentPart, len(c.Parts))
	for i, p := range c.Parts {
		if p.ImageURL != nil {
			u := *p.ImageURL
			p.ImageURL = &u
		}
		if p.Data != nil {
			p.Data = append([]byte(nil), p.Data...)
		}
		parts[i] = p
	}
	return Content{Parts: parts}
}

// MarshalJSON writes the string form or the list form.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a JSON string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{Text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*c = PartsContent(parts...)
	return nil
}
