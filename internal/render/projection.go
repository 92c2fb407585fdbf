// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// BUILDER
// =============================================================================

// Builder projects message lists into turns.
type Builder struct {
	Markup    Markup
	Functions config.FunctionConfigs
}

// NewBuilder creates a builder. A nil markup renders plain text.
func NewBuilder(m Markup, functions config.FunctionConfigs) *Builder {
	if m == nil {
		m = PlainMarkup{}
	}
	return &Builder{Markup: m, Functions: functions}
}

// Build groups msgs into turns. When generating, the part being streamed is
// marked with the cursor, and a placeholder agent turn follows a trailing
// user turn.
func (b *Builder) Build(msgs []model.Message, generating bool) []Turn {
	var turns []Turn

	for i := 0; i < len(msgs); {
		switch m := msgs[i].(type) {
		case *model.SystemMessage:
			i++
			continue
		case *model.UserMessage:
			turns = append(turns, userTurn(m))
			i++
			continue
		}

		agent := &AgentTurn{}
		for ; i < len(msgs); i++ {
			if _, ok := msgs[i].(*model.UserMessage); ok {
				break
			}
			a, ok := msgs[i].(*model.AssistantMessage)
			if !ok {
				continue
			}
			if text := a.Text(); text != "" {
				agent.Parts = append(agent.Parts, &ContentPart{
					Source: text,
					Markup: b.Markup.Message(text),
				})
			}
			for _, call := range a.ToolCalls {
				result := lookupResult(msgs[i+1:], call.ID)
				agent.Parts = append(agent.Parts, b.toolCallPart(call, result, generating))
			}
		}
		turns = append(turns, agent)
	}

	if generating {
		turns = b.markStreaming(turns)
	}
	return turns
}

func userTurn(m *model.UserMessage) *UserTurn {
	t := &UserTurn{ID: m.ID, Text: m.Content.PlainText()}
	for _, p := range m.Content.Parts {
		switch p.Type {
		case model.PartImage:
			t.Images = append(t.Images, p)
		case model.PartBinary:
			t.Files = append(t.Files, p)
		}
	}
	return t
}

// lookupResult returns the content of the first tool message for callID.
func lookupResult(rest []model.Message, callID string) *string {
	for _, msg := range rest {
		if tm, ok := msg.(*model.ToolMessage); ok && tm.ToolCallID == callID {
			content := tm.Content
			return &content
		}
	}
	return nil
}

func (b *Builder) toolCallPart(call model.ToolCall, result *string, generating bool) *ToolCallPart {
	name := call.Function.Name
	d := b.Functions.Display(name)

	part := &ToolCallPart{
		ID:          call.ID,
		Name:        name,
		ShowHeader:  d.ShowHeader,
		Status:      ResolveStatus(result, generating),
		Arguments:   call.Function.Arguments,
		ArgsMarkup:  b.renderArgs(call.Function.Arguments, d),
		ArgsTitle:   b.Markup.Markdown(d.ArgsTitle),
		Result:      result,
		ResultTitle: b.Markup.Markdown(d.ResultTitle),
		ResultType:  d.ResultType,
	}
	if d.ShowHeader {
		part.Header = b.Markup.Markdown(d.Header)
	}
	if result != nil {
		rendered := b.renderResult(*result, d.ResultType)
		part.ResultMarkup = &rendered
	}
	return part
}

// markStreaming puts the cursor on the part currently being generated.
func (b *Builder) markStreaming(turns []Turn) []Turn {
	if len(turns) == 0 {
		return turns
	}

	switch last := turns[len(turns)-1].(type) {
	case *UserTurn:
		return append(turns, &AgentTurn{Parts: []Part{
			&ContentPart{Markup: b.Markup.Cursor(""), Cursor: true},
		}})

	case *AgentTurn:
		if len(last.Parts) == 0 {
			return turns
		}
		switch p := last.Parts[len(last.Parts)-1].(type) {
		case *ContentPart:
			p.Markup = b.Markup.Cursor(p.Markup)
			p.Cursor = true
		case *ToolCallPart:
			p.ArgsMarkup = b.Markup.Cursor(p.ArgsMarkup)
			p.Cursor = true
		}
	}
	return turns
}
