// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package delta

import (
	"errors"
	"log/slog"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/store"
)

// errNoChange aborts a store update that would not change anything.
var errNoChange = errors.New("no change")

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler applies deltas to a store.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger discards log output.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// Apply creates or extends the assistant message d.ID in s.
func (r *Reconciler) Apply(s *store.Store, d model.Delta) error {
	const op = "delta.Apply"

	if d.Role != "" && d.Role != model.RoleAssistant {
		return model.Errorf(model.ErrInvalidDelta, op, "delta role is %q, expected assistant", d.Role)
	}
	if d.ID == "" {
		return model.Errorf(model.ErrInvalidDelta, op, "delta has no id")
	}

	if _, ok := s.Get(d.ID); !ok {
		msg, err := create(d)
		if err != nil {
			return err
		}
		return s.Upsert(msg)
	}

	err := s.Update(d.ID, func(cur model.Message) (model.Message, error) {
		return r.merge(cur, d)
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}

// =============================================================================
// CREATE
// =============================================================================

func create(d model.Delta) (*model.AssistantMessage, error) {
	const op = "delta.create"

	content := ""
	if d.Content != nil {
		content = *d.Content
	}
	msg := &model.AssistantMessage{ID: d.ID, Content: &content}

	call, ok := d.Call()
	if !ok {
		return msg, nil
	}
	if call.ID == "" {
		return nil, model.Errorf(model.ErrIncompleteToolCall, op,
			"first tool call chunk of message %q has no id", d.ID)
	}
	if call.Type != "" && call.Type != model.ToolTypeFunction {
		return nil, model.Errorf(model.ErrUnsupportedToolType, op,
			"message %q has a tool call of type %q", d.ID, call.Type)
	}

	var name, args string
	if call.Function != nil {
		name = deref(call.Function.Name)
		args = deref(call.Function.Arguments)
	}
	msg.ToolCalls = []model.ToolCall{{
		ID:       call.ID,
		Type:     model.ToolTypeFunction,
		Function: model.FunctionCall{Name: name, Arguments: args},
	}}
	return msg, nil
}

// =============================================================================
// MERGE
// =============================================================================

func (r *Reconciler) merge(cur model.Message, d model.Delta) (model.Message, error) {
	a, ok := cur.(*model.AssistantMessage)
	if !ok {
		return nil, model.Errorf(model.ErrRoleMismatch, "delta.merge",
			"delta for %q targets a %s message", d.ID, cur.MessageRole())
	}

	next := a.Clone()
	changed := false

	if c := deref(d.Content); c != "" {
		next.Content = model.StringPtr(next.Text() + c)
		changed = true
	}

	if call, ok := d.Call(); ok && call.Index != nil && call.Function != nil {
		if r.mergeCall(next, call) {
			changed = true
		}
	}

	if !changed {
		return nil, errNoChange
	}
	return next, nil
}

// mergeCall applies one tool call fragment to msg and reports whether msg
// changed.
func (r *Reconciler) mergeCall(msg *model.AssistantMessage, call model.ToolCallDelta) bool {
	idx := *call.Index
	n := len(msg.ToolCalls)
	fn := call.Function

	switch {
	case idx == n:
		name := deref(fn.Name)
		if call.ID == "" || name == "" {
			r.logger.Debug("discarding partial tool call",
				"message_id", msg.ID, "index", idx, "call_id", call.ID)
			return false
		}
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
			ID:       call.ID,
			Type:     model.ToolTypeFunction,
			Function: model.FunctionCall{Name: name, Arguments: deref(fn.Arguments)},
		})
		return true

	case idx >= 0 && idx < n:
		tc := &msg.ToolCalls[idx]
		changed := false
		if name := deref(fn.Name); name != "" {
			tc.Function.Name = name
			changed = true
		}
		if args := deref(fn.Arguments); args != "" {
			tc.Function.Arguments += args
			changed = true
		}
		return changed

	default:
		r.logger.Warn("discarding unreconcilable tool call delta",
			"message_id", msg.ID, "index", idx, "tool_calls", n)
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
