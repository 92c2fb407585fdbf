// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/model"
)

func user(id, text string) *model.UserMessage {
	return &model.UserMessage{ID: id, Content: model.TextContent(text)}
}

func assistant(id, text string) *model.AssistantMessage {
	return &model.AssistantMessage{ID: id, Content: model.StringPtr(text)}
}

// requireConsistent checks that order and mapping describe the same ids.
func requireConsistent(t *testing.T, snap Snapshot) {
	t.Helper()
	require.Equal(t, len(snap.Order), len(snap.Mapping))
	for _, id := range snap.Order {
		msg, ok := snap.Mapping[id]
		require.True(t, ok, "order id %q missing from mapping", id)
		require.Equal(t, id, msg.MessageID())
	}
}

// =============================================================================
// SET ALL
// =============================================================================

func TestSetAll(t *testing.T) {
	s := New()
	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) {
		requireConsistent(t, snap)
		seen = append(seen, snap)
	})

	err := s.SetAll(map[string]model.Message{
		"u1": user("u1", "hi"),
		"a1": assistant("a1", "hello"),
	}, []string{"u1", "a1"})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, []string{"u1", "a1"}, seen[0].Order)
}

func TestSetAll_RejectsInconsistentInput(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[string]model.Message
		order   []string
	}{
		{"length mismatch", map[string]model.Message{"u1": user("u1", "")}, []string{"u1", "u2"}},
		{"unknown id", map[string]model.Message{"u1": user("u1", "")}, []string{"u2"}},
		{"duplicate id", map[string]model.Message{"u1": user("u1", ""), "u2": user("u2", "")}, []string{"u1", "u1"}},
		{"key mismatch", map[string]model.Message{"u1": user("u2", "")}, []string{"u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			require.NoError(t, s.Upsert(user("keep", "x")))

			notified := false
			s.Subscribe(func(Snapshot) { notified = true })

			err := s.SetAll(tt.mapping, tt.order)
			assert.True(t, errors.Is(err, model.ErrMalformedMessage), "got %v", err)
			assert.False(t, notified)
			assert.Equal(t, []string{"keep"}, s.Snapshot().Order)
		})
	}
}

func TestSetAll_CopiesInput(t *testing.T) {
	s := New()
	order := []string{"u1"}
	mapping := map[string]model.Message{"u1": user("u1", "")}
	require.NoError(t, s.SetAll(mapping, order))

	order[0] = "changed"
	delete(mapping, "u1")

	requireConsistent(t, s.Snapshot())
	assert.Equal(t, []string{"u1"}, s.Snapshot().Order)
}

// =============================================================================
// UPSERT
// =============================================================================

func TestUpsert(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(user("u1", "a")))
	require.NoError(t, s.Upsert(assistant("a1", "b")))
	require.NoError(t, s.Upsert(user("u1", "edited")))

	snap := s.Snapshot()
	requireConsistent(t, snap)
	assert.Equal(t, []string{"u1", "a1"}, snap.Order)

	msg, _ := snap.Get("u1")
	assert.Equal(t, "edited", msg.(*model.UserMessage).Content.PlainText())
}

func TestUpsert_RejectsMissingID(t *testing.T) {
	s := New()
	err := s.Upsert(user("", "x"))
	assert.True(t, errors.Is(err, model.ErrMalformedMessage))
	assert.Equal(t, 0, s.Len())
}

func TestSnapshot_IsNotAffectedByLaterMutations(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(user("u1", "a")))
	before := s.Snapshot()

	require.NoError(t, s.Upsert(assistant("a1", "b")))
	s.TruncateAfter("u1")
	require.NoError(t, s.Upsert(user("u1", "changed")))

	assert.Equal(t, []string{"u1"}, before.Order)
	msg, _ := before.Get("u1")
	assert.Equal(t, "a", msg.(*model.UserMessage).Content.PlainText())
}

// =============================================================================
// TRUNCATE
// =============================================================================

func TestTruncateAfter(t *testing.T) {
	ids := []string{"u1", "a1", "t1", "u2", "a2"}

	for k, id := range ids {
		t.Run(id, func(t *testing.T) {
			s := New()
			for _, v := range ids {
				require.NoError(t, s.Upsert(user(v, v)))
			}

			require.True(t, s.TruncateAfter(id))
			snap := s.Snapshot()
			requireConsistent(t, snap)
			assert.Equal(t, k+1, snap.Len())
			assert.Equal(t, ids[:k+1], snap.Order)
		})
	}
}

func TestTruncateAfter_UnknownID(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(user("u1", "")))

	notified := false
	s.Subscribe(func(Snapshot) { notified = true })

	assert.False(t, s.TruncateAfter("nope"))
	assert.False(t, notified)
	assert.Equal(t, 1, s.Len())
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(assistant("a1", "he")))

	err := s.Update("a1", func(m model.Message) (model.Message, error) {
		next := m.(*model.AssistantMessage).Clone()
		next.Content = model.StringPtr(next.Text() + "llo")
		return next, nil
	})
	require.NoError(t, err)

	msg, _ := s.Get("a1")
	assert.Equal(t, "hello", msg.(*model.AssistantMessage).Text())
}

func TestUpdate_FailureLeavesStoreUntouched(t *testing.T) {
	s := New()
	orig := assistant("a1", "he")
	require.NoError(t, s.Upsert(orig))

	notified := false
	s.Subscribe(func(Snapshot) { notified = true })

	boom := errors.New("boom")
	err := s.Update("a1", func(model.Message) (model.Message, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, notified)

	msg, _ := s.Get("a1")
	assert.Same(t, orig, msg)
}

func TestUpdate_UnknownID(t *testing.T) {
	s := New()
	err := s.Update("a1", func(m model.Message) (model.Message, error) { return m, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_RejectsIDChange(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(assistant("a1", "")))
	err := s.Update("a1", func(model.Message) (model.Message, error) {
		return assistant("other", ""), nil
	})
	assert.True(t, errors.Is(err, model.ErrMalformedMessage))
}

// =============================================================================
// OBSERVERS
// =============================================================================

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := New()
	var calls []string
	unA := s.Subscribe(func(Snapshot) { calls = append(calls, "a") })
	s.Subscribe(func(Snapshot) { calls = append(calls, "b") })

	require.NoError(t, s.Upsert(user("u1", "")))
	unA()
	require.NoError(t, s.Upsert(user("u2", "")))

	assert.Equal(t, []string{"a", "b", "b"}, calls)
}
