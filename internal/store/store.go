// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"

	"github.com/jeranaias/streamchat/internal/model"
)

// ErrNotFound is returned by Update when the ID is not in the store.
var ErrNotFound = errors.New("message not found")

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only view of the store at one point in time. Callers
// must not modify Order, Mapping or the messages they reference.
type Snapshot struct {
	Order   []string
	Mapping map[string]model.Message
}

// Len returns the number of messages.
func (s Snapshot) Len() int {
	return len(s.Order)
}

// Get returns the message with the given ID.
func (s Snapshot) Get(id string) (model.Message, bool) {
	msg, ok := s.Mapping[id]
	return msg, ok
}

// Messages returns the messages in order.
func (s Snapshot) Messages() []model.Message {
	out := make([]model.Message, 0, len(s.Order))
	for _, id := range s.Order {
		out = append(out, s.Mapping[id])
	}
	return out
}

// Index returns the position of id in the order, or -1.
func (s Snapshot) Index(id string) int {
	for i, v := range s.Order {
		if v == id {
			return i
		}
	}
	return -1
}

// Observer is notified after every mutation.
type Observer func(Snapshot)

// =============================================================================
// STORE
// =============================================================================

// Store is the ordered message collection of one chat.
type Store struct {
	order   []string
	mapping map[string]model.Message

	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn Observer
}

// New creates an empty store.
func New() *Store {
	return &Store{
		order:   []string{},
		mapping: map[string]model.Message{},
	}
}

// Subscribe registers fn and returns a function that removes it. Observers
// run in registration order.
func (s *Store) Subscribe(fn Observer) func() {
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Order: s.order, Mapping: s.mapping}
}

// Get returns the message with the given ID.
func (s *Store) Get(id string) (model.Message, bool) {
	msg, ok := s.mapping[id]
	return msg, ok
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.order)
}

// Messages returns the messages in order.
func (s *Store) Messages() []model.Message {
	return s.Snapshot().Messages()
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetAll replaces the whole collection. order must list every key of mapping
// exactly once. On error the store is left as it was.
func (s *Store) SetAll(mapping map[string]model.Message, order []string) error {
	const op = "store.SetAll"

	if len(order) != len(mapping) {
		return model.Errorf(model.ErrMalformedMessage, op,
			"order has %d entries but mapping has %d", len(order), len(mapping))
	}

	newOrder := make([]string, len(order))
	newMapping := make(map[string]model.Message, len(mapping))
	for i, id := range order {
		msg, ok := mapping[id]
		if !ok || msg == nil {
			return model.Errorf(model.ErrMalformedMessage, op, "order references unknown id %q", id)
		}
		if msg.MessageID() != id {
			return model.Errorf(model.ErrMalformedMessage, op,
				"mapping key %q holds message %q", id, msg.MessageID())
		}
		if _, dup := newMapping[id]; dup {
			return model.Errorf(model.ErrMalformedMessage, op, "duplicate id %q in order", id)
		}
		newOrder[i] = id
		newMapping[id] = msg
	}

	s.order = newOrder
	s.mapping = newMapping
	s.notify()
	return nil
}

// SetMessages replaces the collection with msgs, in order.
func (s *Store) SetMessages(msgs []model.Message) error {
	mapping := make(map[string]model.Message, len(msgs))
	order := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		mapping[msg.MessageID()] = msg
		order = append(order, msg.MessageID())
	}
	return s.SetAll(mapping, order)
}

// Upsert stores msg under its ID. A new ID is appended to the order; a known
// ID keeps its position.
func (s *Store) Upsert(msg model.Message) error {
	if msg == nil || msg.MessageID() == "" {
		return model.Errorf(model.ErrMalformedMessage, "store.Upsert", "message has no id")
	}
	id := msg.MessageID()

	order := s.order
	if _, exists := s.mapping[id]; !exists {
		order = make([]string, len(s.order), len(s.order)+1)
		copy(order, s.order)
		order = append(order, id)
	}

	mapping := s.cloneMapping()
	mapping[id] = msg

	s.order = order
	s.mapping = mapping
	s.notify()
	return nil
}

// TruncateAfter removes every message after id. It reports whether id was
// found; an unknown id leaves the store untouched.
func (s *Store) TruncateAfter(id string) bool {
	idx := s.Snapshot().Index(id)
	if idx < 0 {
		return false
	}

	order := make([]string, idx+1)
	copy(order, s.order[:idx+1])

	mapping := make(map[string]model.Message, len(order))
	for _, keep := range order {
		mapping[keep] = s.mapping[keep]
	}

	s.order = order
	s.mapping = mapping
	s.notify()
	return true
}

// Update replaces the message with the given ID by the result of fn. fn
// receives the stored value and must not modify it in place; it returns the
// replacement. If fn fails the store is untouched and nobody is notified.
func (s *Store) Update(id string, fn func(model.Message) (model.Message, error)) error {
	cur, ok := s.mapping[id]
	if !ok {
		return ErrNotFound
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil || next.MessageID() != id {
		return model.Errorf(model.ErrMalformedMessage, "store.Update",
			"update of %q returned a message with another id", id)
	}

	mapping := s.cloneMapping()
	mapping[id] = next
	s.mapping = mapping
	s.notify()
	return nil
}

// Clear removes every message.
func (s *Store) Clear() {
	s.order = []string{}
	s.mapping = map[string]model.Message{}
	s.notify()
}

func (s *Store) cloneMapping() map[string]model.Message {
	m := make(map[string]model.Message, len(s.mapping)+1)
	for k, v := range s.mapping {
		m[k] = v
	}
	return m
}

func (s *Store) notify() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, o := range s.observers {
		o.fn(snap)
	}
}
