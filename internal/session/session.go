// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/delta"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotGenerating is returned for message-set and message-update
	// events that arrive while no generation is running.
	ErrNotGenerating = errors.New("not generating")

	// ErrGenerating is returned by Snapshot while a generation is running.
	ErrGenerating = errors.New("generation in progress")

	// ErrNoUserTurn is returned by RegenerateOnAgentResponse when the turn
	// before the given index is not a user turn.
	ErrNoUserTurn = errors.New("agent turn is not preceded by a user turn")
)

// =============================================================================
// SESSION
// =============================================================================

// Options configures a new Session.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
	// Transport receives outbound commands. Nil drops them.
	Transport Transport
	// Markup renders the projection. Nil renders plain text.
	Markup render.Markup
	// Functions is the initial function display config.
	Functions config.FunctionConfigs
}

// Session is the live state of one chat.
type Session struct {
	id        string
	createdAt time.Time
	logger    *slog.Logger
	transport Transport

	store      *store.Store
	reconciler *delta.Reconciler
	builder    *render.Builder

	defaults []model.PartialMessage
	prompt   storage.Prompt
	notices  Notices

	generating bool
	connected  bool
	dirty      bool

	turns []render.Turn
}

// New creates an empty session for the chat with the given ID.
func New(id string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	transport := opts.Transport
	if transport == nil {
		transport = TransportFunc(func(string, any) error { return nil })
	}

	s := &Session{
		id:         id,
		createdAt:  time.Now(),
		logger:     logger.With("chat", id),
		transport:  transport,
		store:      store.New(),
		reconciler: delta.NewReconciler(logger),
		builder:    render.NewBuilder(opts.Markup, opts.Functions.Normalize()),
	}
	s.store.Subscribe(func(store.Snapshot) {
		s.dirty = true
		s.rebuild()
	})
	s.rebuild()
	return s
}

// ID returns the chat ID.
func (s *Session) ID() string { return s.id }

// Generating reports whether a generation is running.
func (s *Session) Generating() bool { return s.generating }

// Connected reports whether the transport is connected.
func (s *Session) Connected() bool { return s.connected }

// Dirty reports whether state changed since the last MarkSaved.
func (s *Session) Dirty() bool { return s.dirty }

// MarkSaved clears the dirty flag.
func (s *Session) MarkSaved() { s.dirty = false }

// Notices returns the diagnostics list.
func (s *Session) Notices() *Notices { return &s.notices }

// Turns returns the current projection. The result must not be modified.
func (s *Session) Turns() []render.Turn { return s.turns }

// Messages returns the transcript in order.
func (s *Session) Messages() []model.Message { return s.store.Messages() }

// Functions returns the function display config in effect.
func (s *Session) Functions() config.FunctionConfigs { return s.builder.Functions }

// SetMarkup switches the renderer and rebuilds the projection.
func (s *Session) SetMarkup(m render.Markup) {
	s.builder = render.NewBuilder(m, s.builder.Functions)
	s.rebuild()
}

// SetFunctions replaces the function display config.
func (s *Session) SetFunctions(fc config.FunctionConfigs) {
	s.builder.Functions = fc.Normalize()
	s.dirty = true
	s.rebuild()
}

func (s *Session) rebuild() {
	s.turns = s.builder.Build(s.store.Messages(), s.generating)
}

func (s *Session) setGenerating(on bool) {
	if s.generating == on {
		return
	}
	s.generating = on
	s.rebuild()
}

// =============================================================================
// INBOUND EVENTS
// =============================================================================

// Dispatch applies one server event. A problem with the event is recorded as
// a client notice and returned; the store is left untouched.
func (s *Session) Dispatch(ev Event) error {
	err := s.dispatch(ev)
	if err == nil {
		return nil
	}
	s.logger.Warn("event rejected", "event", ev.Type, "error", err)
	s.notices.Add(NoticeClient, model.Reason(err))
	return err
}

func (s *Session) dispatch(ev Event) error {
	switch ev.Type {
	case EventConnect:
		s.connected = true
		s.logger.Info("connected")
		return nil

	case EventDisconnect:
		s.connected = false
		s.logger.Info("disconnected")
		return nil

	case EventConfig:
		var cfg ServerConfig
		if err := decode(ev, &cfg); err != nil {
			return err
		}
		s.applyConfig(cfg)
		return nil

	case EventDefaultMessages:
		msgs, err := s.decodeMessages(ev)
		if err != nil {
			return err
		}
		s.setDefaults(msgs)
		return nil

	case EventSetAll:
		msgs, err := s.decodeMessages(ev)
		if err != nil {
			return err
		}
		return s.setAll(msgs)

	case EventSet:
		if !s.generating {
			return notGenerating(ev)
		}
		var pm model.PartialMessage
		if err := decode(ev, &pm); err != nil {
			return err
		}
		msg, err := model.FromPartial(pm)
		if err != nil {
			return err
		}
		return s.store.Upsert(msg)

	case EventUpdate:
		if !s.generating {
			return notGenerating(ev)
		}
		var d model.Delta
		if err := decode(ev, &d); err != nil {
			return err
		}
		return s.reconciler.Apply(s.store, d)

	case EventGeneratingStarted:
		s.setGenerating(true)
		return nil

	case EventGeneratingDone:
		s.setGenerating(false)
		return nil

	case EventError:
		var text string
		if err := json.Unmarshal(ev.Data, &text); err != nil {
			text = string(ev.Data)
		}
		s.logger.Error("server error", "error", text)
		s.notices.Add(NoticeServer, text)
		s.setGenerating(false)
		return nil

	default:
		s.logger.Debug("unknown event ignored", "event", ev.Type)
		return nil
	}
}

func notGenerating(ev Event) error {
	return model.Errorf(ErrNotGenerating, "session.Dispatch", "%s event arrived while not generating", ev.Type)
}

func decode(ev Event, v any) error {
	if len(ev.Data) == 0 {
		return model.Errorf(model.ErrMalformedMessage, "session.Dispatch", "%s event has no data", ev.Type)
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return model.Errorf(model.ErrMalformedMessage, "session.Dispatch", "%s event: %v", ev.Type, err)
	}
	return nil
}

// decodeMessages decodes a message list one entry at a time. Only the list
// itself has to be well formed; a badly typed entry is dropped.
func (s *Session) decodeMessages(ev Event) ([]model.PartialMessage, error) {
	var raw []json.RawMessage
	if err := decode(ev, &raw); err != nil {
		return nil, err
	}
	return s.partials(raw), nil
}

func (s *Session) partials(raw []json.RawMessage) []model.PartialMessage {
	out := make([]model.PartialMessage, 0, len(raw))
	for i, r := range raw {
		var pm model.PartialMessage
		if err := json.Unmarshal(r, &pm); err != nil {
			s.logger.Debug("message dropped", "index", i, "error", err)
			continue
		}
		out = append(out, pm)
	}
	return out
}

func (s *Session) applyConfig(cfg ServerConfig) {
	s.builder.Functions = cfg.Functions.Normalize()
	s.dirty = true
	s.setDefaults(s.partials(cfg.DefaultMessages))
	s.rebuild()
}

// setDefaults stores the default transcript and applies it to an empty chat.
func (s *Session) setDefaults(msgs []model.PartialMessage) {
	s.defaults = msgs
	if s.store.Len() == 0 && len(msgs) > 0 {
		if err := s.setAll(msgs); err != nil {
			s.notices.Add(NoticeClient, model.Reason(err))
		}
	}
}

func (s *Session) setAll(pms []model.PartialMessage) error {
	msgs, dropped := model.FromPartials(pms)
	for _, err := range dropped {
		s.logger.Debug("message dropped", "error", err)
	}
	return s.store.SetMessages(msgs)
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// SendMessage turns the prompt into a user message and starts generating.
// It does nothing while generating or when the prompt is empty.
func (s *Session) SendMessage() error {
	if s.generating || s.prompt.IsEmpty() {
		return nil
	}
	if err := s.store.Upsert(model.NewUserMessage(promptContent(s.prompt))); err != nil {
		return err
	}
	s.prompt = storage.Prompt{}
	return s.startGenerating()
}

// ChangeUserMessageAndSubmit replaces the text of user message id, drops
// every later message and starts generating. It does nothing while
// generating.
func (s *Session) ChangeUserMessageAndSubmit(id, text string) error {
	if s.generating {
		return nil
	}
	err := s.store.Update(id, func(cur model.Message) (model.Message, error) {
		return withText(cur, text)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("message %q: %w", id, err)
		}
		s.notices.Add(NoticeClient, model.Reason(err))
		return err
	}
	return s.regenerateAfter(id)
}

// RegenerateOnAgentResponse discards the agent turn at turnIndex (and
// everything after it) and generates a new response to the user turn before
// it.
func (s *Session) RegenerateOnAgentResponse(turnIndex int) error {
	if s.generating {
		return nil
	}
	if turnIndex < 1 || turnIndex > len(s.turns) {
		return ErrNoUserTurn
	}
	user, ok := s.turns[turnIndex-1].(*render.UserTurn)
	if !ok {
		return ErrNoUserTurn
	}
	return s.regenerateAfter(user.ID)
}

// StopGenerating clears the generating flag and asks the server to stop.
func (s *Session) StopGenerating() error {
	s.setGenerating(false)
	return s.transport.Send(CommandStopGenerating, nil)
}

// Reset replaces the transcript with the default messages.
func (s *Session) Reset() error {
	return s.setAll(s.defaults)
}

func (s *Session) regenerateAfter(id string) error {
	s.store.TruncateAfter(id)
	return s.startGenerating()
}

func (s *Session) startGenerating() error {
	req := StartGenerating{Messages: model.ToOpenAI(s.store.Messages())}
	if err := s.transport.Send(CommandStartGenerating, req); err != nil {
		s.notices.Add(NoticeClient, model.Reason(err))
		return err
	}
	s.setGenerating(true)
	return nil
}

// withText returns a copy of user message cur with its text replaced.
func withText(cur model.Message, text string) (model.Message, error) {
	const op = "session.ChangeUserMessageAndSubmit"

	u, ok := cur.(*model.UserMessage)
	if !ok {
		return nil, model.Errorf(model.ErrRoleMismatch, op,
			"message %q is a %s message", cur.MessageID(), cur.MessageRole())
	}
	next := u.Clone()
	if !next.Content.IsParts() {
		next.Content.Text = text
		return next, nil
	}
	for i := range next.Content.Parts {
		if next.Content.Parts[i].Type == model.PartText {
			next.Content.Parts[i].Text = text
			return next, nil
		}
	}
	return nil, model.Errorf(model.ErrMalformedMessage, op, "message %q has no text part", u.ID)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() (*storage.Chat, error) {
	if s.generating {
		return nil, ErrGenerating
	}

	snap := s.store.Snapshot()
	chat := &storage.Chat{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		Order:           make([]string, len(snap.Order)),
		Mapping:         make(map[string]model.PartialMessage, len(snap.Order)),
		Prompt:          clonePrompt(s.prompt),
		Functions:       s.builder.Functions.Clone(),
		DefaultMessages: append([]model.PartialMessage(nil), s.defaults...),
	}
	copy(chat.Order, snap.Order)
	for id, msg := range snap.Mapping {
		chat.Mapping[id] = model.ToPartial(msg)
	}
	return chat, nil
}

// Restore replaces the session state with a snapshot. Order entries without
// a message and messages not listed in the order are dropped, as are
// messages that cannot be converted.
func (s *Session) Restore(chat *storage.Chat) error {
	if chat.ID != "" {
		s.id = chat.ID
	}
	if !chat.CreatedAt.IsZero() {
		s.createdAt = chat.CreatedAt
	}
	s.prompt = clonePrompt(chat.Prompt)
	if chat.Functions != nil {
		s.builder.Functions = chat.Functions.Normalize()
	}
	s.defaults = chat.DefaultMessages

	msgs, dropped := chat.Messages()
	for _, err := range dropped {
		s.logger.Debug("message dropped", "error", err)
	}

	s.generating = false
	if err := s.store.SetMessages(msgs); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
