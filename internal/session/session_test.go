// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type sent struct {
	command string
	data    any
}

type fakeTransport struct {
	sent []sent
	err  error
}

func (f *fakeTransport) Send(command string, data any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{command, data})
	return nil
}

func (f *fakeTransport) last(t *testing.T) sent {
	t.Helper()
	require.NotEmpty(t, f.sent, "nothing was sent")
	return f.sent[len(f.sent)-1]
}

func newTestSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	return New("chat_test", Options{Transport: tr}), tr
}

func event(t *testing.T, typ EventType, data string) Event {
	t.Helper()
	if data == "" {
		return Event{Type: typ}
	}
	return Event{Type: typ, Data: json.RawMessage(data)}
}

func dispatch(t *testing.T, s *Session, typ EventType, data string) error {
	t.Helper()
	return s.Dispatch(event(t, typ, data))
}

func ids(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.MessageID()
	}
	return out
}

const fiveMessages = `[
	{"id":"u1","role":"user","content":"old"},
	{"id":"a1","role":"assistant","content":null,"tool_calls":[{"id":"c1","type":"function","function":{"name":"f","arguments":"{}"}}]},
	{"id":"t1","role":"tool","tool_call_id":"c1","content":"42"},
	{"id":"u2","role":"user","content":"again"},
	{"id":"a2","role":"assistant","content":"ok"}
]`

// =============================================================================
// DISPATCH TESTS
// =============================================================================

func TestDispatch_SetAll(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, fiveMessages))

	assert.Equal(t, []string{"u1", "a1", "t1", "u2", "a2"}, ids(s.Messages()))
	require.Len(t, s.Turns(), 4)
	agent := s.Turns()[1].(*render.AgentTurn)
	call := agent.Parts[0].(*render.ToolCallPart)
	require.NotNil(t, call.Result)
	assert.Equal(t, "42", *call.Result)
	assert.Equal(t, render.StatusComplete, call.Status)
	assert.True(t, s.Dirty())
}

func TestDispatch_SetAllDropsInvalid(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, `[
		{"id":"u1","role":"user","content":"hi"},
		{"id":"t1","role":"tool","content":"no call id"}
	]`))
	assert.Equal(t, []string{"u1"}, ids(s.Messages()))
	assert.Zero(t, s.Notices().Len())
}

func TestDispatch_SetAllDropsBadlyTypedEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"object arguments", `{"id":"a1","role":"assistant","content":null,"tool_calls":[{"id":"c1","type":"function","function":{"name":"f","arguments":{"a":1}}}]}`},
		{"numeric tool call id", `{"id":"t1","role":"tool","tool_call_id":7,"content":"42"}`},
		{"numeric content", `{"id":"a1","role":"assistant","content":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t)
			payload := `[{"id":"u1","role":"user","content":"hi"},` + tt.entry + `,{"id":"u2","role":"user","content":"again"}]`

			require.NoError(t, dispatch(t, s, EventSetAll, payload))
			assert.Equal(t, []string{"u1", "u2"}, ids(s.Messages()))
			assert.Zero(t, s.Notices().Len())
		})
	}
}

func TestDispatch_DefaultsDropBadlyTypedEntry(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventDefaultMessages,
		`[{"id":"sys","role":"system","content":"be brief"},{"id":"a1","role":"assistant","content":12},{"id":"hello","role":"assistant","content":"Hi!"}]`))
	assert.Equal(t, []string{"sys", "hello"}, ids(s.Messages()))

	s, _ = newTestSession(t)
	require.NoError(t, dispatch(t, s, EventConfig,
		`{"default_messages":[{"id":"t1","role":"tool","tool_call_id":7,"content":"x"},{"id":"hello","role":"assistant","content":"Hi!"}]}`))
	assert.Equal(t, []string{"hello"}, ids(s.Messages()))
	assert.Zero(t, s.Notices().Len())
}

func TestDispatch_StreamingDeltas(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, `[{"id":"u1","role":"user","content":"hi"}]`))
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))

	// placeholder agent turn with the cursor
	require.Len(t, s.Turns(), 2)
	placeholder := s.Turns()[1].(*render.AgentTurn)
	require.Len(t, placeholder.Parts, 1)
	assert.True(t, placeholder.Parts[0].(*render.ContentPart).Cursor)

	require.NoError(t, dispatch(t, s, EventUpdate, `{"id":"a1","role":"assistant","content":"Hel"}`))
	require.NoError(t, dispatch(t, s, EventUpdate, `{"id":"a1","content":"lo"}`))

	agent := s.Turns()[1].(*render.AgentTurn)
	part := agent.Parts[0].(*render.ContentPart)
	assert.Equal(t, "Hello", part.Source)
	assert.True(t, part.Cursor)
	assert.Equal(t, "Hello"+render.CursorGlyph, part.Markup)

	require.NoError(t, dispatch(t, s, EventGeneratingDone, ""))
	part = s.Turns()[1].(*render.AgentTurn).Parts[0].(*render.ContentPart)
	assert.False(t, part.Cursor)
	assert.Equal(t, "Hello", part.Markup)
}

func TestDispatch_ToolCallStreaming(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	require.NoError(t, dispatch(t, s, EventUpdate,
		`{"id":"a1","tool_calls":[{"index":0,"id":"c1","type":"function","function":{"name":"calc","arguments":"{\"a\":"}}]}`))
	require.NoError(t, dispatch(t, s, EventUpdate,
		`{"id":"a1","tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}`))

	msg, ok := s.store.Get("a1")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, msg.(*model.AssistantMessage).ToolCalls[0].Function.Arguments)

	part := s.Turns()[0].(*render.AgentTurn).Parts[0].(*render.ToolCallPart)
	assert.Equal(t, render.StatusProgress, part.Status)

	require.NoError(t, dispatch(t, s, EventSet, `{"id":"t1","role":"tool","tool_call_id":"c1","content":"2"}`))
	part = s.Turns()[0].(*render.AgentTurn).Parts[0].(*render.ToolCallPart)
	assert.Equal(t, render.StatusComplete, part.Status)
}

func TestDispatch_RejectsWhenNotGenerating(t *testing.T) {
	s, _ := newTestSession(t)

	err := dispatch(t, s, EventUpdate, `{"id":"a1","content":"late"}`)
	assert.True(t, errors.Is(err, ErrNotGenerating))
	err = dispatch(t, s, EventSet, `{"id":"a1","role":"assistant","content":"late"}`)
	assert.True(t, errors.Is(err, ErrNotGenerating))

	err = dispatch(t, s, EventUpdate, `{"id":"a1","content":"later"}`)
	assert.True(t, errors.Is(err, ErrNotGenerating))

	assert.Zero(t, s.store.Len())
	items := s.Notices().Items()
	require.Len(t, items, 2, "one notice per event type")
	assert.Equal(t, NoticeClient, items[0].Kind)
	assert.Equal(t, "message-update event arrived while not generating", items[0].Text)
	assert.Equal(t, "message-set event arrived while not generating", items[1].Text)
}

func TestDispatch_InvalidDeltaIsNoticed(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))

	err := dispatch(t, s, EventUpdate, `{"content":"no id"}`)
	assert.True(t, errors.Is(err, model.ErrInvalidDelta))
	err = dispatch(t, s, EventUpdate, `{"content":"no id"}`)
	assert.True(t, errors.Is(err, model.ErrInvalidDelta))

	require.Equal(t, 1, s.Notices().Len(), "notices are deduplicated by text")
	assert.Equal(t, NoticeClient, s.Notices().Items()[0].Kind)
	assert.Equal(t, "delta has no id", s.Notices().Items()[0].Text)
	assert.Zero(t, s.store.Len())
}

func TestDispatch_RoleMismatch(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, `[{"id":"u1","role":"user","content":"hi"}]`))
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))

	err := dispatch(t, s, EventUpdate, `{"id":"u1","content":"x"}`)
	assert.True(t, errors.Is(err, model.ErrRoleMismatch))
	assert.Equal(t, "hi", s.Messages()[0].(*model.UserMessage).Content.PlainText())
}

func TestDispatch_MalformedPayload(t *testing.T) {
	s, _ := newTestSession(t)
	err := dispatch(t, s, EventSetAll, `{"not":"a list"}`)
	assert.True(t, errors.Is(err, model.ErrMalformedMessage))
	assert.Equal(t, 1, s.Notices().Len())
}

func TestDispatch_ServerError(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	require.NoError(t, dispatch(t, s, EventError, `"ValueError: bad input"`))

	assert.False(t, s.Generating())
	items := s.Notices().Items()
	require.Len(t, items, 1)
	assert.Equal(t, NoticeServer, items[0].Kind)
	assert.Equal(t, "ValueError: bad input", items[0].Text)
}

func TestDispatch_ConnectDisconnect(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventConnect, ""))
	assert.True(t, s.Connected())
	require.NoError(t, dispatch(t, s, EventDisconnect, ""))
	assert.False(t, s.Connected())
}

func TestDispatch_ConfigAppliesDefaults(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventConfig, `{
		"functions": {"calc": {"header": {"text": "Calculating"}, "result": {"type": "JSON"}}},
		"default_messages": [{"id":"sys","role":"system","content":"be brief"},{"id":"hello","role":"assistant","content":"Hi!"}]
	}`))

	assert.Equal(t, []string{"sys", "hello"}, ids(s.Messages()))
	assert.Equal(t, "json", s.Functions()["calc"].Result.Type)

	// defaults never overwrite an existing transcript
	require.NoError(t, dispatch(t, s, EventSetAll, `[{"id":"u1","role":"user","content":"q"}]`))
	require.NoError(t, dispatch(t, s, EventDefaultMessages, `[{"id":"other","role":"assistant","content":"x"}]`))
	assert.Equal(t, []string{"u1"}, ids(s.Messages()))

	require.NoError(t, s.Reset())
	assert.Equal(t, []string{"other"}, ids(s.Messages()))
}

// =============================================================================
// USER ACTION TESTS
// =============================================================================

func TestSendMessage_PlainText(t *testing.T) {
	s, tr := newTestSession(t)
	s.SetPromptText("hello")
	require.NoError(t, s.SendMessage())

	assert.True(t, s.Generating())
	assert.True(t, s.Prompt().IsEmpty())
	require.Equal(t, 1, s.store.Len())
	u := s.Messages()[0].(*model.UserMessage)
	assert.False(t, u.Content.IsParts())
	assert.Equal(t, "hello", u.Content.Text)

	last := tr.last(t)
	assert.Equal(t, CommandStartGenerating, last.command)
	data, err := json.Marshal(last.data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":[{"role":"user","content":"hello"}]}`, string(data))
}

func TestSendMessage_PartsOrder(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetPromptText("describe")
	s.AddImage("data:image/png;base64,AA==")
	s.AddFile("a.csv", "text/csv", []byte("1,2"))
	require.NoError(t, s.SendMessage())

	u := s.Messages()[0].(*model.UserMessage)
	require.True(t, u.Content.IsParts())
	require.Len(t, u.Content.Parts, 3)
	assert.Equal(t, model.PartBinary, u.Content.Parts[0].Type)
	assert.Equal(t, model.PartImage, u.Content.Parts[1].Type)
	assert.Equal(t, model.PartText, u.Content.Parts[2].Type)
}

func TestSendMessage_Ignored(t *testing.T) {
	s, tr := newTestSession(t)

	s.SetPromptText("   ")
	require.NoError(t, s.SendMessage())
	assert.Empty(t, tr.sent)

	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	s.SetPromptText("hello")
	require.NoError(t, s.SendMessage())
	assert.Empty(t, tr.sent)
	assert.Equal(t, "hello", s.Prompt().Text)
}

func TestSendMessage_TransportFailure(t *testing.T) {
	s, tr := newTestSession(t)
	tr.err = errors.New("not connected")
	s.SetPromptText("hello")

	assert.Error(t, s.SendMessage())
	assert.False(t, s.Generating())
	assert.Equal(t, 1, s.Notices().Len())
}

func TestChangeUserMessageAndSubmit_Truncates(t *testing.T) {
	s, tr := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, fiveMessages))

	require.NoError(t, s.ChangeUserMessageAndSubmit("u1", "new text"))

	assert.Equal(t, []string{"u1"}, ids(s.Messages()))
	last := tr.last(t)
	assert.Equal(t, CommandStartGenerating, last.command)
	req := last.data.(StartGenerating)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "new text", req.Messages[0].Content.PlainText())
	assert.True(t, s.Generating())
}

func TestChangeUserMessageAndSubmit_PartsContent(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll,
		`[{"id":"u1","role":"user","content":[{"type":"image_url","image_url":{"url":"x"}},{"type":"text","text":"old"}]}]`))

	require.NoError(t, s.ChangeUserMessageAndSubmit("u1", "new"))
	u := s.Messages()[0].(*model.UserMessage)
	assert.Equal(t, "new", u.Content.Parts[1].Text)
	assert.Equal(t, "x", u.Content.Parts[0].ImageURL.URL)
}

func TestChangeUserMessageAndSubmit_NotUser(t *testing.T) {
	s, tr := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, fiveMessages))

	err := s.ChangeUserMessageAndSubmit("a2", "x")
	assert.True(t, errors.Is(err, model.ErrRoleMismatch))
	assert.Len(t, s.Messages(), 5)
	assert.Empty(t, tr.sent)
	assert.Equal(t, 1, s.Notices().Len())
}

func TestRegenerateOnAgentResponse(t *testing.T) {
	s, tr := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, fiveMessages))

	assert.True(t, errors.Is(s.RegenerateOnAgentResponse(0), ErrNoUserTurn))
	assert.True(t, errors.Is(s.RegenerateOnAgentResponse(2), ErrNoUserTurn))

	require.NoError(t, s.RegenerateOnAgentResponse(3))
	assert.Equal(t, []string{"u1", "a1", "t1", "u2"}, ids(s.Messages()))
	assert.Equal(t, CommandStartGenerating, tr.last(t).command)
}

func TestStopGenerating(t *testing.T) {
	s, tr := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	require.NoError(t, s.StopGenerating())

	assert.False(t, s.Generating())
	assert.Equal(t, CommandStopGenerating, tr.last(t).command)
}

// =============================================================================
// PROMPT TESTS
// =============================================================================

func TestSetPromptText_NFC(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetPromptText("cafe\u0301")
	assert.Equal(t, "caf\u00e9", s.Prompt().Text)
}

func TestAttach(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "dot.png")
	csv := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0644))
	require.NoError(t, os.WriteFile(csv, []byte("a,b\n"), 0644))

	s, _ := newTestSession(t)
	require.NoError(t, s.Attach(img))
	require.NoError(t, s.Attach(csv))
	assert.Error(t, s.Attach(dir))

	p := s.Prompt()
	require.Len(t, p.Images, 1)
	assert.Contains(t, p.Images[0], "data:image/png;base64,")
	require.Len(t, p.Files, 1)
	assert.Equal(t, "data.csv", p.Files[0].Name)
	assert.Equal(t, []byte("a,b\n"), p.Files[0].Data)

	s.RemoveImage(0)
	s.RemoveFile(0)
	assert.True(t, s.Prompt().IsEmpty())
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestSnapshot_RefusedWhileGenerating(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	_, err := s.Snapshot()
	assert.True(t, errors.Is(err, ErrGenerating))
}

func TestSnapshot_RestoreRoundTrip(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, dispatch(t, s, EventSetAll, fiveMessages))
	s.SetPromptText("draft")

	chat, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "chat_test", chat.ID)
	assert.Len(t, chat.Mapping, 5)

	r, _ := newTestSession(t)
	require.NoError(t, r.Restore(chat))
	assert.Equal(t, ids(s.Messages()), ids(r.Messages()))
	assert.Equal(t, s.Messages(), r.Messages())
	assert.Equal(t, "draft", r.Prompt().Text)
	assert.False(t, r.Dirty())
	assert.Len(t, r.Turns(), 4)
}

func TestRestore_FiltersOrderAndMapping(t *testing.T) {
	hi := model.TextContent("hi")
	chat := &storage.Chat{
		ID:    "c",
		Order: []string{"u1", "ghost", "u1", "bad"},
		Mapping: map[string]model.PartialMessage{
			"u1":     {Role: model.RoleUser, Content: &hi},
			"orphan": {ID: "orphan", Role: model.RoleUser, Content: &hi},
			"bad":    {ID: "bad", Role: model.RoleTool, Content: &hi},
		},
	}

	s, _ := newTestSession(t)
	require.NoError(t, s.Restore(chat))
	assert.Equal(t, []string{"u1"}, ids(s.Messages()))
	assert.Equal(t, "c", s.ID())
}

// =============================================================================
// AUTOSAVE TESTS
// =============================================================================

func TestAutosaver(t *testing.T) {
	st, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	s, _ := newTestSession(t)
	a := NewAutosaver(s, st, time.Second, nil)
	now := time.Now()

	saved, err := a.Check(now.Add(2 * time.Second))
	require.NoError(t, err)
	assert.False(t, saved, "clean session is not saved")

	require.NoError(t, dispatch(t, s, EventSetAll, `[{"id":"u1","role":"user","content":"hi"}]`))
	assert.False(t, a.ShouldSave(now), "interval has not passed")

	saved, err = a.Check(now.Add(2 * time.Second))
	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, s.Dirty())

	chat, err := st.Load("chat_test")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, chat.Order)

	require.NoError(t, dispatch(t, s, EventGeneratingStarted, ""))
	s.SetPromptText("more")
	assert.False(t, a.ShouldSave(now.Add(time.Hour)), "never saves while generating")
	assert.True(t, errors.Is(a.Flush(), ErrGenerating))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3 * time.Minute, "3m"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNotices(t *testing.T) {
	var n Notices
	assert.True(t, n.Add(NoticeServer, "a"))
	assert.False(t, n.Add(NoticeClient, "a"))
	assert.True(t, n.Add(NoticeClient, "b"))
	n.Remove("a")
	require.Equal(t, 1, n.Len())
	assert.Equal(t, "b", n.Items()[0].Text)
	assert.Equal(t, "Client", n.Items()[0].Kind.String())
	n.Clear()
	assert.Zero(t, n.Len())
}
