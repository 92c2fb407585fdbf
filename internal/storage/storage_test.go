// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func sampleChat(text string) *Chat {
	user := model.TextContent(text)
	reply := model.TextContent("hello")
	return &Chat{
		Order: []string{"u1", "a1"},
		Mapping: map[string]model.PartialMessage{
			"u1": {ID: "u1", Role: model.RoleUser, Content: &user},
			"a1": {ID: "a1", Role: model.RoleAssistant, Content: &reply},
		},
		Prompt: Prompt{Text: "draft"},
		Functions: config.FunctionConfigs{
			"calc": {Result: config.ResultConfig{Type: config.ResultJSON}},
		},
	}
}

// backends runs fn against a fresh store of every kind.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chats.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_SaveAndLoad(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		chat := sampleChat("What is 2+2?")
		id, err := s.Save(chat)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, "chat_"))
		assert.Equal(t, "What is 2+2?", chat.Summary)
		assert.False(t, chat.CreatedAt.IsZero())

		loaded, err := s.Load(id)
		require.NoError(t, err)
		assert.Equal(t, chat.Order, loaded.Order)
		assert.Equal(t, "What is 2+2?", loaded.Mapping["u1"].Content.PlainText())
		assert.Equal(t, model.RoleAssistant, loaded.Mapping["a1"].Role)
		assert.Equal(t, "draft", loaded.Prompt.Text)
		assert.Equal(t, config.ResultJSON, loaded.Functions["calc"].Result.Type)
		assert.True(t, chat.UpdatedAt.Equal(loaded.UpdatedAt))
	})
}

func TestStore_SaveKeepsID(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		chat := sampleChat("first")
		chat.ID = "fixed"
		_, err := s.Save(chat)
		require.NoError(t, err)

		chat.Order = []string{"u1"}
		delete(chat.Mapping, "a1")
		_, err = s.Save(chat)
		require.NoError(t, err)

		metas, err := s.List()
		require.NoError(t, err)
		require.Len(t, metas, 1)
		assert.Equal(t, "fixed", metas[0].ID)
		assert.Equal(t, 1, metas[0].MessageCount)
	})
}

func TestStore_LoadNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Load("missing")
		assert.True(t, errors.Is(err, ErrChatNotFound))
	})
}

func TestStore_Delete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		id, err := s.Save(sampleChat("bye"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(id))
		_, err = s.Load(id)
		assert.True(t, errors.Is(err, ErrChatNotFound))
		assert.True(t, errors.Is(s.Delete(id), ErrChatNotFound))
	})
}

func TestStore_ListNewestFirst(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		old := sampleChat("older")
		_, err := s.Save(old)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = s.Save(sampleChat("newer"))
		require.NoError(t, err)

		metas, err := s.List()
		require.NoError(t, err)
		require.Len(t, metas, 2)
		assert.Equal(t, "newer", metas[0].Summary)
		assert.Equal(t, "older", metas[1].Preview)
		assert.Equal(t, 2, metas[1].MessageCount)
	})
}

func TestStore_EmptyChat(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		id, err := s.Save(&Chat{})
		require.NoError(t, err)

		loaded, err := s.Load(id)
		require.NoError(t, err)
		assert.Equal(t, "New chat", loaded.Summary)
		assert.Empty(t, loaded.Order)
		assert.NotNil(t, loaded.Mapping)
	})
}

// =============================================================================
// FILE STORE SPECIFICS
// =============================================================================

func TestFileStore_RejectsPathIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	chat := sampleChat("x")
	chat.ID = "../escape"
	_, err = s.Save(chat)
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, err = s.Load("a/b")
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestFileStore_EnforceLimit(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	s.MaxChats = 2

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.Save(sampleChat(text))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "three", metas[0].Summary)
	assert.Equal(t, "two", metas[1].Summary)
}

func TestStore_Search(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save(sampleChat("Plot the Sales data"))
		require.NoError(t, err)
		_, err = s.Save(sampleChat("unrelated"))
		require.NoError(t, err)
		_, err = s.Save(sampleChat("100% done"))
		require.NoError(t, err)

		results, err := s.Search("sales")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Plot the Sales data", results[0].Summary)

		results, err = s.Search("0%")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "100% done", results[0].Summary)
	})
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestChat_SummaryFlattensNewlines(t *testing.T) {
	chat := sampleChat("line one\r\nline two")
	chat.stamp(time.Now())
	assert.Equal(t, "line one line two", chat.Summary)
}

func TestOpen(t *testing.T) {
	s, err := Open("file", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("redis", t.TempDir())
	assert.Error(t, err)
}

func TestChatError_Is(t *testing.T) {
	err := &ChatError{Message: "chat not found"}
	assert.True(t, errors.Is(err, ErrChatNotFound))
	assert.False(t, errors.Is(err, ErrInvalidID))
	assert.False(t, errors.Is(errors.New("chat not found"), ErrChatNotFound))
}

func TestFormatChatList(t *testing.T) {
	assert.Equal(t, "No chats found.", FormatChatList(nil))

	out := FormatChatList([]ChatMeta{{
		ID:           "chat_0123456789abcdef",
		Summary:      "Plot the data",
		UpdatedAt:    time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		MessageCount: 4,
	}})
	assert.Contains(t, out, "chat_0123456789abcdef")
	assert.Contains(t, out, "2025-01-02 03:04")
	assert.Contains(t, out, "Plot the data")
}
