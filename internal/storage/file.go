// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one JSON file per chat in a directory.
type FileStore struct {
	// BaseDir is the directory holding <id>.json files
	BaseDir string

	// MaxChats limits stored chats (0 = unlimited). The least recently
	// updated chats are removed first.
	MaxChats int
}

// NewFileStore creates a file store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chat directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir, MaxChats: 200}, nil
}

// Save persists a chat and returns its ID.
func (s *FileStore) Save(chat *Chat) (string, error) {
	chat.stamp(time.Now())
	if !validID(chat.ID) {
		return "", ErrInvalidID
	}

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(s.filePath(chat.ID), data, 0600); err != nil {
		return "", err
	}

	if s.MaxChats > 0 {
		s.enforceLimit()
	}
	return chat.ID, nil
}

// Load retrieves a chat by ID.
func (s *FileStore) Load(id string) (*Chat, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("chat %s: %w", id, err)
	}
	return &chat, nil
}

// List returns all saved chats, most recent first. Unreadable files are
// skipped.
func (s *FileStore) List() ([]ChatMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ChatMeta{}, nil
		}
		return nil, err
	}

	metas := []ChatMeta{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		chat, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, chat.Meta())
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search returns the chats whose summary or preview contains query,
// case-insensitively.
func (s *FileStore) Search(query string) ([]ChatMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ChatMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Summary), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// Delete removes a chat by ID.
func (s *FileStore) Delete(id string) error {
	if !validID(id) {
		return ErrInvalidID
	}
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrChatNotFound
		}
		return err
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

// enforceLimit removes the oldest chats if over the limit.
func (s *FileStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxChats {
		return
	}
	// List is newest first
	for _, meta := range metas[s.MaxChats:] {
		s.Delete(meta.ID)
	}
}

func (s *FileStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}
