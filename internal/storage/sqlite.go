// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema creates the chat tables. The snapshot body is stored as JSON; the
// listing columns are denormalized so List never decodes it.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
    id TEXT PRIMARY KEY,
    summary TEXT NOT NULL DEFAULT '',
    preview TEXT NOT NULL DEFAULT '',
    message_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps chats in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts a chat and returns its ID.
func (s *SQLiteStore) Save(chat *Chat) (string, error) {
	chat.stamp(time.Now())
	if !validID(chat.ID) {
		return "", ErrInvalidID
	}

	body, err := json.Marshal(chat)
	if err != nil {
		return "", err
	}
	meta := chat.Meta()

	_, err = s.db.Exec(`
		INSERT INTO chats (id, summary, preview, message_count, created_at, updated_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			preview = excluded.preview,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at,
			body = excluded.body`,
		meta.ID, meta.Summary, meta.Preview, meta.MessageCount,
		meta.CreatedAt.UnixNano(), meta.UpdatedAt.UnixNano(), string(body))
	if err != nil {
		return "", fmt.Errorf("failed to save chat %s: %w", chat.ID, err)
	}
	return chat.ID, nil
}

// Load retrieves a chat by ID.
func (s *SQLiteStore) Load(id string) (*Chat, error) {
	var body string
	err := s.db.QueryRow("SELECT body FROM chats WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %s: %w", id, err)
	}

	var chat Chat
	if err := json.Unmarshal([]byte(body), &chat); err != nil {
		return nil, fmt.Errorf("chat %s: %w", id, err)
	}
	return &chat, nil
}

// List returns all chats, most recent first.
func (s *SQLiteStore) List() ([]ChatMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, summary, preview, message_count, created_at, updated_at
		FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	return scanMetas(rows)
}

// Search returns chats whose summary or preview contains query, ignoring
// case, most recently updated first.
func (s *SQLiteStore) Search(query string) ([]ChatMeta, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.Query(`
		SELECT id, summary, preview, message_count, created_at, updated_at
		FROM chats
		WHERE lower(summary) LIKE ? ESCAPE '\' OR lower(preview) LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return scanMetas(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func scanMetas(rows *sql.Rows) ([]ChatMeta, error) {
	defer rows.Close()

	metas := []ChatMeta{}
	for rows.Next() {
		var m ChatMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Summary, &m.Preview, &m.MessageCount, &created, &updated); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Delete removes a chat by ID.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
