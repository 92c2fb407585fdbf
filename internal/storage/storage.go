// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CHAT SNAPSHOT
// =============================================================================

// Chat is a persisted chat snapshot.
type Chat struct {
	// Identity
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transcript
	Order   []string                        `json:"order"`
	Mapping map[string]model.PartialMessage `json:"mapping"`

	// Prompt is the unsent user input.
	Prompt Prompt `json:"prompt"`

	// Display and reset state received from the server
	Functions       config.FunctionConfigs `json:"functions,omitempty"`
	DefaultMessages []model.PartialMessage `json:"default_messages,omitempty"`
}

// Prompt is the user's pending input: text plus attached images (data URLs)
// and binary files.
type Prompt struct {
	Text   string              `json:"text"`
	Images []string            `json:"images,omitempty"`
	Files  []model.ContentPart `json:"files,omitempty"`
}

// IsEmpty reports whether there is nothing to send. Whitespace-only text
// counts as empty.
func (p Prompt) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" && len(p.Images) == 0 && len(p.Files) == 0
}

// ChatMeta contains metadata for listing chats.
type ChatMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// Meta returns the listing metadata of the chat.
func (c *Chat) Meta() ChatMeta {
	return ChatMeta{
		ID:           c.ID,
		Summary:      c.Summary,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Order),
		Preview:      util.TruncateRunes(c.firstUserText(), 80),
	}
}

// firstUserText returns the text of the first user message in order.
func (c *Chat) firstUserText() string {
	for _, id := range c.Order {
		pm, ok := c.Mapping[id]
		if !ok || pm.Role != model.RoleUser || pm.Content == nil {
			continue
		}
		if text := pm.Content.PlainText(); text != "" {
			return text
		}
	}
	return ""
}

// Messages converts the transcript in order. Order entries without a
// mapping, repeated entries and messages that cannot be converted are
// skipped; their errors are returned for logging.
func (c *Chat) Messages() ([]model.Message, []error) {
	msgs := make([]model.Message, 0, len(c.Order))
	var dropped []error
	seen := make(map[string]bool, len(c.Order))
	for _, id := range c.Order {
		pm, ok := c.Mapping[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		if pm.ID == "" {
			pm.ID = id
		}
		msg, err := model.FromPartial(pm)
		if err == nil && msg.MessageID() != id {
			err = model.Errorf(model.ErrMalformedMessage, "storage.Chat.Messages",
				"mapping key %q holds message %q", id, msg.MessageID())
		}
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, dropped
}

// summarize derives a one-line summary from the first user message.
func (c *Chat) summarize() string {
	text := c.firstUserText()
	if text == "" {
		return "New chat"
	}
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return util.TruncateRunes(text, 50)
}

// stamp fills the id, summary and timestamps before a save.
func (c *Chat) stamp(now time.Time) {
	if c.ID == "" {
		c.ID = NewChatID()
	}
	if c.Summary == "" {
		c.Summary = c.summarize()
	}
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.Order == nil {
		c.Order = []string{}
	}
	if c.Mapping == nil {
		c.Mapping = map[string]model.PartialMessage{}
	}
}

// NewChatID creates a unique chat ID.
func NewChatID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "chat_" + hex.EncodeToString(b)
}

// validID rejects ids that cannot be used as a file name.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\:`) && id != "." && id != ".."
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store persists chat snapshots.
type Store interface {
	// Save writes the chat, assigning an ID when it has none, and returns the ID.
	Save(chat *Chat) (string, error)
	// Load returns ErrChatNotFound for an unknown ID.
	Load(id string) (*Chat, error)
	// List returns all chats, most recently updated first.
	List() ([]ChatMeta, error)
	// Search returns the chats whose summary or preview contains query,
	// ignoring case.
	Search(query string) ([]ChatMeta, error)
	Delete(id string) error
	Close() error
}

// Open returns the store for the named backend ("file" or "sqlite").
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a chat doesn't exist.
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ErrInvalidID is returned for an ID that cannot be stored.
var ErrInvalidID = &ChatError{Message: "invalid chat id"}

// ChatError represents a chat storage error. It can be compared using
// errors.Is.
type ChatError struct {
	Message string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing chat errors.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatChatList formats chats as a table for the terminal.
func FormatChatList(chats []ChatMeta) string {
	if len(chats) == 0 {
		return "No chats found."
	}

	var sb strings.Builder
	sb.WriteString("Chats:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(util.PadRight("ID", 22) + " " + util.PadRight("Updated", 17) + " " + util.PadRight("Messages", 8) + " Summary\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, c := range chats {
		sb.WriteString(util.PadRight(util.TruncateRunes(c.ID, 22), 22) + " " +
			util.PadRight(c.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(strconv.Itoa(c.MessageCount), 8) + " " +
			util.TruncateWidth(c.Summary, 40) + "\n")
	}
	return sb.String()
}
