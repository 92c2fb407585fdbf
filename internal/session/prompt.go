// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/storage"
)

// MaxAttachmentSize bounds files attached to a prompt.
const MaxAttachmentSize = 20 << 20

// =============================================================================
// PROMPT EDITING
// =============================================================================

// Prompt returns a copy of the pending input.
func (s *Session) Prompt() storage.Prompt {
	return clonePrompt(s.prompt)
}

// SetPromptText replaces the prompt text. Text is stored in Unicode NFC form.
func (s *Session) SetPromptText(text string) {
	text = norm.NFC.String(text)
	if text == s.prompt.Text {
		return
	}
	s.prompt.Text = text
	s.dirty = true
}

// AddImage attaches an image given as a URL (usually a data URL).
func (s *Session) AddImage(url string) {
	s.prompt.Images = append(s.prompt.Images, url)
	s.dirty = true
}

// AddFile attaches a binary file.
func (s *Session) AddFile(name, fileType string, data []byte) {
	s.prompt.Files = append(s.prompt.Files, model.BinaryPart(name, fileType, data))
	s.dirty = true
}

// Attach reads a file from disk and attaches it. Images become data URLs,
// everything else a binary part.
func (s *Session) Attach(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return fmt.Errorf("%s is larger than %d MB", path, MaxAttachmentSize>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fileType := mime.TypeByExtension(filepath.Ext(path))
	if fileType == "" {
		fileType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(fileType, ';'); i >= 0 {
		fileType = fileType[:i]
	}

	if strings.HasPrefix(fileType, "image/") {
		s.AddImage("data:" + fileType + ";base64," + base64.StdEncoding.EncodeToString(data))
		return nil
	}
	s.AddFile(filepath.Base(path), fileType, data)
	return nil
}

// RemoveImage detaches the image at index i.
func (s *Session) RemoveImage(i int) {
	if i < 0 || i >= len(s.prompt.Images) {
		return
	}
	s.prompt.Images = append(s.prompt.Images[:i:i], s.prompt.Images[i+1:]...)
	s.dirty = true
}

// RemoveFile detaches the file at index i.
func (s *Session) RemoveFile(i int) {
	if i < 0 || i >= len(s.prompt.Files) {
		return
	}
	s.prompt.Files = append(s.prompt.Files[:i:i], s.prompt.Files[i+1:]...)
	s.dirty = true
}

// ClearPrompt empties the pending input.
func (s *Session) ClearPrompt() {
	if s.prompt.IsEmpty() && s.prompt.Text == "" {
		return
	}
	s.prompt = storage.Prompt{}
	s.dirty = true
}

// promptContent builds user message content from a prompt: plain text when
// the prompt is only text, otherwise files, images and then the text.
func promptContent(p storage.Prompt) model.Content {
	hasText := strings.TrimSpace(p.Text) != ""
	if hasText && len(p.Files) == 0 && len(p.Images) == 0 {
		return model.TextContent(p.Text)
	}

	parts := make([]model.ContentPart, 0, len(p.Files)+len(p.Images)+1)
	parts = append(parts, p.Files...)
	for _, url := range p.Images {
		parts = append(parts, model.ImagePart(url))
	}
	if hasText {
		parts = append(parts, model.TextPart(p.Text))
	}
	return model.PartsContent(parts...)
}

func clonePrompt(p storage.Prompt) storage.Prompt {
	out := storage.Prompt{Text: p.Text}
	if len(p.Images) > 0 {
		out.Images = append([]string(nil), p.Images...)
	}
	if len(p.Files) > 0 {
		out.Files = append([]model.ContentPart(nil), p.Files...)
	}
	return out
}
