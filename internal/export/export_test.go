// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/storage"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleChat() *storage.Chat {
	question := model.TextContent("Plot the <sales> data")
	answer := model.TextContent("Here is the plot:\n\n```python\nprint(1)\n```")
	result := model.TextContent("figure saved")

	return &storage.Chat{
		ID:        "chat_test",
		Summary:   "Plot the <sales> data",
		CreatedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow,
		Order:     []string{"u1", "a1", "t1"},
		Mapping: map[string]model.PartialMessage{
			"u1": {ID: "u1", Role: model.RoleUser, Content: &question},
			"a1": {ID: "a1", Role: model.RoleAssistant, Content: &answer, ToolCalls: []model.ToolCall{{
				ID:       "c1",
				Type:     model.ToolTypeFunction,
				Function: model.FunctionCall{Name: "run_python", Arguments: `{"code":"plot()"}`},
			}}},
			"t1": {ID: "t1", Role: model.RoleTool, ToolCallID: "c1", Content: &result},
		},
		Functions: config.FunctionConfigs{
			"run_python": {
				Header:    config.HeaderConfig{Text: "Running code"},
				Arguments: config.ArgumentsConfig{ShowKeyAsCode: &config.CodeKeyConfig{Key: "code", Language: "python"}},
			},
		},
	}
}

// =============================================================================
// FORMAT SELECTION
// =============================================================================

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"md": ".md", "markdown": ".md", "HTML": ".html", "json": ".json"} {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, exp.FileExtension(), format)
	}

	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleChat())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: \"Plot the <sales> data\"\nchat: chat_test\n"))
	assert.Contains(t, md, "exported: 2025-03-14T09:26:53Z")
	assert.Contains(t, md, "### You\n\nPlot the <sales> data")
	assert.Contains(t, md, "```python\nprint(1)\n```")
	assert.Contains(t, md, "Running code")
	assert.Contains(t, md, "```python\nplot()\n```")
	assert.Contains(t, md, "```\nfigure saved\n```")
}

func TestMarkdownExporter_EmptyChat(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&storage.Chat{ID: "empty"})
	assert.True(t, errors.Is(err, ErrEmptyChat))
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain title", escapeYAML("plain title"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}

// =============================================================================
// HTML
// =============================================================================

func TestHTMLExporter_EscapesUserText(t *testing.T) {
	out, err := NewHTMLExporter(testOptions()).Export(sampleChat())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>Plot the &lt;sales&gt; data</title>")
	assert.Contains(t, page, `<p class="user-text">Plot the &lt;sales&gt; data</p>`)
	assert.NotContains(t, page, "<sales>")
}

func TestHTMLExporter_ToolCall(t *testing.T) {
	out, err := NewHTMLExporter(testOptions()).Export(sampleChat())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<div class="tool-call complete" data-function="run_python">`)
	assert.Contains(t, page, `<pre class="tool-result">figure saved</pre>`)
	assert.Contains(t, page, "lang-banner")
	assert.Contains(t, page, `<body class="dark-theme">`)
}

func TestHTMLResult(t *testing.T) {
	assert.Equal(t, "<pre class=\"tool-result\">&lt;b&gt;</pre>\n", htmlResult("<b>", "", config.ResultText))
	assert.Equal(t, "<div class=\"tool-result html\"><b>x</b></div>\n", htmlResult("<b>x</b>", "", config.ResultHTML))
	assert.Equal(t, "rendered", htmlResult("raw", "rendered", config.ResultMarkdown))
}

// =============================================================================
// JSON AND FILES
// =============================================================================

func TestJSONExporter_RoundTrip(t *testing.T) {
	chat := sampleChat()
	out, err := NewJSONExporter(nil).Export(chat)
	require.NoError(t, err)

	var back storage.Chat
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, chat.Order, back.Order)
	assert.Equal(t, "c1", back.Mapping["t1"].ToolCallID)
}

func TestExportToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := ExportToFile(sampleChat(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, "chat_Plot_the_-sales-_data_20250314_092653.md", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Running code")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"simple", "simple"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"", "chat"},
		{"bell\x07", "bell-"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
