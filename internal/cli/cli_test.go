// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/transport"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--format", "html"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "html", p.Flag("format"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--format=json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "json", p.Flag("format"))
			},
		},
		{
			name:    "equals true is a bool flag",
			args:    []string{"--open=true", "chat_1"},
			wantSub: "chat_1",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("open"))
				assert.Empty(t, p.Flag("open"))
			},
		},
		{
			name:    "switch does not swallow the next positional",
			args:    []string{"--save", "session.jsonl"},
			wantSub: "session.jsonl",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("save"))
			},
		},
		{
			name:    "dash is positional and a flag value",
			args:    []string{"-", "-o", "-"},
			wantSub: "-",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "-", p.Flag("o"))
				assert.Equal(t, 1, p.PositionalCount())
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"search", "--", "--json"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.HasFlag("json"))
				assert.Equal(t, []string{"search", "--json"}, p.PositionalFrom(0))
			},
		},
		{
			name:    "trailing flag is boolean",
			args:    []string{"list", "--json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	assert.Empty(t, p.Subcommand())
	assert.Zero(t, p.PositionalCount())
	assert.Empty(t, p.PositionalFrom(3))
}

func TestArgParser_FlagHelpers(t *testing.T) {
	p := NewArgParser([]string{"--count", "12", "--name", "x"})

	n, err := p.FlagInt("count")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = p.FlagInt("missing")
	assert.Error(t, err)

	assert.Equal(t, "x", p.FlagOrDefault("name", "y"))
	assert.Equal(t, "y", p.FlagOrDefault("other", "y"))
	assert.True(t, p.HasFlag("--name"))
}

func TestParsePositiveInt(t *testing.T) {
	n, err := ParsePositiveInt("3", "n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"", "abc", "0", "-2"} {
		_, err := ParsePositiveInt(bad, "n")
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "input %q", bad)
	}
}

// =============================================================================
// COMMAND LINE TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		argv  []string
		want  Command
		check func(*testing.T, Args)
	}{
		{
			name: "no args runs the tui",
			argv: nil,
			want: CmdTUI,
		},
		{
			name: "global flags before command",
			argv: []string{"-s", "ws://x/ws", "--chat=chat_1", "-v", "--no-color", "chat"},
			want: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "ws://x/ws", a.Server)
				assert.Equal(t, "chat_1", a.ChatID)
				assert.True(t, a.Verbose)
				assert.True(t, a.NoColor)
			},
		},
		{
			name: "global flags only",
			argv: []string{"--markup", "plain", "--storage", "sqlite"},
			want: CmdTUI,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "plain", a.Markup)
				assert.Equal(t, "sqlite", a.Storage)
			},
		},
		{
			name: "export options",
			argv: []string{"export", "chat_1", "--format", "html", "-o", "out.html", "--open"},
			want: CmdExport,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"chat_1"}, a.Raw)
				assert.Equal(t, "html", a.Option("format", "md"))
				assert.Equal(t, "out.html", a.Option("output", "-"))
				assert.Equal(t, "true", a.Option("open", ""))
			},
		},
		{
			name: "chats defaults to list",
			argv: []string{"ls"},
			want: CmdChats,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "list", a.Subcommand)
				assert.Empty(t, a.Raw)
			},
		},
		{
			name: "chats delete takes ids",
			argv: []string{"chats", "rm", "chat_1", "chat_2", "-y"},
			want: CmdChats,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "rm", a.Subcommand)
				assert.Equal(t, []string{"chat_1", "chat_2"}, a.Raw)
				assert.Equal(t, "true", a.Option("y", ""))
			},
		},
		{
			name: "config set",
			argv: []string{"config", "set", "ui.theme", "light"},
			want: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, []string{"ui.theme", "light"}, a.Raw)
			},
		},
		{
			name: "replay stream",
			argv: []string{"replay", "--stream", "session.jsonl"},
			want: CmdReplay,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, []string{"session.jsonl"}, a.Raw)
				assert.Equal(t, "true", a.Option("stream", ""))
			},
		},
		{
			name: "version flag",
			argv: []string{"--version"},
			want: CmdVersion,
		},
		{
			name: "unknown command shows help",
			argv: []string{"frobnicate"},
			want: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Subcommand)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			assert.Equal(t, tt.want, cmd, "command %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	out := buf.String()
	assert.Contains(t, out, "replay <file>")
	assert.Contains(t, out, "config set <key> <val>")
	assert.NotContains(t, out, "%!")
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("n", "x", "bad"), ExitUsageError},
		{"config", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"not found", NewCommandError("chats", "show", storage.ErrChatNotFound), ExitNotFoundError},
		{"reconnect", transport.ErrReconnectExhausted, ExitNetworkError},
		{"connect", NewCommandError("connect", "", errors.New("refused")), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

// =============================================================================
// TRANSCRIPT TESTS (print.go)
// =============================================================================

func TestFormatTranscript(t *testing.T) {
	result := "4"
	turns := []render.Turn{
		&render.UserTurn{ID: "u1", Text: "add 2 and 2", Images: []model.ContentPart{{Type: model.PartImage}}},
		&render.AgentTurn{Parts: []render.Part{
			&render.ContentPart{Source: "Sure", Markup: "Sure"},
			&render.ToolCallPart{
				Name:         "add",
				ShowHeader:   true,
				Status:       render.StatusComplete,
				ArgsMarkup:   `{"a":2,"b":2}`,
				ArgsTitle:    "Arguments",
				ResultMarkup: &result,
				ResultTitle:  "Result",
			},
		}},
	}

	out := FormatTranscript(turns)
	for _, want := range []string{"You", "[image 1]", "add 2 and 2", "Assistant", "Sure", "⚙ add", "✓", "Arguments", `{"a":2,"b":2}`, "Result", "4"} {
		assert.Contains(t, out, want)
	}
}

func TestStreamPrinter_WritesSuffixes(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf)
	assert.False(t, p.Active())

	user := &render.UserTurn{ID: "u1", Text: "hi"}
	step := func(text string) []render.Turn {
		return []render.Turn{user, &render.AgentTurn{Parts: []render.Part{&render.ContentPart{Source: text}}}}
	}

	p.Begin([]render.Turn{user})
	assert.True(t, p.Active())
	p.Update([]render.Turn{user}) // no agent turn yet
	p.Update(step("Hel"))
	p.Update(step("Hello"))
	p.Update(step("Hello"))
	p.Finish()
	assert.False(t, p.Active())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Assistant"))
	assert.Contains(t, out, "Hello\n")
	assert.Equal(t, 1, strings.Count(out, "Hel"))
}

func TestStreamPrinter_RewriteStartsNewLine(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf)
	turns := func(text string) []render.Turn {
		return []render.Turn{&render.AgentTurn{Parts: []render.Part{&render.ContentPart{Source: text}}}}
	}
	p.Begin(nil)
	p.Update(turns("abc"))
	p.Update(turns("xyz"))
	assert.Contains(t, buf.String(), "abc\nxyz")
}

func TestTurnLookups(t *testing.T) {
	turns := []render.Turn{
		&render.UserTurn{ID: "u1"},
		&render.AgentTurn{},
		&render.UserTurn{ID: "u2"},
		&render.AgentTurn{},
	}

	id, err := UserTurnID(turns, 2)
	require.NoError(t, err)
	assert.Equal(t, "u2", id)
	_, err = UserTurnID(turns, 3)
	assert.Error(t, err)

	idx, err := AgentTurnIndex(turns, "")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	idx, err = AgentTurnIndex(turns, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = AgentTurnIndex(turns, "5")
	assert.Error(t, err)
	_, err = AgentTurnIndex(turns[:1], "")
	assert.Error(t, err)
}

// =============================================================================
// REPLAY TESTS (replay.go)
// =============================================================================

const replayLog = `# recorded session
{"event":"connect"}
{"event":"message-set-all","data":[{"id":"u1","role":"user","content":"hi"}]}

{"event":"generating-started"}
{"event":"message-update","data":{"id":"a1","role":"assistant","content":"Hel"}}
{"event":"message-update","data":{"id":"a1","content":"lo"}}
{"event":"generating-done"}
{"event":"message-update","data":{"id":"a1","content":"late"}}
`

func TestReplay(t *testing.T) {
	sess := session.New("chat_replay", session.Options{})

	var seen []session.EventType
	stats, err := Replay(strings.NewReader(replayLog), sess, func(ev session.Event) {
		seen = append(seen, ev.Type)
	})
	require.NoError(t, err)

	assert.Equal(t, 9, stats.Lines)
	assert.Equal(t, 6, stats.Applied)
	assert.Equal(t, 1, stats.Rejected, "update after generating-done is rejected")
	assert.Len(t, seen, 7)
	assert.False(t, sess.Generating())
	assert.Equal(t, 1, sess.Notices().Len())

	turns := sess.Turns()
	require.Len(t, turns, 2)
	part := turns[1].(*render.AgentTurn).Parts[0].(*render.ContentPart)
	assert.Equal(t, "Hello", part.Source)
}

func TestReplay_BadLine(t *testing.T) {
	sess := session.New("chat_replay", session.Options{})
	stats, err := Replay(strings.NewReader("{\"event\":\"connect\"}\nnot json\n"), sess, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, stats.Applied)
}

// =============================================================================
// CHATS / CONFIG COMMAND TESTS
// =============================================================================

func testEnv(t *testing.T) *Env {
	t.Helper()
	st, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.UI.Markup = "plain"
	return &Env{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Logger:     logging.Discard(),
		Store:      st,
	}
}

func saveChat(t *testing.T, env *Env, text string) string {
	t.Helper()
	user := model.TextContent(text)
	reply := model.TextContent("on it")
	id, err := env.Store.Save(&storage.Chat{
		Order: []string{"u1", "a1"},
		Mapping: map[string]model.PartialMessage{
			"u1": {ID: "u1", Role: model.RoleUser, Content: &user},
			"a1": {ID: "a1", Role: model.RoleAssistant, Content: &reply},
		},
	})
	require.NoError(t, err)
	return id
}

func TestRunChats(t *testing.T) {
	env := testEnv(t)
	sales := saveChat(t, env, "Plot the sales data")
	saveChat(t, env, "Write a haiku")

	var buf bytes.Buffer
	require.NoError(t, runChats(&buf, env, Args{Subcommand: "list", Options: map[string]string{}}))
	assert.Contains(t, buf.String(), "Plot the sales data")
	assert.Contains(t, buf.String(), "Write a haiku")

	buf.Reset()
	require.NoError(t, runChats(&buf, env, Args{Subcommand: "search", Raw: []string{"SALES"}, Options: map[string]string{"json": "true"}}))
	var resp struct {
		Success bool               `json:"success"`
		Data    []storage.ChatMeta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, sales, resp.Data[0].ID)

	buf.Reset()
	require.NoError(t, runChats(&buf, env, Args{Subcommand: "show", Raw: []string{sales}, Options: map[string]string{}}))
	assert.Contains(t, buf.String(), "on it")

	err := runChats(&buf, env, Args{Subcommand: "show", Options: map[string]string{}})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestRunChats_DeleteNeedsConfirmation(t *testing.T) {
	env := testEnv(t)
	id := saveChat(t, env, "temporary")

	var buf bytes.Buffer
	err := runChats(&buf, env, Args{Subcommand: "delete", Raw: []string{id}, Options: map[string]string{"json": "true"}})
	require.ErrorIs(t, err, ErrConfirmationRequired)

	require.NoError(t, runChats(&buf, env, Args{Subcommand: "delete", Raw: []string{id}, Options: map[string]string{"yes": "true"}}))
	_, err = env.Store.Load(id)
	assert.ErrorIs(t, err, storage.ErrChatNotFound)
}

func TestRequireConfirmation_Prompt(t *testing.T) {
	var out bytes.Buffer
	ok, err := RequireConfirmation("Delete?", [][2]string{{"Chats", "c1"}}, ConfirmationOptions{
		In:  strings.NewReader("y\n"),
		Out: &out,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "c1")

	ok, err = RequireConfirmation("Delete?", nil, ConfirmationOptions{In: strings.NewReader("\n"), Out: &out})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunConfig_InitSetShow(t *testing.T) {
	env := testEnv(t)
	var buf bytes.Buffer

	require.NoError(t, runConfig(&buf, env, Args{Subcommand: "init", Options: map[string]string{}}))
	_, err := os.Stat(env.ConfigPath)
	require.NoError(t, err)

	err = runConfig(&buf, env, Args{Subcommand: "init", Options: map[string]string{}})
	require.Error(t, err, "init refuses to overwrite without --force")

	require.NoError(t, runConfig(&buf, env, Args{Subcommand: "set", Raw: []string{"ui.render_fps", "60"}, Options: map[string]string{}}))
	cfg, err := config.LoadFile(env.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.UI.RenderFPS)

	err = runConfig(&buf, env, Args{Subcommand: "set", Raw: []string{"ui.render_fps", "500"}, Options: map[string]string{}})
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	err = runConfig(&buf, env, Args{Subcommand: "set", Raw: []string{"ui.nope", "1"}, Options: map[string]string{}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	buf.Reset()
	require.NoError(t, runConfig(&buf, env, Args{Subcommand: "show", Options: map[string]string{}}))
	assert.Contains(t, buf.String(), "[server]")
	assert.Contains(t, buf.String(), "render_fps")

	buf.Reset()
	require.NoError(t, runConfig(&buf, env, Args{Subcommand: "path", Options: map[string]string{"json": "true"}}))
	assert.Contains(t, buf.String(), `"exists": true`)
}
