// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.URL = "http://example.com"
	cfg.Storage.Backend = "postgres"
	cfg.UI.Markup = "rich"
	cfg.UI.RenderFPS = 0

	err := cfg.Validate()
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidateErrors, got %T", err)
	}

	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, want := range []string{"server.url", "storage.backend", "ui.markup", "ui.render_fps"} {
		if !fields[want] {
			t.Errorf("missing validation error for %s (got %v)", want, verrs)
		}
	}
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
url = "wss://chat.example.com/ws"

[storage]
backend = "SQLite"

[functions.run_python]
header = { show = false }
arguments = { show_key_as_code = { key = "code", language = "Python" } }
result = { type = "Markdown" }

[functions."  "]
result = { type = "json" }
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Server.URL != "wss://chat.example.com/ws" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Server.PingIntervalSecs != 20 {
		t.Errorf("unset fields should keep defaults, PingIntervalSecs = %d", cfg.Server.PingIntervalSecs)
	}
	if len(cfg.Functions) != 1 {
		t.Fatalf("blank function names should be dropped, got %d entries", len(cfg.Functions))
	}

	d := cfg.Functions.Display("run_python")
	if d.ShowHeader {
		t.Error("header should be hidden")
	}
	if d.ResultType != ResultMarkdown {
		t.Errorf("ResultType = %q, want markdown", d.ResultType)
	}
	if d.CodeKey != "code" || d.CodeLanguage != "python" {
		t.Errorf("code key = %q/%q", d.CodeKey, d.CodeLanguage)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected a validation error")
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.UI.Markup = "html"
	cfg.Functions["search"] = FunctionConfig{Result: ResultConfig{Title: "Hits", Type: "json"}}

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.UI.Markup != "html" {
		t.Errorf("UI.Markup = %q", loaded.UI.Markup)
	}
	if loaded.Functions.Display("search").ResultTitle != "Hits" {
		t.Errorf("function config lost: %+v", loaded.Functions)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STREAMCHAT_SERVER_URL", "ws://override:1/ws")
	t.Setenv("STREAMCHAT_RENDER_FPS", "12")
	t.Setenv("STREAMCHAT_MARKUP", "plain")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "ws://override:1/ws" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.UI.RenderFPS != 12 {
		t.Errorf("UI.RenderFPS = %d", cfg.UI.RenderFPS)
	}
	if cfg.UI.Markup != "plain" {
		t.Errorf("UI.Markup = %q", cfg.UI.Markup)
	}
}

func TestClone_DeepCopiesFunctions(t *testing.T) {
	show := true
	cfg := Default()
	cfg.Functions["f"] = FunctionConfig{Header: HeaderConfig{Show: &show}}

	clone := cfg.Clone()
	*clone.Functions["f"].Header.Show = false

	if !*cfg.Functions["f"].Header.Show {
		t.Error("Clone shares header settings with the original")
	}
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got *Config
	done := make(chan struct{}, 1)

	w, err := NewWatcher(path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err != nil {
			return
		}
		mu.Lock()
		got = cfg
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	cfg := Default()
	cfg.UI.Markup = "plain"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	mu.Lock()
	defer mu.Unlock()
	if got.UI.Markup != "plain" {
		t.Errorf("reloaded UI.Markup = %q, want plain", got.UI.Markup)
	}
}

// =============================================================================
// GET / SET
// =============================================================================

func TestSet_DotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("server.url", "ws://chat.local/ws"); err != nil {
		t.Fatalf("Set(server.url) error: %v", err)
	}
	if err := cfg.Set("ui.render-fps", "60"); err != nil {
		t.Fatalf("Set(ui.render-fps) error: %v", err)
	}
	if err := cfg.Set("Storage.Backend", "sqlite"); err != nil {
		t.Fatalf("Set(Storage.Backend) error: %v", err)
	}

	if cfg.Server.URL != "ws://chat.local/ws" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.UI.RenderFPS != 60 {
		t.Errorf("UI.RenderFPS = %d, want 60", cfg.UI.RenderFPS)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}

	got, err := cfg.Get("ui.render_fps")
	if err != nil || got != 60 {
		t.Errorf("Get(ui.render_fps) = %v, %v", got, err)
	}
}

func TestSet_Errors(t *testing.T) {
	cfg := Default()
	tests := []struct {
		key, value string
	}{
		{"", "x"},
		{"server.nope", "x"},
		{"server", "x"},
		{"server.url.extra", "x"},
		{"ui.word_wrap", "wide"},
		{"functions", "x"},
	}
	for _, tt := range tests {
		if err := cfg.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%q, %q) succeeded, want error", tt.key, tt.value)
		}
	}
	if cfg.UI.WordWrap != Default().UI.WordWrap {
		t.Errorf("failed Set changed WordWrap to %d", cfg.UI.WordWrap)
	}
}

func TestKeys_AreSettable(t *testing.T) {
	cfg := Default()
	keys := cfg.Keys()
	if len(keys) == 0 {
		t.Fatal("Keys() returned nothing")
	}
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q) error: %v", k, err)
		}
	}
	if keys[0] != "version" {
		t.Errorf("keys[0] = %q, want version", keys[0])
	}
}
