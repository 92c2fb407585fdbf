// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete streamchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server connection
	Server ServerConfig `toml:"server" json:"server"`

	// Chat snapshot persistence
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`

	// Functions holds per-function display settings keyed by function name.
	// The server can replace these at runtime with a config event.
	Functions FunctionConfigs `toml:"functions" json:"functions,omitempty"`
}

// ServerConfig contains the websocket connection settings.
type ServerConfig struct {
	// URL of the chat server websocket endpoint
	URL string `toml:"url" json:"url"`
	// ReconnectMax is how many reconnect attempts are made before giving up (0 = never reconnect)
	ReconnectMax int `toml:"reconnect_max" json:"reconnect_max"`
	// PingIntervalSecs is the keepalive ping period
	PingIntervalSecs int `toml:"ping_interval_secs" json:"ping_interval_secs"`
	// HandshakeTimeoutSecs bounds the websocket dial
	HandshakeTimeoutSecs int `toml:"handshake_timeout_secs" json:"handshake_timeout_secs"`
}

// StorageConfig contains snapshot persistence settings.
type StorageConfig struct {
	// Backend is "file" (one JSON file per chat) or "sqlite"
	Backend string `toml:"backend" json:"backend"`
	// Path is the directory (file backend) or database file (sqlite backend).
	// Empty means a location under the config directory.
	Path string `toml:"path" json:"path"`
	// AutosaveIntervalSecs is how often a dirty chat is written (0 = only on exit)
	AutosaveIntervalSecs int `toml:"autosave_interval_secs" json:"autosave_interval_secs"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "text" (colored console) or "json"
	Format string `toml:"format" json:"format"`
	// File sends logs to a file instead of stderr
	File string `toml:"file" json:"file"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markup selects how assistant text is rendered: "term", "html" or "plain"
	Markup string `toml:"markup" json:"markup"`
	// WordWrap is the markdown wrap width (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// RenderFPS caps how often the transcript is redrawn while streaming
	RenderFPS int `toml:"render_fps" json:"render_fps"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:                  "ws://127.0.0.1:5000/ws",
			ReconnectMax:         5,
			PingIntervalSecs:     20,
			HandshakeTimeoutSecs: 10,
		},

		Storage: StorageConfig{
			Backend:              "file",
			AutosaveIntervalSecs: 1,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},

		UI: UIConfig{
			Theme:     "dark",
			Markup:    "term",
			WordWrap:  80,
			RenderFPS: 30,
		},

		Functions: FunctionConfigs{},
	}
}

// PingInterval returns the keepalive period.
func (s ServerConfig) PingInterval() time.Duration {
	return time.Duration(s.PingIntervalSecs) * time.Second
}

// HandshakeTimeout returns the dial timeout.
func (s ServerConfig) HandshakeTimeout() time.Duration {
	return time.Duration(s.HandshakeTimeoutSecs) * time.Second
}

// AutosaveInterval returns the autosave period.
func (s StorageConfig) AutosaveInterval() time.Duration {
	return time.Duration(s.AutosaveIntervalSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the streamchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".streamchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// StoragePath returns the configured storage path, or the default location
// for the backend under the config directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(dir, "chats.db"), nil
	}
	return filepath.Join(dir, "chats"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.streamchat/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are decoded as JSON, anything else as
// TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes path over the defaults without environment overrides or
// validation, for editing the file itself. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveFile writes cfg to path as JSON when path ends in .json and as TOML
// otherwise.
func SaveFile(cfg *Config, path string) error {
	if !strings.HasSuffix(path, ".json") {
		return SaveTOML(cfg, path)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# streamchat configuration file\n")
	sb.WriteString("# Generated by streamchat - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Server
	// ==========================================================================

	if u, err := url.Parse(c.Server.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("scheme must be ws or wss, got '%s'", u.Scheme),
		})
	}

	if c.Server.ReconnectMax < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.reconnect_max",
			Message: "must be non-negative",
		})
	}

	if c.Server.PingIntervalSecs < 1 || c.Server.PingIntervalSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "server.ping_interval_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.Server.PingIntervalSecs),
		})
	}

	// ==========================================================================
	// Storage
	// ==========================================================================

	validBackends := map[string]bool{"file": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}

	if c.Storage.AutosaveIntervalSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.autosave_interval_secs",
			Message: "must be non-negative",
		})
	}

	// ==========================================================================
	// Log
	// ==========================================================================

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	// ==========================================================================
	// UI
	// ==========================================================================

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validMarkups := map[string]bool{"term": true, "html": true, "plain": true}
	if !validMarkups[strings.ToLower(c.UI.Markup)] {
		errs = append(errs, ValidationError{
			Field:   "ui.markup",
			Message: fmt.Sprintf("invalid markup '%s', must be one of: term, html, plain", c.UI.Markup),
		})
	}

	if c.UI.RenderFPS < 1 || c.UI.RenderFPS > 120 {
		errs = append(errs, ValidationError{
			Field:   "ui.render_fps",
			Message: fmt.Sprintf("must be 1-120, got %d", c.UI.RenderFPS),
		})
	}

	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-value fields from Default and normalises the
// function display settings.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.PingIntervalSecs == 0 {
		c.Server.PingIntervalSecs = defaults.Server.PingIntervalSecs
	}
	if c.Server.HandshakeTimeoutSecs == 0 {
		c.Server.HandshakeTimeoutSecs = defaults.Server.HandshakeTimeoutSecs
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.Markup == "" {
		c.UI.Markup = defaults.UI.Markup
	}
	c.UI.Markup = strings.ToLower(c.UI.Markup)
	if c.UI.RenderFPS == 0 {
		c.UI.RenderFPS = defaults.UI.RenderFPS
	}

	c.Functions = c.Functions.Normalize()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - STREAMCHAT_SERVER_URL: overrides server.url
//   - STREAMCHAT_STORAGE: overrides storage.backend
//   - STREAMCHAT_STORAGE_PATH: overrides storage.path
//   - STREAMCHAT_LOG_LEVEL: overrides log.level
//   - STREAMCHAT_LOG_FILE: overrides log.file
//   - STREAMCHAT_MARKUP: overrides ui.markup
//   - STREAMCHAT_RENDER_FPS: overrides ui.render_fps
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STREAMCHAT_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("STREAMCHAT_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STREAMCHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("STREAMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STREAMCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("STREAMCHAT_MARKUP"); v != "" {
		c.UI.Markup = v
	}
	if v := os.Getenv("STREAMCHAT_RENDER_FPS"); v != "" {
		if fps, err := strconv.Atoi(v); err == nil {
			c.UI.RenderFPS = fps
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns the value at a dotted key such as "server.url". Segments are
// the TOML key names.
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the scalar field at a dotted key such as
// "ui.render_fps". The result is not validated.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, key, value)
}

// Keys lists every settable dotted key in declaration order.
func (c *Config) Keys() []string {
	var keys []string
	var walk func(v reflect.Value, prefix string)
	walk = func(v reflect.Value, prefix string) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name := tomlName(t.Field(i))
			if name == "" {
				continue
			}
			f := v.Field(i)
			switch f.Kind() {
			case reflect.Struct:
				walk(f, prefix+name+".")
			case reflect.String, reflect.Int, reflect.Bool:
				keys = append(keys, prefix+name)
			}
		}
	}
	walk(reflect.ValueOf(c).Elem(), "")
	return keys
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTOMLName(v, normalizeKey(part))
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct || field.Kind() == reflect.Map {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTOMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// normalizeKey accepts kebab-case and any letter case.
func normalizeKey(part string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(part)), "-", "_")
}

func setFieldValue(field reflect.Value, key, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid integer value %q", key, value)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "yes", "on":
				b = true
			case "no", "off":
				b = false
			default:
				return fmt.Errorf("%s: invalid boolean value %q", key, value)
			}
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("cannot set field of type %s: %s", field.Kind(), key)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Functions = c.Functions.Clone()
	return &clone
}

// String returns a JSON representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
