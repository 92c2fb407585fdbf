// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
)

// =============================================================================
// FUNCTION DISPLAY SETTINGS
// =============================================================================

// Result types understood by the renderer. Any other value is used as the
// language of a fenced code block.
const (
	ResultText     = "text"
	ResultMarkdown = "markdown"
	ResultHTML     = "html"
	ResultPlotly   = "plotly"
	ResultJSON     = "json"
)

// FunctionConfig controls how calls to one function are displayed.
//
//	[functions.run_python]
//	header = { text = "Running code" }
//	arguments = { show_key_as_code = { key = "code", language = "python" } }
//	result = { type = "markdown" }
type FunctionConfig struct {
	Header    HeaderConfig    `toml:"header" json:"header"`
	Arguments ArgumentsConfig `toml:"arguments" json:"arguments"`
	Result    ResultConfig    `toml:"result" json:"result"`
}

// HeaderConfig is the line shown above a tool call.
type HeaderConfig struct {
	// Show hides the header when explicitly false
	Show *bool  `toml:"show,omitempty" json:"show,omitempty"`
	Text string `toml:"text,omitempty" json:"text,omitempty"`
}

// ArgumentsConfig controls the arguments block.
type ArgumentsConfig struct {
	Title         string         `toml:"title,omitempty" json:"title,omitempty"`
	ShowKeyAsCode *CodeKeyConfig `toml:"show_key_as_code,omitempty" json:"show_key_as_code,omitempty"`
}

// CodeKeyConfig shows a single argument as a code block instead of the whole
// argument object.
type CodeKeyConfig struct {
	Key      string `toml:"key" json:"key"`
	Language string `toml:"language,omitempty" json:"language,omitempty"`
}

// ResultConfig controls the result block.
type ResultConfig struct {
	Title string `toml:"title,omitempty" json:"title,omitempty"`
	Type  string `toml:"type,omitempty" json:"type,omitempty"`
}

// FunctionConfigs maps function names to their display settings.
type FunctionConfigs map[string]FunctionConfig

// Display is a FunctionConfig with every default filled in.
type Display struct {
	ShowHeader   bool
	Header       string
	ArgsTitle    string
	ResultTitle  string
	ResultType   string
	CodeKey      string
	CodeLanguage string
}

// Display resolves the settings for the named function.
func (fc FunctionConfigs) Display(name string) Display {
	c := fc[name]

	d := Display{
		ShowHeader:  c.Header.Show == nil || *c.Header.Show,
		Header:      c.Header.Text,
		ArgsTitle:   c.Arguments.Title,
		ResultTitle: c.Result.Title,
		ResultType:  c.Result.Type,
	}
	if d.Header == "" {
		d.Header = fmt.Sprintf("Function call to **`%s`**", name)
	}
	if d.ArgsTitle == "" {
		d.ArgsTitle = "Arguments"
	}
	if d.ResultTitle == "" {
		d.ResultTitle = "Result"
	}
	if d.ResultType == "" {
		d.ResultType = ResultText
	}
	if k := c.Arguments.ShowKeyAsCode; k != nil && k.Key != "" {
		d.CodeKey = k.Key
		d.CodeLanguage = k.Language
		if d.CodeLanguage == "" {
			d.CodeLanguage = "plaintext"
		}
	}
	return d
}

// Normalize returns a copy with blank names dropped, result types lowercased
// and code-key settings without a key removed.
func (fc FunctionConfigs) Normalize() FunctionConfigs {
	out := make(FunctionConfigs, len(fc))
	for name, c := range fc {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.Result.Type = strings.ToLower(strings.TrimSpace(c.Result.Type))
		if k := c.Arguments.ShowKeyAsCode; k != nil {
			if strings.TrimSpace(k.Key) == "" {
				c.Arguments.ShowKeyAsCode = nil
			} else {
				c.Arguments.ShowKeyAsCode = &CodeKeyConfig{
					Key:      strings.TrimSpace(k.Key),
					Language: strings.ToLower(strings.TrimSpace(k.Language)),
				}
			}
		}
		if c.Header.Show != nil {
			show := *c.Header.Show
			c.Header.Show = &show
		}
		out[name] = c
	}
	return out
}

// Clone returns a deep copy.
func (fc FunctionConfigs) Clone() FunctionConfigs {
	if fc == nil {
		return nil
	}
	out := make(FunctionConfigs, len(fc))
	for name, c := range fc {
		if c.Header.Show != nil {
			show := *c.Header.Show
			c.Header.Show = &show
		}
		if c.Arguments.ShowKeyAsCode != nil {
			k := *c.Arguments.ShowKeyAsCode
			c.Arguments.ShowKeyAsCode = &k
		}
		out[name] = c
	}
	return out
}
