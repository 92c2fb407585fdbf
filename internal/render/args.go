// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/partialjson"
)

// =============================================================================
// ARGUMENTS AND RESULTS
// =============================================================================

// renderArgs renders tool call arguments. With a code key configured, the
// value under that key is shown as code as soon as it can be recovered from
// the partial JSON; otherwise the whole argument object is shown as JSON.
func (b *Builder) renderArgs(args string, d config.Display) string {
	if args == "" {
		return ""
	}

	if d.CodeKey != "" {
		parsed, ok := partialjson.Object(args)
		if !ok {
			// Cut off inside a string value
			parsed, ok = partialjson.Object(args + `"`)
		}
		if ok {
			if v, found := parsed[d.CodeKey]; found && truthy(v) {
				code, isString := v.(string)
				if !isString {
					code = marshalIndent(v)
				}
				return b.Markup.Markdown(CodeFence(code, d.CodeLanguage))
			}
		}
	}

	return b.Markup.Markdown(CodeFence(PrettyJSON(args), "json"))
}

// renderResult renders a tool result according to the function's result type.
func (b *Builder) renderResult(result, resultType string) string {
	switch resultType {
	case config.ResultHTML, config.ResultText, config.ResultPlotly, "":
		return result
	case config.ResultMarkdown:
		return b.Markup.Message(result)
	case config.ResultJSON:
		return b.Markup.Markdown(CodeFence(PrettyJSON(result), "json"))
	default:
		return b.Markup.Markdown(CodeFence(result, resultType))
	}
}

// CodeFence wraps code in a markdown fenced block.
func CodeFence(code, language string) string {
	return "```" + language + "\n" + code + "\n```"
}

// PrettyJSON indents s by two spaces, keeping key order. Text that is not
// valid JSON is returned unchanged.
func PrettyJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(s)), "", "  "); err != nil {
		return s
	}
	return buf.String()
}

func marshalIndent(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// truthy reports whether v counts as a present value. Empty strings, zero,
// false and null do not.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}
