// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package partialjson

import (
	"encoding/json"
	"strings"
)

// Closers accepted by Parse.
const (
	CloseObject byte = '}'
	CloseArray  byte = ']'
)

// Parse returns the longest decodable prefix of text.
//
// The full text is tried first. After that the text is cut at each comma from
// right to left and closed with closer. As a last resort closer is appended to
// the whole text. ok is false when nothing decodes.
func Parse(text string, closer byte) (any, bool) {
	if v, ok := decode(text); ok {
		return v, true
	}

	end := len(text)
	for {
		i := strings.LastIndexByte(text[:end], ',')
		if i < 0 {
			break
		}
		if v, ok := decode(text[:i] + string(closer)); ok {
			return v, true
		}
		end = i
	}

	return decode(text + string(closer))
}

// Object is Parse with an object closer, returning the decoded map.
func Object(text string) (map[string]any, bool) {
	v, ok := Parse(text, CloseObject)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func decode(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
