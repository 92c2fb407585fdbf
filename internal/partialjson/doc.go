// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package partialjson recovers a usable value from JSON text that was cut off
// mid-stream.
//
// Tool call arguments arrive a few characters at a time. Parse lets the
// renderer show the fields that are already complete without waiting for the
// closing brace:
//
//	v, ok := partialjson.Parse(`{"code":"print(1)","lang`, '}')
//	// v == map[string]any{"code": "print(1)"}, ok == true
//
// The recovery is a heuristic. Commas inside string literals and unbalanced
// nested containers can defeat it; in that case Parse reports no result.
package partialjson
