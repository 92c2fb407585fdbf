// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "regexp"

// Status is the lifecycle state of a tool call.
type Status int

const (
	StatusComplete Status = iota
	StatusProgress
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusProgress:
		return "progress"
	case StatusError:
		return "error"
	default:
		return "complete"
	}
}

// Both patterns are anchored at the very start of the result text.
var (
	errorResultPattern     = regexp.MustCompile(`^\w*(Error|Exception|An error):`)
	tracebackResultPattern = regexp.MustCompile(`^Traceback \(most recent call last\):`)
)

// IsErrorResult reports whether a tool result looks like a Python error
// message or traceback.
func IsErrorResult(s string) bool {
	return errorResultPattern.MatchString(s) || tracebackResultPattern.MatchString(s)
}

// ResolveStatus derives a tool call's status from its result (nil when no
// tool message has arrived) and whether the model is still generating.
func ResolveStatus(result *string, generating bool) Status {
	if result != nil && IsErrorResult(*result) {
		return StatusError
	}
	if result == nil && generating {
		return StatusProgress
	}
	return StatusComplete
}
