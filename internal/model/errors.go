// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

var (
	// ErrInvalidDelta is returned for a delta with a missing ID or a role
	// other than assistant.
	ErrInvalidDelta = errors.New("invalid delta")

	// ErrRoleMismatch is returned when a patch targets a message of the wrong
	// kind.
	ErrRoleMismatch = errors.New("role mismatch")

	// ErrIncompleteToolCall is returned when the first chunk of a tool call
	// lacks its identifying fields.
	ErrIncompleteToolCall = errors.New("incomplete tool call")

	// ErrUnsupportedToolType is returned for tool calls that are not
	// functions.
	ErrUnsupportedToolType = errors.New("unsupported tool type")

	// ErrMalformedMessage is returned for set events with a shape that cannot
	// be turned into a message.
	ErrMalformedMessage = errors.New("malformed message")
)

// Error adds the failing operation and a human-readable reason to one of the
// sentinel errors above. errors.Is matches on the sentinel.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.Error() + ": " + e.Msg
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Msg
}

// Unwrap returns the sentinel kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Reason returns the human-readable part of err without the operation,
// falling back to the full error text. Client notices show this.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
