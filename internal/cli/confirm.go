// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
// One pattern for every command:
//   1. --yes proceeds without prompting
//   2. --json requires --yes (no interactive prompts in JSON mode)
//   3. stdin that is not a TTY requires --yes
//   4. otherwise the user is asked

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrConfirmationRequired is returned when a prompt is needed but impossible.
var ErrConfirmationRequired = errors.New("confirmation required: rerun with --yes")

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// ConfirmFlag is set when --yes was passed
	ConfirmFlag bool
	// JSONMode is set when --json was passed
	JSONMode bool

	// In and Out default to the terminal. Setting In skips the TTY check.
	In  io.Reader
	Out io.Writer
}

// RequireConfirmation asks before a destructive action. details are shown
// as label/value rows before the question.
func RequireConfirmation(action string, details [][2]string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, ErrConfirmationRequired
	}

	in, out := opts.In, opts.Out
	if out == nil {
		out = os.Stdout
	}
	if in == nil {
		if !IsTTY() {
			return false, ErrConfirmationRequired
		}
		in = os.Stdin
	}

	for _, d := range details {
		fmt.Fprintln(out, RenderField(d[0], d[1]))
	}
	fmt.Fprintf(out, "%s %s [y/N]: ", WarningStyle.Render("?"), action)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ShowCancellationMessage reports a declined confirmation.
func ShowCancellationMessage(w io.Writer) {
	fmt.Fprintln(w, DimStyle.Render("Cancelled."))
}
