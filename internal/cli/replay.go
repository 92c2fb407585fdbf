// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// replay.go - Replay a recorded event log through a session.
//
// Command: replay <file>
// Short:   Print the transcript an event log produces
//
// The file holds one server frame per line, as sent on the websocket:
//
//	{"event":"generating-started"}
//	{"event":"message-update","data":{"id":"a1","role":"assistant","content":"Hel"}}
//
// Blank lines and lines starting with # are skipped. "-" reads stdin.
//
// Flags:
//   --stream     Print the response as it grows instead of only the result
//   --save       Save the final state to the snapshot store

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/streamchat/internal/session"
)

// maxReplayLine bounds a single frame; snapshots with inline images are big.
const maxReplayLine = 32 << 20

// ReplayStats summarises a replay.
type ReplayStats struct {
	Lines    int
	Applied  int
	Rejected int
}

// Replay feeds every frame in r to sess. after, when set, runs after each
// frame. A line that is not valid JSON stops the replay.
func Replay(r io.Reader, sess *session.Session, after func(session.Event)) (ReplayStats, error) {
	var stats ReplayStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxReplayLine)

	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var ev session.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}

		if err := sess.Dispatch(ev); err != nil {
			stats.Rejected++
		} else {
			stats.Applied++
		}
		if after != nil {
			after(ev)
		}
	}
	return stats, scanner.Err()
}

// HandleReplay runs the replay command.
func HandleReplay(env *Env, args Args) error {
	if len(args.Raw) == 0 {
		return ErrMissingArgument("file", "streamchat replay session.jsonl")
	}
	path := args.Raw[0]

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return NewCommandError("replay", "", err)
		}
		defer f.Close()
		r = f
	}

	markup, err := NewMarkup(env.Config.UI, GetTerminalWidth())
	if err != nil {
		return err
	}

	commands := session.TransportFunc(func(command string, data any) error {
		env.Logger.Debug("replay dropped command", "command", command)
		return nil
	})
	sess, err := env.OpenSession(ResolveChatID(args), commands, markup)
	if err != nil {
		return err
	}

	var after func(session.Event)
	if args.Option("stream", "") == "true" {
		printer := newStreamPrinter(os.Stdout)
		after = func(ev session.Event) {
			switch {
			case sess.Generating() && !printer.Active():
				printer.Begin(sess.Turns())
				printer.Update(sess.Turns())
			case printer.Active():
				printer.Update(sess.Turns())
				if !sess.Generating() {
					printer.Finish()
				}
			}
		}
	}

	stats, err := Replay(r, sess, after)
	if err != nil {
		return NewCommandError("replay", "", err)
	}
	env.Logger.Info("replay finished",
		"lines", stats.Lines, "applied", stats.Applied, "rejected", stats.Rejected)

	if after == nil {
		fmt.Println(FormatTranscript(sess.Turns()))
	}
	for _, n := range sess.Notices().Items() {
		fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle.Render("["+n.Kind.String()+"]"), n.Text)
	}

	if args.Option("save", "") == "true" {
		if sess.Generating() {
			sess.StopGenerating()
		}
		chat, err := sess.Snapshot()
		if err != nil {
			return err
		}
		id, err := env.Store.Save(chat)
		if err != nil {
			return NewCommandError("replay", "save", err)
		}
		fmt.Fprintln(os.Stderr, DimStyle.Render("Saved as "+id))
	}
	return nil
}
