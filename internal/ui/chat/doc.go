// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat interface.
//
// The Model owns a session.Session and is the only code that touches it.
// Server events arrive as EventMsg values sent by Pump from the transport
// goroutine; autosave runs off session.TickMsg. Transcript redraws are capped
// at the configured frame rate while a response streams in.
//
// # Usage
//
//	m := chat.New(chat.Options{Session: sess, Autosaver: saver, Theme: theme})
//	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
//	go chat.Pump(p, client.Events())
//	go func() { p.Send(chat.TransportDoneMsg{Err: client.Run(ctx)}) }()
//	final, err := p.Run()
//
// # Keys
//
//   - Enter: send, Alt+Enter or Ctrl+J: new line
//   - Esc / Ctrl+C: stop generating (Ctrl+C quits when idle)
//   - PgUp / PgDn, Ctrl+Up / Ctrl+Down: scroll the transcript
//   - F1 or ? on an empty input: help
//   - Ctrl+Q: quit
package chat
