// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for plain terminals.
//
// Command: chat
// Short:   Chat with the server without the full-screen UI
//
// Examples:
//   streamchat chat
//   streamchat --chat chat_3f2a9c0d1e7b chat
//   streamchat --server ws://10.0.0.5:5000/ws --markup plain chat
//
// Interactive Commands (during chat):
//   /help, /h             Show available commands
//   /attach <path>        Attach a file or image to the next message
//   /detach               Drop pending attachments
//   /edit <n> <text>      Replace user message n and regenerate
//   /regen [n]            Regenerate agent response n (default: last)
//   /reset                Replace the chat with the server defaults
//   /history              Print the whole transcript
//   /notices              Show notices, /dismiss clears them
//   /status, /s           Show connection and save state
//   /save                 Save the chat now
//   /quit, /q             Exit chat
//   Ctrl+C                Stop the current generation
//   Ctrl+D                Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/transport"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history owner-readable only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT LOOP
// =============================================================================

type inputLine struct {
	text string
	err  error
}

// lineChat owns the session for the duration of the command. Transport
// events, input lines, signals and autosave ticks are all handled on the
// goroutine running loop.
type lineChat struct {
	env     *Env
	sess    *session.Session
	client  *transport.Client
	saver   *session.Autosaver
	printer *streamPrinter
	out     io.Writer
	quiet   bool

	shownNotices map[string]bool
}

// HandleChatCommand runs the line-mode chat until the user quits or the
// connection is lost for good.
func HandleChatCommand(ctx context.Context, env *Env, args Args) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chatID := ResolveChatID(args)
	client := env.NewClient(chatID)

	markup, err := NewMarkup(env.Config.UI, GetTerminalWidth())
	if err != nil {
		return err
	}
	sess, err := env.OpenSession(chatID, client, markup)
	if err != nil {
		return err
	}

	c := &lineChat{
		env:          env,
		sess:         sess,
		client:       client,
		saver:        session.NewAutosaver(sess, env.Store, env.Config.Storage.AutosaveInterval(), env.Logger),
		printer:      newStreamPrinter(os.Stdout),
		out:          os.Stdout,
		quiet:        args.Quiet,
		shownNotices: make(map[string]bool),
	}

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	if !c.quiet {
		c.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	err = c.loop(ctx, input, runErr)

	if c.sess.Generating() {
		c.sess.StopGenerating()
	}
	if ferr := c.saver.Flush(); ferr != nil {
		env.Logger.Warn("final save failed", "chat", sess.ID(), "error", ferr)
	}
	if !c.quiet {
		fmt.Fprintln(c.out, DimStyle.Render("Chat saved as "+sess.ID()))
	}
	return err
}

func (c *lineChat) loop(ctx context.Context, input *ChatCLI, runErr <-chan error) error {
	requests := make(chan string)
	lines := make(chan inputLine)
	defer close(requests)
	go func() {
		for prompt := range requests {
			text, err := input.ReadInput(prompt)
			lines <- inputLine{text: text, err: err}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events := c.client.Events()
	waiting := false
	seenConnect := false

	for {
		if !waiting && seenConnect && !c.sess.Generating() {
			c.flushNotices()
			requests <- PromptStyle.Render("> ")
			waiting = true
		}

		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Type == session.EventConnect {
				seenConnect = true
			}
			c.handleEvent(ev, waiting)

		case err := <-runErr:
			if waiting {
				fmt.Fprintln(c.out)
			}
			if err != nil {
				return NewCommandError("connect", "", err)
			}
			return nil

		case in := <-lines:
			waiting = false
			if in.err != nil {
				if errors.Is(in.err, liner.ErrPromptAborted) || errors.Is(in.err, io.EOF) {
					fmt.Fprintln(c.out)
					return nil
				}
				return in.err
			}
			if quit := c.handleInput(strings.TrimSpace(in.text)); quit {
				return nil
			}

		case sig := <-sigChan:
			if c.sess.Generating() {
				if err := c.sess.StopGenerating(); err != nil {
					c.env.Logger.Warn("stop request failed", "error", err)
				}
				c.printer.Finish()
				fmt.Fprintln(c.out, WarningStyle.Render("[Stopped]"))
				continue
			}
			c.env.Logger.Debug("signal received", "signal", sig)
			return nil

		case t := <-ticker.C:
			if _, err := c.saver.Check(t); err != nil && !errors.Is(err, session.ErrGenerating) {
				c.env.Logger.Warn("autosave failed", "error", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// handleEvent dispatches a server event and prints what it changed.
// Output is held back while a prompt is on screen.
func (c *lineChat) handleEvent(ev session.Event, prompting bool) {
	wasGenerating := c.sess.Generating()
	c.sess.Dispatch(ev)

	switch ev.Type {
	case session.EventConnect:
		if !c.quiet && !prompting {
			fmt.Fprintln(c.out, DimStyle.Render("Connected to "+c.env.Config.Server.URL))
		}
	case session.EventDisconnect:
		if c.printer.Active() {
			c.printer.Finish()
		}
		if !prompting {
			fmt.Fprintln(c.out, WarningStyle.Render("Disconnected, reconnecting..."))
		}
	}

	if c.sess.Generating() && !c.printer.Active() {
		c.printer.Begin(c.sess.Turns())
	}
	if c.printer.Active() {
		c.printer.Update(c.sess.Turns())
	}
	if wasGenerating && !c.sess.Generating() {
		c.printer.Finish()
	}
	if !prompting {
		c.flushNotices()
	}
}

func (c *lineChat) flushNotices() {
	for _, n := range c.sess.Notices().Items() {
		if c.shownNotices[n.Text] {
			continue
		}
		c.shownNotices[n.Text] = true
		fmt.Fprintf(c.out, "%s %s\n", WarningStyle.Render("["+n.Kind.String()+"]"), n.Text)
	}
}

// handleInput processes one input line and reports whether to quit.
func (c *lineChat) handleInput(input string) bool {
	if input == "" {
		return false
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true
	}
	if strings.HasPrefix(input, "/") {
		quit, err := c.handleSlashCommand(input)
		if err != nil {
			DisplayError(os.Stderr, err)
		}
		return quit
	}

	c.sess.SetPromptText(input)
	c.send(c.sess.SendMessage)
	return false
}

// send runs a session action that may start a generation.
func (c *lineChat) send(action func() error) {
	if err := action(); err != nil {
		c.env.Logger.Debug("send failed", "error", err)
		c.flushNotices()
		return
	}
	if c.sess.Generating() {
		c.printer.Begin(c.sess.Turns())
		c.printer.Update(c.sess.Turns())
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (c *lineChat) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	p := NewArgParser(fields[1:])

	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		printChatHelp(c.out)

	case "/attach", "/a":
		path := JoinPositionalArgs(p, 0)
		if path == "" {
			return false, ErrMissingArgument("path", "/attach ./plot.png")
		}
		if err := c.sess.Attach(path); err != nil {
			return false, err
		}
		pr := c.sess.Prompt()
		fmt.Fprintf(c.out, "%s %d image(s), %d file(s) pending\n",
			SuccessStyle.Render("Attached."), len(pr.Images), len(pr.Files))

	case "/detach":
		text := c.sess.Prompt().Text
		c.sess.ClearPrompt()
		c.sess.SetPromptText(text)
		fmt.Fprintln(c.out, DimStyle.Render("Attachments dropped."))

	case "/edit", "/e":
		n, err := ParsePositiveInt(p.Positional(0), "message number")
		if err != nil {
			return false, err
		}
		text := JoinPositionalArgs(p, 1)
		if text == "" {
			return false, ErrMissingArgument("text", "/edit 2 what about tomorrow?")
		}
		id, err := UserTurnID(c.sess.Turns(), n)
		if err != nil {
			return false, err
		}
		c.send(func() error { return c.sess.ChangeUserMessageAndSubmit(id, text) })

	case "/regen", "/r":
		turns := c.sess.Turns()
		index, err := AgentTurnIndex(turns, p.Positional(0))
		if err != nil {
			return false, err
		}
		c.send(func() error { return c.sess.RegenerateOnAgentResponse(index) })

	case "/reset":
		if err := c.sess.Reset(); err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, DimStyle.Render("Chat reset."))

	case "/history":
		turns := c.sess.Turns()
		if len(turns) == 0 {
			fmt.Fprintln(c.out, DimStyle.Render("No messages yet."))
			break
		}
		fmt.Fprintln(c.out, FormatTranscript(turns))
		fmt.Fprintln(c.out)

	case "/notices":
		items := c.sess.Notices().Items()
		if len(items) == 0 {
			fmt.Fprintln(c.out, DimStyle.Render("No notices."))
		}
		for _, n := range items {
			fmt.Fprintf(c.out, "%s %s\n", WarningStyle.Render("["+n.Kind.String()+"]"), n.Text)
		}

	case "/dismiss":
		c.sess.Notices().Clear()
		c.shownNotices = make(map[string]bool)

	case "/status", "/s":
		c.printStatus()

	case "/save":
		if err := c.saver.Flush(); err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, SuccessStyle.Render("Saved "+c.sess.ID()))

	default:
		return false, NewValidationError("command", cmd, "unknown command, try /help")
	}
	return false, nil
}

// UserTurnID returns the ID of the n-th (1-based) user turn.
func UserTurnID(turns []render.Turn, n int) (string, error) {
	count := 0
	for _, t := range turns {
		if u, ok := t.(*render.UserTurn); ok {
			count++
			if count == n {
				return u.ID, nil
			}
		}
	}
	return "", NewValidationError("message number", fmt.Sprint(n),
		fmt.Sprintf("there are %d user messages", count))
}

// AgentTurnIndex returns the turn index of the n-th (1-based) agent turn, or
// of the last one when arg is empty.
func AgentTurnIndex(turns []render.Turn, arg string) (int, error) {
	var agents []int
	for i, t := range turns {
		if _, ok := t.(*render.AgentTurn); ok {
			agents = append(agents, i)
		}
	}
	if len(agents) == 0 {
		return 0, NewValidationError("response", arg, "there are no responses yet")
	}
	if arg == "" {
		return agents[len(agents)-1], nil
	}
	n, err := ParsePositiveInt(arg, "response number")
	if err != nil {
		return 0, err
	}
	if n > len(agents) {
		return 0, NewValidationError("response number", arg,
			fmt.Sprintf("there are %d responses", len(agents)))
	}
	return agents[n-1], nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (c *lineChat) printWelcome() {
	fmt.Fprintln(c.out, TitleStyle.Render("streamchat "+Version))
	fmt.Fprintln(c.out, RenderField("Server", c.env.Config.Server.URL))
	fmt.Fprintln(c.out, RenderField("Chat", c.sess.ID()))
	if turns := c.sess.Turns(); len(turns) > 0 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, FormatTranscript(turns))
	}
	fmt.Fprintln(c.out, DimStyle.Render("Type /help for commands, Ctrl+C stops a response, Ctrl+D exits."))
	fmt.Fprintln(c.out)
}

func (c *lineChat) printStatus() {
	state := ErrorStyle.Render("disconnected")
	if c.sess.Connected() {
		state = SuccessStyle.Render("connected")
	}
	saved := "never"
	if t := c.saver.LastSave(); !t.IsZero() {
		saved = session.FormatDuration(time.Since(t)) + " ago"
	}

	fmt.Fprintln(c.out, RenderField("Chat", c.sess.ID()))
	fmt.Fprintln(c.out, RenderField("Server", c.env.Config.Server.URL+" ("+state+")"))
	fmt.Fprintln(c.out, RenderField("Messages", fmt.Sprint(len(c.sess.Messages()))))
	fmt.Fprintln(c.out, RenderField("Functions", fmt.Sprint(len(c.sess.Functions()))))
	fmt.Fprintln(c.out, RenderField("Last save", saved))
	if err := c.saver.LastError(); err != nil {
		fmt.Fprintln(c.out, RenderField("Save error", err.Error()))
	}
}

func printChatHelp(w io.Writer) {
	cmds := [][2]string{
		{"/attach <path>", "Attach a file or image to the next message"},
		{"/detach", "Drop pending attachments"},
		{"/edit <n> <text>", "Replace user message n and regenerate"},
		{"/regen [n]", "Regenerate response n (default: last)"},
		{"/reset", "Replace the chat with the server defaults"},
		{"/history", "Print the whole transcript"},
		{"/notices", "Show notices (/dismiss clears them)"},
		{"/status", "Show connection and save state"},
		{"/save", "Save the chat now"},
		{"/quit", "Exit chat"},
	}
	fmt.Fprintln(w, TitleStyle.Render("Commands"))
	for _, c := range cmds {
		fmt.Fprintf(w, "  %s %s\n", CommandStyle.Render(fmt.Sprintf("%-18s", c[0])), c[1])
	}
}
