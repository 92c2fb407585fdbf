// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/ui/components"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

const (
	defaultRenderFPS = 30
	maxInputHeight   = 6
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Session   *session.Session
	Autosaver *session.Autosaver
	Theme     *styles.Theme
	Logger    *slog.Logger

	// ServerURL is only displayed
	ServerURL string

	// RenderFPS caps transcript redraws while a response streams in
	RenderFPS int

	// NewMarkup, when set, is called with the transcript width on every
	// resize so wrapped markup follows the terminal.
	NewMarkup func(width int) (render.Markup, error)
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the full-screen chat.
type Model struct {
	sess   *session.Session
	saver  *session.Autosaver
	theme  *styles.Theme
	logger *slog.Logger

	serverURL string
	newMarkup func(width int) (render.Markup, error)

	// Dimensions
	width       int
	height      int
	markupWidth int

	// UI Components
	viewport  viewport.Model
	input     textarea.Model
	spinner   spinner.Model
	statusBar *components.StatusBar
	toasts    *components.ToastManager
	keyMap    KeyMap

	// Redraw throttling while streaming
	limiter       *rate.Limiter
	frame         time.Duration
	redrawPending bool

	spinning     bool
	showHelp     bool
	seenConnect  bool
	transportErr error
	quitting     bool
}

// New creates a chat model for opts.Session.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("dark")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fps := opts.RenderFPS
	if fps <= 0 {
		fps = defaultRenderFPS
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Prompt = "> "
	ta.Placeholder = "Type a message, /help for commands..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys(keys.Newline.Keys()...))
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.FocusedStyle.CursorLine = ta.FocusedStyle.Base
	ta.Focus()

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	sb := components.NewStatusBar(theme)
	sb.ChatID = opts.Session.ID()

	m := Model{
		sess:      opts.Session,
		saver:     opts.Autosaver,
		theme:     theme,
		logger:    logger,
		serverURL: opts.ServerURL,
		newMarkup: opts.NewMarkup,
		viewport:  vp,
		input:     ta,
		spinner:   sp,
		statusBar: sb,
		toasts:    components.NewToastManager(),
		keyMap:    keys,
		limiter:   rate.NewLimiter(rate.Limit(fps), 1),
		frame:     time.Second / time.Duration(fps),
	}
	m.syncStatus()
	return m
}

// Session returns the session the model drives.
func (m Model) Session() *session.Session { return m.sess }

// TransportErr returns the error the transport stopped with, if any.
func (m Model) TransportErr() error { return m.transportErr }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and, when autosave is enabled, the save tick.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.saver != nil {
		cmds = append(cmds, session.TickCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case EventMsg:
		return m.handleEvent(msg.Event)

	case TransportDoneMsg:
		return m.handleTransportDone(msg)

	case ConfigReloadMsg:
		if msg.Err != nil {
			m.logger.Warn("config reload failed", "error", msg.Err)
			return m, m.toast(components.ToastKindError, "Config reload failed: "+msg.Err.Error())
		}
		m.sess.SetFunctions(msg.Config.Functions)
		m.refresh()
		return m, m.toast(components.ToastKindStatus, "Config reloaded")

	case redrawMsg:
		m.redrawPending = false
		m.refresh()
		return m, nil

	case session.TickMsg:
		cmd := m.saver.HandleTick(msg)
		m.syncStatus()
		return m, cmd

	case session.SavedMsg:
		if msg.Err != nil {
			return m, m.toast(components.ToastKindError, "Autosave failed: "+msg.Err.Error())
		}
		m.syncStatus()
		return m, nil

	case components.ToastTickMsg:
		if m.toasts.Prune(msg.Time) {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.sess.Generating() {
			m.spinning = false
			m.statusBar.Spinner = ""
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.Spinner = m.spinner.View()
		return m, cmd

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// View renders the chat view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderChat()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.input.SetWidth(msg.Width)
	m.viewport.Width = msg.Width
	m.statusBar.SetWidth(msg.Width)

	var cmd tea.Cmd
	if w := m.transcriptWidth(); m.newMarkup != nil && w != m.markupWidth {
		mk, err := m.newMarkup(w)
		if err != nil {
			cmd = m.toast(components.ToastKindError, "Markup: "+err.Error())
		} else {
			m.markupWidth = w
			m.sess.SetMarkup(mk)
		}
	}

	m.refresh()
	return m, cmd
}

// handleEvent dispatches a server event and schedules a redraw.
func (m Model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	wasGenerating := m.sess.Generating()
	// Problems are recorded as notices by the session.
	_ = m.sess.Dispatch(ev)

	var cmds []tea.Cmd
	switch ev.Type {
	case session.EventConnect:
		if !m.seenConnect {
			m.seenConnect = true
			cmds = append(cmds, m.toast(components.ToastKindStatus, "Connected to "+m.serverURL))
		} else {
			cmds = append(cmds, m.toast(components.ToastKindSuccess, "Reconnected"))
		}
	case session.EventDisconnect:
		cmds = append(cmds, m.toast(components.ToastKindWarning, "Disconnected, reconnecting..."))
	}

	if !wasGenerating && m.sess.Generating() {
		cmds = append(cmds, m.startSpinner())
	}

	cmds = append(cmds, m.scheduleRedraw(wasGenerating != m.sess.Generating()))
	return m, tea.Batch(cmds...)
}

func (m Model) handleTransportDone(msg TransportDoneMsg) (tea.Model, tea.Cmd) {
	m.transportErr = msg.Err
	m.syncStatus()
	if msg.Err == nil {
		return m, nil
	}
	m.logger.Error("transport stopped", "error", msg.Err)
	m.statusBar.Status = components.StatusDisconnected
	return m, m.toast(components.ToastKindError, "Connection lost: "+msg.Err.Error())
}

// scheduleRedraw refreshes now if the frame budget allows, otherwise once at
// the end of the current frame. force skips the limiter.
func (m *Model) scheduleRedraw(force bool) tea.Cmd {
	if force || m.limiter.Allow() {
		m.refresh()
		return nil
	}
	if m.redrawPending {
		return nil
	}
	m.redrawPending = true
	return tea.Tick(m.frame, func(time.Time) tea.Msg { return redrawMsg{} })
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// toast shows a toast and starts the expiry tick if none was running.
func (m *Model) toast(kind components.ToastKind, text string) tea.Cmd {
	running := m.toasts.HasToasts()
	m.toasts.Add(kind, text)
	if running {
		return nil
	}
	return components.ToastTickCmd()
}

// syncStatus copies session and autosave state into the status bar.
func (m *Model) syncStatus() {
	sb := m.statusBar
	switch {
	case m.sess.Generating():
		sb.Status = components.StatusGenerating
	case m.sess.Connected():
		sb.Status = components.StatusReady
	case m.seenConnect || m.transportErr != nil:
		sb.Status = components.StatusDisconnected
	default:
		sb.Status = components.StatusConnecting
	}
	if !m.sess.Generating() {
		sb.Spinner = ""
	}
	sb.ChatID = m.sess.ID()
	sb.Notices = m.sess.Notices().Len()
	p := m.sess.Prompt()
	sb.Attachments = len(p.Images) + len(p.Files)
	if m.saver != nil {
		sb.LastSave = m.saver.LastSave()
		sb.SaveErr = m.saver.LastError()
	}
}
