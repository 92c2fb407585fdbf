// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jeranaias/streamchat/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConnected is returned by Send while there is no connection.
	ErrNotConnected = errors.New("not connected to server")

	// ErrReconnectExhausted is returned by Run when the connection was lost
	// and every reconnect attempt failed.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

const (
	writeTimeout      = 10 * time.Second
	reconnectBase     = 500 * time.Millisecond
	reconnectMaxDelay = 10 * time.Second
	eventBuffer       = 256
)

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	// URL of the websocket endpoint (ws:// or wss://)
	URL string
	// ChatID is sent as the chat_id query parameter when set
	ChatID string
	// PingInterval is the keepalive period; reads time out after three
	// missed pongs
	PingInterval time.Duration
	// HandshakeTimeout bounds each dial
	HandshakeTimeout time.Duration
	// ReconnectMax is how many times a lost connection is redialed
	// (0 = never)
	ReconnectMax int
	Logger       *slog.Logger
}

// Client is a websocket connection to the chat server.
type Client struct {
	opts   Options
	logger *slog.Logger
	events chan session.Event

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

// Envelope is the wire frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// New creates a client. Nothing is dialed until Run.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 20 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		opts:   opts,
		logger: opts.Logger.With("component", "transport"),
		events: make(chan session.Event, eventBuffer),
	}
}

// Events returns the inbound event stream. It is closed when Run returns.
func (c *Client) Events() <-chan session.Event {
	return c.events
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run dials the server and pumps inbound frames until ctx is done. A lost
// connection is redialed with exponential backoff up to ReconnectMax times;
// a successful reconnect resets the attempt count.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.opts.URL, err)
	}

	for {
		c.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}

		conn = nil
		for attempt := 1; attempt <= c.opts.ReconnectMax && conn == nil; attempt++ {
			if !sleepContext(ctx, reconnectDelay(attempt)) {
				return nil
			}
			conn, err = c.dial(ctx)
			if err != nil {
				c.logger.Warn("reconnect attempt failed",
					"attempt", attempt, "max_attempts", c.opts.ReconnectMax, "error", err)
			}
		}
		if conn == nil {
			if ctx.Err() != nil {
				return nil
			}
			return ErrReconnectExhausted
		}
		c.logger.Info("reconnected")
	}
}

// serve delivers frames from conn until it fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.setConn(conn)
	c.deliver(ctx, session.Event{Type: session.EventConnect})

	done := make(chan struct{})
	go c.pingLoop(conn, done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	c.readLoop(ctx, conn)
	close(done)

	c.setConn(nil)
	conn.Close()
	c.deliver(ctx, session.Event{Type: session.EventDisconnect})
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	idle := 3 * c.opts.PingInterval
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("connection lost", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(idle))

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
			c.logger.Warn("unparseable frame", "error", err, "raw_len", len(frame))
			continue
		}
		c.logger.Debug("event received", "event", env.Event, "size", len(env.Data))
		if !c.deliver(ctx, session.Event{Type: session.EventType(env.Event), Data: env.Data}) {
			return
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				return
			}
			err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
			c.mu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) deliver(ctx context.Context, ev session.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Send writes one command frame.
func (c *Client) Send(command string, data any) error {
	env := Envelope{Event: command}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", command, err)
		}
		env.Data = raw
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	c.logger.Debug("command sent", "command", command, "size", len(env.Data))
	return nil
}

// =============================================================================
// DIALING
// =============================================================================

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.target()
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		NetDialContext:   (&net.Dialer{Timeout: c.opts.HandshakeTimeout}).DialContext,
	}

	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	idle := 3 * c.opts.PingInterval
	conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})
	c.logger.Info("connected", "url", target)
	return conn, nil
}

func (c *Client) target() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}
	if c.opts.ChatID != "" {
		q := u.Query()
		q.Set("chat_id", c.opts.ChatID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func reconnectDelay(attempt int) time.Duration {
	delay := reconnectBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
