// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package push

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// ============================================================================
// Events
// ============================================================================

// EventType discriminates what a stream entry announces.
type EventType int

const (
	// EventProgress carries a document status update.
	EventProgress EventType = iota

	// EventConnected marks a successful dial, first connect and every
	// reconnect alike. State accumulated before this point may be stale.
	EventConnected

	// EventDisconnected marks a lost connection. Informational only;
	// the channel is already scheduling a reconnect.
	EventDisconnected
)

// Event is one entry on the push stream.
type Event struct {
	Type EventType

	// Progress fields, meaningful only for EventProgress.
	DocumentID model.DocumentID
	Status     model.DocumentStatus
	Percentage int
	Message    string
}

// wireEvent is the JSON frame the backend sends.
type wireEvent struct {
	Type       string               `json:"type"`
	DocumentID model.DocumentID     `json:"document_id"`
	Status     model.DocumentStatus `json:"status"`
	Percentage *int                 `json:"percentage"`
	Message    string               `json:"message"`
}

// ============================================================================
// Configuration
// ============================================================================

// Config controls the push channel.
type Config struct {
	// URL is the WebSocket endpoint (ws:// or wss://).
	URL string

	// TokenFunc returns the current bearer token, or "" when logged
	// out. Read on every dial so reconnects pick up a refreshed token.
	TokenFunc func() string

	// DialTimeout bounds a single connection attempt (default: 10s).
	DialTimeout time.Duration

	// MaxBackoff caps the reconnect delay (default: 30s).
	MaxBackoff time.Duration

	// PongTimeout is how long a connection may stay silent before it
	// is considered dead (default: 90s). The server is expected to
	// ping at a shorter interval.
	PongTimeout time.Duration

	// Logger receives connection lifecycle lines. Nil discards them;
	// a TUI must never let stray writes reach the terminal.
	Logger *log.Logger
}

// fill applies defaults for zero values.
func (c *Config) fill() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = 90 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

// ============================================================================
// Channel
// ============================================================================

// Channel is a self-healing subscription to the backend's event socket.
type Channel struct {
	config Config
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel. Call Run to start it.
func NewChannel(config Config) *Channel {
	config.fill()
	return &Channel{
		config: config,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// Events returns the stream. It is closed when Run returns, so a
// consumer ranging over it terminates cleanly.
func (ch *Channel) Events() <-chan Event {
	return ch.events
}

// Close stops the channel. Safe to call more than once and from any
// goroutine; Run returns promptly afterwards.
func (ch *Channel) Close() {
	ch.closeOnce.Do(func() { close(ch.done) })
}

// Run dials and reads until the context is cancelled or Close is
// called. It always returns nil after an orderly shutdown; connection
// failures are handled internally with backoff, never surfaced.
func (ch *Channel) Run(ctx context.Context) error {
	defer close(ch.events)

	backoff := time.Second
	for {
		if stopped(ctx, ch.done) {
			return nil
		}

		conn, err := ch.dial(ctx)
		if err != nil {
			ch.config.Logger.Printf("PUSH_DIAL_FAILED | url=%s delay=%v error=%v", ch.config.URL, backoff, err)
			if !ch.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, ch.config.MaxBackoff)
			continue
		}

		backoff = time.Second
		ch.emit(ctx, Event{Type: EventConnected})

		ch.readLoop(ctx, conn)
		conn.Close()

		if stopped(ctx, ch.done) {
			return nil
		}
		ch.config.Logger.Printf("PUSH_DISCONNECTED | url=%s", ch.config.URL)
		ch.emit(ctx, Event{Type: EventDisconnected})
	}
}

// dial opens one connection, authenticating with the current token.
func (ch *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: ch.config.DialTimeout}

	header := http.Header{}
	if ch.config.TokenFunc != nil {
		if token := ch.config.TokenFunc(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, ch.config.DialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, ch.config.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop decodes frames until the connection breaks or shutdown is
// requested. A separate goroutine watches for shutdown and unblocks
// the pending read by closing the connection.
func (ch *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-ch.done:
		case <-watchDone:
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(ch.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ch.config.PongTimeout))
	})
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(ch.config.PongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(ch.config.PongTimeout))

		var frame wireEvent
		if err := json.Unmarshal(data, &frame); err != nil {
			// A malformed frame is dropped, not fatal: the stream
			// stays up and the next frame may be fine.
			ch.config.Logger.Printf("PUSH_BAD_FRAME | error=%v", err)
			continue
		}
		if frame.Type != "document_progress" || frame.DocumentID == "" {
			continue
		}

		event := Event{
			Type:       EventProgress,
			DocumentID: frame.DocumentID,
			Status:     frame.Status,
			Message:    frame.Message,
			Percentage: -1,
		}
		if frame.Percentage != nil {
			event.Percentage = clampPercent(*frame.Percentage)
		}
		if !ch.emit(ctx, event) {
			return
		}
	}
}

// emit delivers an event unless shutdown intervenes. The events
// channel is buffered; a consumer that stops draining eventually
// blocks delivery, and shutdown still wins that race.
func (ch *Channel) emit(ctx context.Context, event Event) bool {
	select {
	case ch.events <- event:
		return true
	case <-ctx.Done():
		return false
	case <-ch.done:
		return false
	}
}

// sleep waits for the backoff period, aborting early on shutdown.
func (ch *Channel) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-ch.done:
		return false
	}
}

func stopped(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-done:
		return true
	default:
		return false
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
