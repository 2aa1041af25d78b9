// Package sinks delivers bridge events to clients.
package sinks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-agentbridge/core/events"
)

var ErrSinkClosed = errors.New("sink closed")

const defaultWriteTimeout = 5 * time.Second

// WebsocketConn is the part of a websocket connection the sink writes to.
// *websocket.Conn implements it.
type WebsocketConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// WebsocketSink writes every event as a JSON [Envelope]. Writes are
// serialized, so it may be shared by the run, speech and transcription
// goroutines of a session.
type WebsocketSink struct {
	conn         WebsocketConn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

type WebsocketSinkOption func(*WebsocketSink)

func WithWriteTimeout(timeout time.Duration) WebsocketSinkOption {
	return func(s *WebsocketSink) {
		if timeout > 0 {
			s.writeTimeout = timeout
		}
	}
}

func NewWebsocketSink(conn WebsocketConn, opts ...WebsocketSinkOption) *WebsocketSink {
	sink := &WebsocketSink{conn: conn, writeTimeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(sink)
	}
	return sink
}

func (s *WebsocketSink) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(NewEnvelope(event)); err != nil {
		// A failed write leaves the connection unusable.
		s.closed = true
		logger.Warn("closing websocket sink after failed write", "kind", event.Kind(), "error", err)
		return fmt.Errorf("failed to write %s event: %w", event.Kind(), err)
	}
	return nil
}

// Close sends a close frame. The connection itself is owned by the caller.
func (s *WebsocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to send close frame: %w", err)
	}
	return nil
}
