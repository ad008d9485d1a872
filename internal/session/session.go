// Package session models one authenticated client connection and the
// registry indexing live sessions by user and by token.
package session

import (
	"sync"

	"github.com/nautilusim/nautilus/internal/models"
)

// Session is one live client connection bound to a user after login.
// The zero fields User and Token are populated by the core during
// login; adapters must not set them.
type Session struct {
	User  *models.User
	Token string

	// FrontData holds adapter-private state (protocol version, client
	// capabilities). Opaque to the core.
	FrontData map[string]any

	mu     sync.Mutex
	sendFn func(Event)
	closed bool
}

// New creates a session delivering events through sendFn. sendFn must
// not block; adapters typically enqueue onto their write loop.
func New(sendFn func(Event)) *Session {
	return &Session{
		FrontData: make(map[string]any),
		sendFn:    sendFn,
	}
}

// SendEvent delivers an event to the session's adapter. Events sent
// after Close are dropped.
func (s *Session) SendEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.sendFn == nil {
		return
	}
	s.sendFn(ev)
}

// Close marks the session closed; later SendEvent calls are no-ops.
// Returns false if the session was already closed.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
