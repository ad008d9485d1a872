package session

import (
	"sync"

	"github.com/nautilusim/nautilus/internal/metrics"
	"github.com/nautilusim/nautilus/internal/models"
)

// Registry tracks live sessions, indexed by user (many sessions per
// user) and by session token. Thread-safe; enumeration methods return
// snapshots so fan-out can tolerate concurrent adds and removes.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[*models.User]map[*Session]struct{}
	byToken map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:  make(map[*models.User]map[*Session]struct{}),
		byToken: make(map[string]*Session),
	}
}

// Add registers a session. The session must already be bound to a
// user; a token is registered when present.
func (r *Registry) Add(sess *Session) {
	if sess.User == nil {
		panic("session.Registry.Add: session has no user")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[sess.User]
	if !ok {
		set = make(map[*Session]struct{})
		r.byUser[sess.User] = set
		metrics.OnlineUsers.Inc()
	}
	if _, dup := set[sess]; !dup {
		set[sess] = struct{}{}
		metrics.ActiveSessions.Inc()
	}
	if sess.Token != "" {
		r.byToken[sess.Token] = sess
	}
}

// Remove unregisters a session from both indexes. Removing a session
// that was never added is a no-op.
func (r *Registry) Remove(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess.User == nil {
		return
	}
	set, ok := r.byUser[sess.User]
	if ok {
		if _, present := set[sess]; present {
			delete(set, sess)
			metrics.ActiveSessions.Dec()
		}
		if len(set) == 0 {
			delete(r.byUser, sess.User)
			metrics.OnlineUsers.Dec()
		}
	}
	if sess.Token != "" && r.byToken[sess.Token] == sess {
		delete(r.byToken, sess.Token)
	}
}

// ForUser returns a snapshot of the user's live sessions (empty slice
// on miss, never nil map access).
func (r *Registry) ForUser(u *models.User) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[u]
	sessions := make([]*Session, 0, len(set))
	for sess := range set {
		sessions = append(sessions, sess)
	}
	return sessions
}

// ByToken resolves a session token, or nil.
func (r *Registry) ByToken(token string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byToken[token]
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.byToken))
	for _, set := range r.byUser {
		for sess := range set {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}
