// Package auth issues short-lived opaque tokens scoped by a purpose
// string (e.g. "nb/login", "sb/xfr", "sb/cal"). Tokens expire
// passively: lookups past expiry return nothing, and stale entries are
// reclaimed lazily.
package auth

import (
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultLifetime applies when CreateToken is called with a zero
// lifetime.
const DefaultLifetime = 30 * time.Second

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenTokenStr returns a 48-character URL-safe alphanumeric token.
func GenTokenStr() string {
	token, err := gonanoid.Generate(tokenAlphabet, 48)
	if err != nil {
		panic(fmt.Sprintf("generate token: %v", err))
	}
	return token
}

type tokenKey struct {
	purpose string
	token   string
}

type tokenEntry struct {
	payload any
	expiry  time.Time
}

// Service is an in-memory token store. Safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	tokens map[tokenKey]tokenEntry
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an empty token store.
func NewService(opts ...Option) *Service {
	s := &Service{
		tokens: make(map[tokenKey]tokenEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateToken mints a token for the given purpose carrying payload.
// A zero lifetime means DefaultLifetime.
func (s *Service) CreateToken(purpose string, payload any, lifetime time.Duration) string {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	token := GenTokenStr()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaimLocked()
	s.tokens[tokenKey{purpose, token}] = tokenEntry{
		payload: payload,
		expiry:  s.now().Add(lifetime),
	}
	return token
}

// GetToken returns the payload for a live token, or nil.
func (s *Service) GetToken(purpose, token string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookupLocked(purpose, token)
	if !ok {
		return nil
	}
	return entry.payload
}

// PopToken returns the payload for a live token and invalidates it.
// At most one PopToken per token ever succeeds.
func (s *Service) PopToken(purpose, token string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookupLocked(purpose, token)
	if !ok {
		return nil
	}
	delete(s.tokens, tokenKey{purpose, token})
	return entry.payload
}

// TokenExpiry returns the expiry of a live token as Unix seconds, or 0
// if the token is unknown or expired.
func (s *Service) TokenExpiry(purpose, token string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookupLocked(purpose, token)
	if !ok {
		return 0
	}
	return entry.expiry.Unix()
}

func (s *Service) lookupLocked(purpose, token string) (tokenEntry, bool) {
	key := tokenKey{purpose, token}
	entry, ok := s.tokens[key]
	if !ok {
		return tokenEntry{}, false
	}
	if !s.now().Before(entry.expiry) {
		delete(s.tokens, key)
		return tokenEntry{}, false
	}
	return entry, true
}

// reclaimLocked drops expired entries so the map does not grow without
// bound under a steady stream of never-redeemed tokens.
func (s *Service) reclaimLocked() {
	now := s.now()
	for key, entry := range s.tokens {
		if !now.Before(entry.expiry) {
			delete(s.tokens, key)
		}
	}
}
