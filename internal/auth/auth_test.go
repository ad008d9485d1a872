package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) tick(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) now() time.Time       { return c.t }

func newTestService() (*Service, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	return NewService(WithClock(clock.now)), clock
}

func TestPopExistingToken(t *testing.T) {
	s, clock := newTestService()
	token := s.CreateToken("xyz", "data", 10*time.Second)
	clock.tick(5 * time.Second)
	assert.Equal(t, "data", s.PopToken("xyz", token))
	assert.Nil(t, s.PopToken("xyz", token))
}

func TestExpiredTokenUnusable(t *testing.T) {
	s, clock := newTestService()
	token := s.CreateToken("xyz", "data", 10*time.Second)
	clock.tick(11 * time.Second)
	assert.Nil(t, s.PopToken("xyz", token))
	assert.Nil(t, s.GetToken("xyz", token))
}

func TestWrongPurposeRejected(t *testing.T) {
	s, _ := newTestService()
	token := s.CreateToken("xyz", "data", 10*time.Second)
	assert.Nil(t, s.PopToken("zyx", token))
	// The original purpose still works after a miss on the wrong one.
	assert.Equal(t, "data", s.PopToken("xyz", token))
}

func TestMultipleTokensIndependent(t *testing.T) {
	s, clock := newTestService()
	token1 := s.CreateToken("xyz", "data1", 10*time.Second)
	clock.tick(5 * time.Second)
	token2 := s.CreateToken("abc", "data2", 15*time.Second)
	clock.tick(3 * time.Second)
	assert.Equal(t, "data2", s.PopToken("abc", token2))
	clock.tick(1 * time.Second)
	assert.Equal(t, "data1", s.PopToken("xyz", token1))
}

func TestGetDoesNotConsume(t *testing.T) {
	s, _ := newTestService()
	token := s.CreateToken("nb/login", "uuid-1", 0)
	assert.Equal(t, "uuid-1", s.GetToken("nb/login", token))
	assert.Equal(t, "uuid-1", s.GetToken("nb/login", token))
	assert.Equal(t, "uuid-1", s.PopToken("nb/login", token))
	assert.Nil(t, s.GetToken("nb/login", token))
}

func TestTokenExpiry(t *testing.T) {
	s, clock := newTestService()
	token := s.CreateToken("xyz", "data", 10*time.Second)
	assert.Equal(t, clock.t.Add(10*time.Second).Unix(), s.TokenExpiry("xyz", token))
	clock.tick(11 * time.Second)
	assert.Zero(t, s.TokenExpiry("xyz", token))
}

func TestDefaultLifetime(t *testing.T) {
	s, clock := newTestService()
	token := s.CreateToken("xyz", "data", 0)
	clock.tick(DefaultLifetime - time.Second)
	assert.Equal(t, "data", s.GetToken("xyz", token))
	clock.tick(2 * time.Second)
	assert.Nil(t, s.GetToken("xyz", token))
}

func TestTokenShape(t *testing.T) {
	s, _ := newTestService()
	seen := make(map[string]bool)
	for range 100 {
		token := s.CreateToken("xyz", "data", 0)
		require.Len(t, token, 48)
		require.False(t, seen[token], "token collision")
		seen[token] = true
		for _, r := range token {
			require.True(t,
				(r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'),
				"token must be alphanumeric, got %q", r)
		}
	}
}

func TestLazyReclaim(t *testing.T) {
	s, clock := newTestService()
	for range 50 {
		s.CreateToken("xyz", "data", time.Second)
	}
	clock.tick(2 * time.Second)
	// Next create reclaims every expired entry plus inserts one.
	s.CreateToken("xyz", "data", time.Second)
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.tokens, 1)
}
