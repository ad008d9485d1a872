package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nautilusim/nautilus/internal/models"
)

func testUser(uuid string) *models.User {
	return &models.User{UUID: uuid, Email: uuid + "@example.com", Settings: map[string]any{}}
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	alice := testUser("a")

	s1 := New(nil)
	s1.User = alice
	s1.Token = "tok1"
	s2 := New(nil)
	s2.User = alice
	s2.Token = "tok2"

	r.Add(s1)
	r.Add(s2)

	assert.Len(t, r.ForUser(alice), 2)
	assert.Same(t, s1, r.ByToken("tok1"))
	assert.Same(t, s2, r.ByToken("tok2"))
	assert.Len(t, r.All(), 2)

	r.Remove(s1)
	assert.Len(t, r.ForUser(alice), 1)
	assert.Nil(t, r.ByToken("tok1"))

	r.Remove(s2)
	assert.Empty(t, r.ForUser(alice))
	assert.Empty(t, r.All())
}

func TestRegistryAddIdempotent(t *testing.T) {
	r := NewRegistry()
	s := New(nil)
	s.User = testUser("a")
	s.Token = "tok"

	r.Add(s)
	r.Add(s)
	assert.Len(t, r.ForUser(s.User), 1)

	r.Remove(s)
	r.Remove(s) // second remove is a no-op
	assert.Empty(t, r.ForUser(s.User))
}

func TestRegistryMissesAreEmpty(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ForUser(testUser("ghost")))
	assert.Nil(t, r.ByToken("nope"))
}

func TestRegistryAddWithoutUserPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Add(New(nil)) })
}

func TestRegistryConcurrentFanOut(t *testing.T) {
	r := NewRegistry()
	alice := testUser("a")
	bob := testUser("b")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := New(nil)
			if i%2 == 0 {
				s.User = alice
			} else {
				s.User = bob
			}
			r.Add(s)
			// Enumerate while other goroutines mutate; snapshots must
			// not race or blow up.
			for range r.All() {
			}
			r.Remove(s)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, r.All())
}

func TestSessionSendAfterClose(t *testing.T) {
	var got []Event
	s := New(func(ev Event) { got = append(got, ev) })
	s.User = testUser("a")

	s.SendEvent(PopNotify{})
	require.Len(t, got, 1)

	require.True(t, s.Close())
	require.False(t, s.Close())

	s.SendEvent(PopNotify{})
	assert.Len(t, got, 1, "events after close must be dropped")
}
