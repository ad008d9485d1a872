package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nautilusim/nautilus/internal/db"
	"github.com/nautilusim/nautilus/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.Migrate(d))
	return New(d, t.TempDir())
}

func TestCreateAndLogin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, u.UUID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice@example.com", u.Status.Name)

	got, err := s.Login(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.UUID, got)

	got, err = s.Login(ctx, "alice@example.com", "wrong")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Login(ctx, "nobody@example.com", "hunter2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoginMD5(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	salt, err := s.GetMD5Salt(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, salt)

	sum := md5.Sum([]byte(salt + "hunter2"))
	got, err := s.LoginMD5(ctx, "alice@example.com", hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.Equal(t, u.UUID, got)

	bad := md5.Sum([]byte(salt + "wrong"))
	got, err = s.LoginMD5(ctx, "alice@example.com", hex.EncodeToString(bad[:]))
	require.NoError(t, err)
	assert.Empty(t, got)

	salt, err = s.GetMD5Salt(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, salt)
}

func TestGetUUIDFromEmail(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Alice@Example.com", "pw")
	require.NoError(t, err)

	// Email lookup is case-insensitive.
	got, err := s.GetUUIDFromEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.UUID, got)

	got, err = s.GetUUIDFromEmail(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetReturnsSameInstance(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	again, err := s.Get(ctx, u.UUID)
	require.NoError(t, err)
	assert.Same(t, u, again)

	missing, err := s.Get(ctx, "no-such-uuid")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDetailRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	detail := models.NewUserDetail()
	g := &models.Group{ID: "1", UUID: "g-uuid-1", Name: "Friends", IsFavorite: true}
	detail.InsertGroup(g)

	ctc := models.NewContact(bob, "Bobby")
	ctc.Lists = models.FL | models.AL
	ctc.IsMessengerUser = true
	ctc.AddGroup(g)
	ctc.Info.Notes = "met at work"
	ctc.Info.MobilePhone = "555-0100"
	ctc.Info.Locations = map[string]models.ContactLocation{
		"personal": {Type: "personal", City: "Springfield"},
	}
	detail.Contacts[bob.UUID] = ctc

	alice.Status.Name = "Alice!"
	alice.Status.SetStatusMessage("brb", true)
	alice.Settings["BLP"] = "BL"

	require.NoError(t, s.SaveBatch(ctx, []SaveItem{{User: alice, Detail: detail}}))
	// Replaying the batch must not duplicate rows or fail.
	require.NoError(t, s.SaveBatch(ctx, []SaveItem{{User: alice, Detail: detail}}))

	loaded, err := s.GetDetail(ctx, alice.UUID)
	require.NoError(t, err)

	groups := loaded.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "Friends", groups[0].Name)
	assert.True(t, groups[0].IsFavorite)
	assert.Same(t, groups[0], loaded.GroupByID("1"))
	assert.Same(t, groups[0], loaded.GroupByID("g-uuid-1"))

	got, ok := loaded.Contacts[bob.UUID]
	require.True(t, ok)
	assert.Same(t, bob, got.Head, "heads resolve through the cache")
	assert.Equal(t, models.FL|models.AL, got.Lists)
	assert.Equal(t, "Bobby", got.Status.Name)
	assert.True(t, got.IsMessengerUser)
	assert.True(t, got.InGroup(groups[0]))
	assert.Equal(t, "met at work", got.Info.Notes)
	assert.Equal(t, "555-0100", got.Info.MobilePhone)
	assert.Equal(t, "Springfield", got.Info.Locations["personal"].City)
}

func TestTempMessageNotPersisted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	alice.Status.SetStatusMessage("fleeting", false)
	require.NoError(t, s.SaveBatch(ctx, []SaveItem{{User: alice}}))

	var stored string
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT message FROM users WHERE uuid = ?", alice.UUID).Scan(&stored))
	assert.Empty(t, stored)
}

func TestSaveBatchEmpty(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.SaveBatch(context.Background(), nil))
}
