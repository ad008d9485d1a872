package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(uuid, email string) *User {
	return &User{
		UUID:     uuid,
		Email:    email,
		Settings: map[string]any{},
	}
}

func TestIsBlocking(t *testing.T) {
	tests := []struct {
		name     string
		lists    Lst
		hasEntry bool
		blp      string
		want     bool
	}{
		{"BL set", BL, true, "", true},
		{"BL wins over AL policy", BL, true, "AL", true},
		{"AL set", AL, true, "BL", false},
		{"FL only, default policy", FL, true, "", false},
		{"FL only, BLP=BL", FL, true, "BL", true},
		{"no entry, default policy", 0, false, "", false},
		{"no entry, BLP=BL", 0, false, "BL", true},
		{"no entry, explicit BLP=AL", 0, false, "AL", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocker := testUser("a", "a@example.com")
			blockee := testUser("b", "b@example.com")
			blocker.Detail = NewUserDetail()
			if tt.hasEntry {
				ctc := NewContact(blockee, "B")
				ctc.Lists = tt.lists
				blocker.Detail.Contacts[blockee.UUID] = ctc
			}
			if tt.blp != "" {
				blocker.Settings["BLP"] = tt.blp
			}
			assert.Equal(t, tt.want, IsBlocking(blocker, blockee))
		})
	}
}

func TestComputeVisibleStatus(t *testing.T) {
	owner := testUser("o", "o@example.com")
	owner.Detail = NewUserDetail()
	head := testUser("h", "h@example.com")

	ctc := NewContact(head, "H")
	ctc.Lists = FL
	owner.Detail.Contacts[head.UUID] = ctc

	t.Run("offline head appears offline", func(t *testing.T) {
		head.Detail = nil
		head.Status.Substatus = Online
		ctc.ComputeVisibleStatus(owner)
		assert.Equal(t, Offline, ctc.Status.Substatus)
	})

	t.Run("online head copied through", func(t *testing.T) {
		head.Detail = NewUserDetail()
		head.Status = UserStatus{Substatus: Busy, Name: "H!", Message: "brb lunch", Media: "np"}
		ctc.ComputeVisibleStatus(owner)
		assert.Equal(t, Busy, ctc.Status.Substatus)
		assert.Equal(t, "H!", ctc.Status.Name)
		assert.Equal(t, "brb lunch", ctc.Status.Message)
		assert.Equal(t, "np", ctc.Status.Media)
	})

	t.Run("blocking head appears offline regardless of status", func(t *testing.T) {
		head.Detail = NewUserDetail()
		head.Status.Substatus = Online
		blocked := NewContact(owner, "O")
		blocked.Lists = BL
		head.Detail.Contacts[owner.UUID] = blocked
		ctc.ComputeVisibleStatus(owner)
		assert.Equal(t, Offline, ctc.Status.Substatus)
	})
}

func TestContactGroups(t *testing.T) {
	head := testUser("h", "h@example.com")
	ctc := NewContact(head, "H")
	g1 := &Group{ID: "1", UUID: "uuid-1", Name: "Friends"}
	g2 := &Group{ID: "2", UUID: "uuid-2", Name: "Work"}

	require.False(t, ctc.InAnyGroup())

	ctc.AddGroup(g1)
	ctc.AddGroup(g2)
	assert.True(t, ctc.InGroup(g1))
	assert.True(t, ctc.InGroup(g2))
	assert.Len(t, ctc.GroupEntries(), 2)

	// Removal discards the matching entry only.
	ctc.RemoveGroup(g1)
	assert.False(t, ctc.InGroup(g1))
	assert.True(t, ctc.InGroup(g2))

	ctc.ClearGroups()
	assert.False(t, ctc.InAnyGroup())
}

func TestGroupIndexes(t *testing.T) {
	d := NewUserDetail()
	g := &Group{ID: "1", UUID: "uuid-1", Name: "Friends"}
	d.InsertGroup(g)

	assert.Same(t, g, d.GroupByID("1"))
	assert.Same(t, g, d.GroupByID("uuid-1"))
	assert.True(t, d.HasGroupID("1"))

	d.DeleteGroup(g)
	assert.Nil(t, d.GroupByID("1"))
	assert.Nil(t, d.GroupByID("uuid-1"))
}

func TestSubstatusOfflineish(t *testing.T) {
	assert.True(t, Offline.IsOfflineish())
	assert.True(t, Invisible.IsOfflineish())
	assert.False(t, Online.IsOfflineish())
	assert.False(t, Away.IsOfflineish())
}

func TestParseLst(t *testing.T) {
	assert.Equal(t, AL, ParseLst("Allow"))
	assert.Equal(t, BL, ParseLst("block"))
	assert.Equal(t, RL, ParseLst("REVERSE"))
	assert.Equal(t, PL, ParseLst("Pending"))
	assert.Equal(t, Lst(0), ParseLst("bogus"))
}

func TestBLPDefault(t *testing.T) {
	u := testUser("u", "u@example.com")
	assert.Equal(t, "AL", u.BLP())
	u.Settings["BLP"] = "BL"
	assert.Equal(t, "BL", u.BLP())
	u.Settings["BLP"] = "garbage"
	assert.Equal(t, "AL", u.BLP())
}
