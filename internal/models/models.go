// Package models defines the core value types shared by the presence
// engine, the user store, and the protocol front-ends: users, their
// contact rosters, groups, presence status, and offline messages.
package models

import (
	"time"
)

// User is a registered account. There is at most one User instance per
// UUID in memory (the store's cache is the sole allocator), so pointer
// identity can be used as map keys.
type User struct {
	ID       int64  // dense integer for DB joins
	UUID     string // opaque, globally unique
	Email    string
	Verified bool

	// Status is the user's true status. Observers see a derived copy
	// on their Contact entry, never this struct directly.
	Status UserStatus

	// Detail is non-nil while the user is loaded (has at least one
	// live session). All sessions of the user share the one instance.
	Detail *UserDetail

	// Settings holds free-form per-user flags. Well-known keys:
	// "BLP" ("AL"/"BL"), "GTC". Everything else is opaque to the core.
	Settings map[string]any

	DateCreated time.Time
}

// BLP returns the user's block-list policy, defaulting to allow.
func (u *User) BLP() string {
	if v, ok := u.Settings["BLP"].(string); ok && v == "BL" {
		return "BL"
	}
	return "AL"
}

// UserDetail carries the loaded roster of a user: groups (indexed by
// both short id and uuid) and contacts keyed by the contact's UUID.
type UserDetail struct {
	Contacts map[string]*Contact

	groupsByID   map[string]*Group
	groupsByUUID map[string]*Group
}

// NewUserDetail returns an empty detail.
func NewUserDetail() *UserDetail {
	return &UserDetail{
		Contacts:     make(map[string]*Contact),
		groupsByID:   make(map[string]*Group),
		groupsByUUID: make(map[string]*Group),
	}
}

// InsertGroup registers a group under both indexes.
func (d *UserDetail) InsertGroup(g *Group) {
	d.groupsByID[g.ID] = g
	d.groupsByUUID[g.UUID] = g
}

// GroupByID looks a group up by short id, falling back to uuid.
func (d *UserDetail) GroupByID(id string) *Group {
	if g, ok := d.groupsByID[id]; ok {
		return g
	}
	return d.groupsByUUID[id]
}

// DeleteGroup removes a group from both indexes.
func (d *UserDetail) DeleteGroup(g *Group) {
	delete(d.groupsByID, g.ID)
	delete(d.groupsByUUID, g.UUID)
}

// Groups returns the group set (iteration order unspecified).
func (d *UserDetail) Groups() []*Group {
	gs := make([]*Group, 0, len(d.groupsByID))
	for _, g := range d.groupsByID {
		gs = append(gs, g)
	}
	return gs
}

// HasGroupID reports whether a group with the given short id exists.
func (d *UserDetail) HasGroupID(id string) bool {
	_, ok := d.groupsByID[id]
	return ok
}

// Group is a per-user named contact bucket. Short id "0" is the
// reserved ungrouped bucket and never stored.
type Group struct {
	ID           string
	UUID         string
	Name         string
	IsFavorite   bool
	DateModified time.Time
}

// ContactGroupEntry records a contact's membership in one group.
type ContactGroupEntry struct {
	ContactUUID string
	GroupID     string
	GroupUUID   string
}

// Contact is a directed roster edge from an owning user to Head.
type Contact struct {
	Head  *User
	Lists Lst

	// Status is Head's status as visible to the owner; recomputed via
	// ComputeVisibleStatus on every presence change, never cached
	// independently.
	Status UserStatus

	Info            ContactInfo
	IsMessengerUser bool
	IsFavorite      bool

	groups map[ContactGroupEntry]struct{}
}

// NewContact returns a contact with no lists and no group memberships.
func NewContact(head *User, name string) *Contact {
	return &Contact{
		Head:   head,
		Status: UserStatus{Name: name},
		Info:   ContactInfo{DisplayName: name},
		groups: make(map[ContactGroupEntry]struct{}),
	}
}

// ComputeVisibleStatus derives the observer-visible status from Head's
// true status. A head that is offline (nil detail) or blocking the
// observer appears Offline; otherwise the true status is copied over.
func (c *Contact) ComputeVisibleStatus(observer *User) {
	if c.Head.Detail == nil || IsBlocking(c.Head, observer) {
		c.Status.Substatus = Offline
		return
	}
	actual := c.Head.Status
	c.Status.Substatus = actual.Substatus
	c.Status.Name = actual.Name
	c.Status.Message = actual.Message
	c.Status.Media = actual.Media
}

// InGroup reports whether the contact belongs to the given group, by
// either short id or uuid.
func (c *Contact) InGroup(g *Group) bool {
	for e := range c.groups {
		if e.GroupID == g.ID || e.GroupUUID == g.UUID {
			return true
		}
	}
	return false
}

// AddGroup records membership in g.
func (c *Contact) AddGroup(g *Group) {
	c.groups[ContactGroupEntry{
		ContactUUID: c.Head.UUID,
		GroupID:     g.ID,
		GroupUUID:   g.UUID,
	}] = struct{}{}
}

// AddGroupEntry records a membership loaded from storage.
func (c *Contact) AddGroupEntry(e ContactGroupEntry) {
	c.groups[e] = struct{}{}
}

// RemoveGroup discards the membership entry matching g, if any.
func (c *Contact) RemoveGroup(g *Group) {
	for e := range c.groups {
		if e.GroupID == g.ID || e.GroupUUID == g.UUID {
			delete(c.groups, e)
			return
		}
	}
}

// ClearGroups drops all group memberships.
func (c *Contact) ClearGroups() {
	c.groups = make(map[ContactGroupEntry]struct{})
}

// GroupEntries returns a snapshot of the membership entries.
func (c *Contact) GroupEntries() []ContactGroupEntry {
	es := make([]ContactGroupEntry, 0, len(c.groups))
	for e := range c.groups {
		es = append(es, e)
	}
	return es
}

// InAnyGroup reports whether the contact has any group membership.
func (c *Contact) InAnyGroup() bool {
	return len(c.groups) > 0
}

// IsBlocking reports whether blocker hides their presence from
// blockee: an explicit BL wins, an explicit AL clears, and otherwise
// the blocker's BLP setting decides (default allow).
func IsBlocking(blocker, blockee *User) bool {
	var lists Lst
	if blocker.Detail != nil {
		if ctc, ok := blocker.Detail.Contacts[blockee.UUID]; ok {
			lists = ctc.Lists
		}
	}
	if lists&BL != 0 {
		return true
	}
	if lists&AL != 0 {
		return false
	}
	return blocker.BLP() == "BL"
}

// UserStatus is a user's presence: substatus, display name, status
// message (with a temp flag controlling DB write-back) and media.
type UserStatus struct {
	Substatus Substatus
	Name      string
	Message   string
	// MessageTemp marks the message as session-only; temp messages are
	// not written back to the database.
	MessageTemp bool
	Media       string
}

// IsOfflineish reports whether the status reads as offline to peers.
func (s *UserStatus) IsOfflineish() bool {
	return s.Substatus.IsOfflineish()
}

// SetStatusMessage replaces the status message.
func (s *UserStatus) SetStatusMessage(message string, persistent bool) {
	s.Message = message
	s.MessageTemp = !persistent
}

// ContactInfo mirrors the address-book columns of a contact row.
type ContactInfo struct {
	DisplayName      string
	Birthdate        string
	Anniversary      string
	Notes            string
	FirstName        string
	MiddleName       string
	LastName         string
	Nickname         string
	PrimaryEmailType string
	PersonalEmail    string
	WorkEmail        string
	IMEmail          string
	OtherEmail       string
	HomePhone        string
	WorkPhone        string
	FaxPhone         string
	PagerPhone       string
	MobilePhone      string
	OtherPhone       string
	PersonalWebsite  string
	BusinessWebsite  string
	Locations        map[string]ContactLocation
}

// ContactLocation is one named address of a contact.
type ContactLocation struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// ServiceAddress locates an auxiliary server (e.g. a switchboard).
type ServiceAddress struct {
	Host string
	Port int
}

// OIM is an offline instant message stored until the recipient's next
// login.
type OIM struct {
	UUID         string
	RunID        string
	From         string
	FromFriendly OIMFriendly
	FromUserID   string
	To           string
	IsRead       bool
	Sent         time.Time
	OriginIP     string
	Proxy        string
	Headers      map[string]string
	Text         string
	UTF8         bool
}

// OIMFriendly is the MIME-encoded friendly name of an OIM sender.
type OIMFriendly struct {
	Name     string `json:"friendly_name"`
	Encoding string `json:"encoding"`
	Charset  string `json:"charset"`
}
