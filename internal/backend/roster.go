package backend

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/session"
	"github.com/nautilusim/nautilus/internal/util/sanitize"
)

// MaxGroupNameLength bounds group names; longer names are rejected,
// never truncated.
const MaxGroupNameLength = 61

// noGroupName is the reserved ungrouped bucket presented by clients;
// it cannot be created, renamed to, or removed.
const noGroupName = "(No Group)"

// noGroupID is the reserved short id of the ungrouped bucket.
const noGroupID = "0"

func validateGroupName(detail *models.UserDetail, name string) error {
	if len(name) > MaxGroupNameLength {
		return ErrGroupNameTooLong
	}
	// The reserved bucket name behaves as if such a group always
	// exists.
	if name == noGroupName {
		return ErrGroupAlreadyExists
	}
	for _, g := range detail.Groups() {
		if g.Name == name {
			return ErrGroupAlreadyExists
		}
	}
	return nil
}

// genGroupID allocates the smallest positive integer (as a decimal
// string) not currently used as a short group id.
func genGroupID(detail *models.UserDetail) string {
	for i := 1; ; i++ {
		id := strconv.Itoa(i)
		if !detail.HasGroupID(id) {
			return id
		}
	}
}

// MeGroupAdd creates a group on the acting user's roster.
func (b *Backend) MeGroupAdd(sess *session.Session, name string) (*models.Group, error) {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	detail := u.Detail
	if err := validateGroupName(detail, name); err != nil {
		return nil, err
	}
	g := &models.Group{
		ID:           genGroupID(detail),
		UUID:         uuid.NewString(),
		Name:         name,
		DateModified: time.Now().UTC(),
	}
	detail.InsertGroup(g)
	b.markModifiedLocked(u, nil)
	return g, nil
}

// MeGroupRemove deletes a group and scrubs its memberships from every
// contact. The ungrouped bucket cannot be removed.
func (b *Backend) MeGroupRemove(sess *session.Session, groupID string) error {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	if groupID == noGroupID {
		return ErrCannotRemoveSpecialGroup
	}
	detail := u.Detail
	g := detail.GroupByID(groupID)
	if g == nil {
		return ErrGroupDoesNotExist
	}
	detail.DeleteGroup(g)
	for _, ctc := range detail.Contacts {
		ctc.RemoveGroup(g)
	}
	b.markModifiedLocked(u, nil)
	return nil
}

// MeGroupEdit renames a group (nil skips the rename, with the same
// validation as creation otherwise) and patches its favorite flag.
func (b *Backend) MeGroupEdit(sess *session.Session, groupID string, newName *string, favorite *bool) error {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	detail := u.Detail
	g := detail.GroupByID(groupID)
	if g == nil {
		return ErrGroupDoesNotExist
	}
	if newName != nil {
		if err := validateGroupName(detail, *newName); err != nil {
			return err
		}
		g.Name = *newName
	}
	if favorite != nil {
		g.IsFavorite = *favorite
	}
	g.DateModified = time.Now().UTC()
	b.markModifiedLocked(u, nil)
	return nil
}

// MeGroupContactAdd places a contact into a group. Adding to the
// ungrouped bucket is a no-op.
func (b *Backend) MeGroupContactAdd(sess *session.Session, groupID, contactUUID string) error {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	if groupID == noGroupID {
		return nil
	}
	detail := u.Detail
	g := detail.GroupByID(groupID)
	if g == nil {
		return ErrGroupDoesNotExist
	}
	ctc, ok := detail.Contacts[contactUUID]
	if !ok {
		return ErrContactDoesNotExist
	}
	if ctc.InGroup(g) {
		return ErrContactAlreadyOnList
	}
	ctc.AddGroup(g)
	b.markModifiedLocked(u, nil)
	return nil
}

// MeGroupContactRemove takes a contact out of a group. Removing from
// the ungrouped bucket fails only when the contact is genuinely
// ungrouped.
func (b *Backend) MeGroupContactRemove(sess *session.Session, groupID, contactUUID string) error {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	detail := u.Detail
	ctc, ok := detail.Contacts[contactUUID]
	if !ok {
		return ErrContactDoesNotExist
	}
	if groupID == noGroupID {
		if !ctc.InAnyGroup() {
			return ErrContactNotOnList
		}
		return nil
	}
	g := detail.GroupByID(groupID)
	if g == nil {
		return ErrGroupDoesNotExist
	}
	if !ctc.InGroup(g) {
		return ErrContactNotOnList
	}
	ctc.RemoveGroup(g)
	b.markModifiedLocked(u, nil)
	return nil
}

// addToListLocked puts head on the owner's lst, creating the Contact
// edge if absent, and returns it.
func (b *Backend) addToListLocked(owner *models.User, detail *models.UserDetail, head *models.User, lst models.Lst, name string) *models.Contact {
	ctc, ok := detail.Contacts[head.UUID]
	if !ok {
		ctc = models.NewContact(head, name)
		detail.Contacts[head.UUID] = ctc
	}
	ctc.Lists |= lst
	b.markModifiedLocked(owner, detail)
	return ctc
}

// removeFromListLocked masks lst off the edge and drops the edge when
// no lists remain.
func (b *Backend) removeFromListLocked(owner *models.User, detail *models.UserDetail, head *models.User, lst models.Lst) {
	ctc, ok := detail.Contacts[head.UUID]
	if !ok {
		return
	}
	ctc.Lists &^= lst
	if lst&models.FL != 0 {
		// Group membership is a forward-list attribute; it does not
		// survive the forward-list bit.
		ctc.ClearGroups()
	}
	if ctc.Lists == 0 {
		delete(detail.Contacts, head.UUID)
	}
	b.markModifiedLocked(owner, detail)
}

// MeContactAdd puts a user on one of the acting user's lists. A
// forward-list add also mirrors a reverse-list entry on the contact's
// own roster and notifies their live sessions.
func (b *Backend) MeContactAdd(ctx context.Context, sess *session.Session, contactUUID string, lst models.Lst, name string) (*models.Contact, *models.User, error) {
	u := sess.User

	head, err := b.getUser(ctx, contactUUID)
	if err != nil {
		return nil, nil, err
	}
	if head == nil {
		return nil, nil, ErrUserDoesNotExist
	}

	name = sanitize.Name(name)

	// For an FL add the reverse detail may need a storage load; fetch
	// it before mutating anything so failures leave no partial state.
	var headDetail *models.UserDetail
	if lst&models.FL != 0 {
		headDetail, err = b.loadDetail(ctx, head)
		if err != nil {
			return nil, nil, err
		}
	}

	b.mu.Lock()
	ctc := b.addToListLocked(u, u.Detail, head, lst, name)
	var notifyAdded []*session.Session
	if lst&models.FL != 0 {
		b.addToListLocked(head, headDetail, u, models.RL, u.Status.Name)
		notifyAdded = b.reg.ForUser(head)
	}
	// AL and BL bits change what the contact may see of us, so presence
	// is recomputed for every add.
	b.syncContactStatusesLocked()
	presence := b.notifyTargetsLocked(u)
	b.mu.Unlock()

	// The reverse-add announcement precedes any presence update so the
	// contact learns who is watching before seeing them online.
	for _, other := range notifyAdded {
		other.SendEvent(session.AddedToList{List: models.RL, User: u})
	}
	b.fanOut(presence)
	return ctc, head, nil
}

// ContactEditFields is the patch applied by MeContactEdit.
type ContactEditFields struct {
	IsFavorite      *bool
	IsMessengerUser *bool
	Name            *string
}

// MeContactEdit patches bookkeeping fields on a roster edge.
func (b *Backend) MeContactEdit(sess *session.Session, contactUUID string, fields ContactEditFields) error {
	u := sess.User

	b.mu.Lock()
	defer b.mu.Unlock()
	ctc, ok := u.Detail.Contacts[contactUUID]
	if !ok {
		return ErrContactDoesNotExist
	}
	if fields.IsFavorite != nil {
		ctc.IsFavorite = *fields.IsFavorite
	}
	if fields.IsMessengerUser != nil {
		ctc.IsMessengerUser = *fields.IsMessengerUser
	}
	if fields.Name != nil {
		name := sanitize.Name(*fields.Name)
		ctc.Status.Name = name
		ctc.Info.DisplayName = name
	}
	b.markModifiedLocked(u, nil)
	return nil
}

// MeContactRemove takes a user off one of the acting user's lists. A
// forward-list removal also unmirrors the reverse-list entry on the
// contact's roster. The reverse list itself is managed only through
// mirroring and cannot be targeted directly.
func (b *Backend) MeContactRemove(ctx context.Context, sess *session.Session, contactUUID string, lst models.Lst) error {
	u := sess.User

	if lst&models.RL != 0 {
		return ErrServerError
	}

	b.mu.Lock()
	_, ok := u.Detail.Contacts[contactUUID]
	b.mu.Unlock()
	if !ok {
		return ErrContactDoesNotExist
	}

	var head *models.User
	var headDetail *models.UserDetail
	if lst&models.FL != 0 {
		var err error
		head, err = b.getUser(ctx, contactUUID)
		if err != nil {
			return err
		}
		if head != nil {
			headDetail, err = b.loadDetail(ctx, head)
			if err != nil {
				return err
			}
		}
	}

	b.mu.Lock()
	ctc, ok := u.Detail.Contacts[contactUUID]
	if !ok {
		b.mu.Unlock()
		return ErrContactDoesNotExist
	}
	b.removeFromListLocked(u, u.Detail, ctc.Head, lst)
	if head != nil && headDetail != nil {
		b.removeFromListLocked(head, headDetail, u, models.RL)
	}
	b.syncContactStatusesLocked()
	targets := b.notifyTargetsLocked(u)
	b.mu.Unlock()

	b.fanOut(targets)
	return nil
}
