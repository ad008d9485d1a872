package backend

import (
	"github.com/nautilusim/nautilus/internal/metrics"
	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/session"
	"github.com/nautilusim/nautilus/internal/util/sanitize"
)

// syncContactStatusesLocked recomputes every observer-visible contact
// status across all loaded users. Cheap enough to run wholesale after
// any change that can affect presence.
func (b *Backend) syncContactStatusesLocked() {
	for _, u := range b.usersByUUID {
		if u.Detail == nil {
			continue
		}
		for _, ctc := range u.Detail.Contacts {
			ctc.ComputeVisibleStatus(u)
		}
	}
}

type notifyTarget struct {
	sess *session.Session
	ctc  *models.Contact
}

// notifyTargetsLocked collects the sessions that observe the changed
// user: every live session whose user has the changed user on their
// roster. Sessions of the changed user itself are skipped.
func (b *Backend) notifyTargetsLocked(changed *models.User) []notifyTarget {
	var targets []notifyTarget
	for _, sess := range b.reg.All() {
		observer := sess.User
		if observer == nil || observer == changed || observer.Detail == nil {
			continue
		}
		if ctc, ok := observer.Detail.Contacts[changed.UUID]; ok {
			targets = append(targets, notifyTarget{sess: sess, ctc: ctc})
		}
	}
	return targets
}

// fanOut delivers presence notifications outside the backend lock.
// Recomputation has already completed, so receivers observe the new
// state.
func (b *Backend) fanOut(targets []notifyTarget) {
	for _, t := range targets {
		t.sess.SendEvent(session.PresenceNotification{Contact: t.ctc})
		metrics.PresenceNotifications.Inc()
	}
}

// MeUpdateFields is the patch applied by MeUpdate; nil fields are left
// untouched.
type MeUpdateFields struct {
	Substatus *models.Substatus
	Name      *string
	Message   *string
	// MessageTemp marks the new message as session-only (not written
	// back to the database).
	MessageTemp  bool
	Media        *string
	BLP          *string
	GTC          *string
	Capabilities *uint32
	MSNObj       *string
}

func (f *MeUpdateFields) affectsPresence() bool {
	return f.Substatus != nil || f.Name != nil || f.Message != nil ||
		f.Media != nil || f.BLP != nil
}

// MeUpdate patches the acting user's status and settings, marks them
// dirty, and fans presence out to observers when anything visible
// changed.
func (b *Backend) MeUpdate(sess *session.Session, fields MeUpdateFields) {
	u := sess.User

	b.mu.Lock()
	if fields.Substatus != nil {
		u.Status.Substatus = *fields.Substatus
	}
	if fields.Name != nil {
		u.Status.Name = sanitize.Name(*fields.Name)
	}
	if fields.Message != nil {
		u.Status.SetStatusMessage(sanitize.Message(*fields.Message), !fields.MessageTemp)
	}
	if fields.Media != nil {
		u.Status.Media = *fields.Media
	}
	if fields.BLP != nil {
		u.Settings["BLP"] = *fields.BLP
	}
	if fields.GTC != nil {
		u.Settings["GTC"] = *fields.GTC
	}
	if fields.Capabilities != nil {
		u.Settings["capabilities"] = *fields.Capabilities
	}
	if fields.MSNObj != nil {
		u.Settings["msnobj"] = *fields.MSNObj
	}
	b.markModifiedLocked(u, nil)

	var targets []notifyTarget
	if fields.affectsPresence() {
		b.syncContactStatusesLocked()
		targets = b.notifyTargetsLocked(u)
	}
	b.mu.Unlock()

	b.fanOut(targets)
}
