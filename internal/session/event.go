package session

import "github.com/nautilusim/nautilus/internal/models"

// Event is the closed set of notifications the core dispatches to a
// session. Front-end adapters switch on the concrete type and encode
// each variant for their wire protocol.
type Event interface {
	isEvent()
}

// PresenceNotification reports that the visible status of one of the
// receiving user's contacts changed. Contact.Status already reflects
// the recomputed view.
type PresenceNotification struct {
	Contact *models.Contact
}

// AddedToList reports that User put the receiving user on List
// (in practice List is always RL: "they added me").
type AddedToList struct {
	List models.Lst
	User *models.User
}

// InvitedToChat asks the receiving session to join a switchboard chat.
// Token is a single-use "sb/cal" credential for SBAddress.
type InvitedToChat struct {
	SBAddress models.ServiceAddress
	ChatID    string
	Token     string
	Caller    *models.User
}

// ChatParticipantJoined is relayed from a switchboard when a user pops
// into a chat the receiver is in.
type ChatParticipantJoined struct {
	User     *models.User
	FirstPop bool
}

// ChatParticipantLeft is the counterpart of ChatParticipantJoined.
type ChatParticipantLeft struct {
	User    *models.User
	LastPop bool
}

// ChatMessage carries a switchboard payload to a chat participant.
type ChatMessage struct {
	Sender *models.User
	Data   models.MessageData
}

// ContactRequestDenied reports that User declined the receiving
// user's contact request.
type ContactRequestDenied struct {
	User    *models.User
	Message string
}

// OIMReceived reports a freshly stored offline message while the
// recipient happens to be online.
type OIMReceived struct {
	OIM *models.OIM
}

// PopBoot tells the session it is being displaced by a newer login
// (BootOthers). The adapter is expected to close the connection.
type PopBoot struct{}

// PopNotify tells the session the same user signed in elsewhere
// (NotifyOthers).
type PopNotify struct{}

func (PresenceNotification) isEvent()  {}
func (AddedToList) isEvent()           {}
func (InvitedToChat) isEvent()         {}
func (ChatParticipantJoined) isEvent() {}
func (ChatParticipantLeft) isEvent()   {}
func (ChatMessage) isEvent()           {}
func (ContactRequestDenied) isEvent()  {}
func (OIMReceived) isEvent()           {}
func (PopBoot) isEvent()               {}
func (PopNotify) isEvent()             {}
