package backend

import (
	"context"

	"github.com/nautilusim/nautilus/internal/metrics"
	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/session"
)

// SBTokenPayload is carried by sb/xfr and sb/cal tokens; the
// switchboard redeems the token and learns who is joining.
type SBTokenPayload struct {
	UUID  string
	Extra any
}

// SBTokenCreate mints a token admitting the acting user to a
// switchboard of their own, returned with the switchboard's address.
func (b *Backend) SBTokenCreate(sess *session.Session, extra any) (string, models.ServiceAddress) {
	token := b.auth.CreateToken(TokenPurposeSBTransfer, SBTokenPayload{
		UUID:  sess.User.UUID,
		Extra: extra,
	}, b.tokenLifetime)
	return token, b.sbAddr
}

// NotifyCall invites a roster contact into an existing chat: every
// live session of the callee receives its own single-use token.
func (b *Backend) NotifyCall(ctx context.Context, callerUUID, calleeEmail, chatID string) error {
	calleeUUID, err := b.store.GetUUIDFromEmail(ctx, calleeEmail)
	if err != nil {
		return err
	}
	if calleeUUID == "" {
		return ErrUserDoesNotExist
	}
	callee, err := b.getUser(ctx, calleeUUID)
	if err != nil {
		return err
	}
	if callee == nil {
		return ErrUserDoesNotExist
	}
	caller, err := b.getUser(ctx, callerUUID)
	if err != nil {
		return err
	}
	if caller == nil {
		return ErrUserDoesNotExist
	}

	b.mu.Lock()
	var ctc *models.Contact
	if caller.Detail != nil {
		ctc = caller.Detail.Contacts[calleeUUID]
	}
	b.mu.Unlock()
	if ctc == nil {
		return ErrContactDoesNotExist
	}

	sessions := b.reg.ForUser(callee)
	if ctc.Status.IsOfflineish() || len(sessions) == 0 {
		return ErrContactNotOnline
	}
	for _, s := range sessions {
		token := b.auth.CreateToken(TokenPurposeSBCall, SBTokenPayload{
			UUID:  calleeUUID,
			Extra: s.Token,
		}, b.tokenLifetime)
		s.SendEvent(session.InvitedToChat{
			SBAddress: b.sbAddr,
			ChatID:    chatID,
			Token:     token,
			Caller:    caller,
		})
		metrics.ChatInvites.Inc()
	}
	return nil
}

// MeContactDeny declines a pending contact request: the requester
// comes off the pending list and their live sessions are told.
func (b *Backend) MeContactDeny(ctx context.Context, sess *session.Session, adderUUID, message string) error {
	u := sess.User

	adder, err := b.getUser(ctx, adderUUID)
	if err != nil {
		return err
	}
	if adder == nil {
		return ErrUserDoesNotExist
	}

	b.mu.Lock()
	b.removeFromListLocked(u, u.Detail, adder, models.PL)
	b.mu.Unlock()

	for _, s := range b.reg.ForUser(adder) {
		s.SendEvent(session.ContactRequestDenied{User: u, Message: message})
	}
	return nil
}

// SendOIM stores an offline message and, if the recipient happens to
// be online, tells their sessions immediately.
func (b *Backend) SendOIM(oim *models.OIM) error {
	if err := b.store.SaveOIM(oim); err != nil {
		return err
	}
	b.mu.Lock()
	recipient := b.usersByUUID[oim.To]
	b.mu.Unlock()
	if recipient == nil {
		return nil
	}
	for _, s := range b.reg.ForUser(recipient) {
		s.SendEvent(session.OIMReceived{OIM: oim})
	}
	return nil
}
