// Package backend is the orchestration core: login and logout
// lifecycle, roster mutations, presence recomputation and fan-out,
// switchboard invitation brokering, and the dirty-set persistence
// pump.
package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nautilusim/nautilus/internal/auth"
	"github.com/nautilusim/nautilus/internal/metrics"
	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/session"
	"github.com/nautilusim/nautilus/internal/store"
)

const (
	// TokenPurposeLogin protects the two-connection login handoff.
	TokenPurposeLogin = "nb/login"
	// TokenPurposeSBTransfer admits a user to a switchboard they asked for.
	TokenPurposeSBTransfer = "sb/xfr"
	// TokenPurposeSBCall admits an invited user to an existing chat.
	TokenPurposeSBCall = "sb/cal"
)

const (
	defaultPumpInterval = time.Second
	defaultPumpBatch    = 100
)

type dirtyEntry struct {
	user   *models.User
	detail *models.UserDetail
}

// Backend ties the stores, the token service and the session registry
// together. One mutex serializes all state mutations; fan-out happens
// after the mutation completes, against registry snapshots.
type Backend struct {
	logger *slog.Logger
	store  *store.Store
	auth   *auth.Service
	reg    *session.Registry

	sbAddr        models.ServiceAddress
	pumpInterval  time.Duration
	pumpBatch     int
	tokenLifetime time.Duration

	mu          sync.Mutex
	usersByUUID map[string]*models.User
	dirty       map[string]dirtyEntry
}

// Option configures a Backend.
type Option func(*Backend)

// WithSwitchboardAddress sets the address handed out with switchboard
// tokens.
func WithSwitchboardAddress(addr models.ServiceAddress) Option {
	return func(b *Backend) { b.sbAddr = addr }
}

// WithPump overrides the persistence pump's interval and batch size.
func WithPump(interval time.Duration, batch int) Option {
	return func(b *Backend) {
		if interval > 0 {
			b.pumpInterval = interval
		}
		if batch > 0 {
			b.pumpBatch = batch
		}
	}
}

// WithTokenLifetime overrides the lifetime of minted tokens.
func WithTokenLifetime(d time.Duration) Option {
	return func(b *Backend) { b.tokenLifetime = d }
}

// New creates a Backend.
func New(logger *slog.Logger, st *store.Store, authSvc *auth.Service, reg *session.Registry, opts ...Option) *Backend {
	b := &Backend{
		logger:       logger,
		store:        st,
		auth:         authSvc,
		reg:          reg,
		pumpInterval: defaultPumpInterval,
		pumpBatch:    defaultPumpBatch,
		usersByUUID:  make(map[string]*models.User),
		dirty:        make(map[string]dirtyEntry),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry exposes the session registry (adapters resolve tokens and
// enumerate sessions through it).
func (b *Backend) Registry() *session.Registry { return b.reg }

// Auth exposes the token service for auxiliary servers (a switchboard
// redeems sb/xfr and sb/cal tokens through it).
func (b *Backend) Auth() *auth.Service { return b.auth }

// LoginTWNStart verifies credentials and mints a one-shot login token
// to be redeemed on a second connection. Returns "" on bad
// credentials; unknown emails are indistinguishable from wrong
// passwords.
func (b *Backend) LoginTWNStart(ctx context.Context, email, password string) (string, error) {
	userUUID, err := b.store.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	if userUUID == "" {
		return "", nil
	}
	return b.auth.CreateToken(TokenPurposeLogin, userUUID, b.tokenLifetime), nil
}

// LoginTWNVerify redeems a login token and binds the session. Returns
// nil on an unknown, expired or already-used token.
func (b *Backend) LoginTWNVerify(ctx context.Context, sess *session.Session, token string, option models.LoginOption) (*models.User, error) {
	userUUID, _ := b.auth.PopToken(TokenPurposeLogin, token).(string)
	if userUUID == "" {
		return nil, nil
	}
	return b.loginCommon(ctx, sess, userUUID, option)
}

// LoginMD5GetSalt returns the legacy MD5 salt for an email, or "" when
// unavailable (never an enumeration signal).
func (b *Backend) LoginMD5GetSalt(ctx context.Context, email string) (string, error) {
	return b.store.GetMD5Salt(ctx, email)
}

// LoginMD5Verify checks an MD5 challenge response and binds the
// session. Returns nil on failure.
func (b *Backend) LoginMD5Verify(ctx context.Context, sess *session.Session, email, md5Hash string, option models.LoginOption) (*models.User, error) {
	userUUID, err := b.store.LoginMD5(ctx, email, md5Hash)
	if err != nil {
		return nil, err
	}
	if userUUID == "" {
		return nil, nil
	}
	return b.loginCommon(ctx, sess, userUUID, option)
}

func (b *Backend) loginCommon(ctx context.Context, sess *session.Session, userUUID string, option models.LoginOption) (*models.User, error) {
	if err := b.store.UpdateDateLogin(ctx, userUUID); err != nil {
		b.logger.Warn("update login timestamp", "uuid", userUUID, "error", err)
	}
	u, err := b.store.Get(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	// Existing sessions of the same user are told about the new login
	// before it becomes visible in the registry.
	switch option {
	case models.LoginBootOthers:
		for _, other := range b.reg.ForUser(u) {
			other.SendEvent(session.PopBoot{})
			// The adapter drops the connection and calls
			// OnConnectionLost; closing now stops further events.
			other.Close()
		}
	case models.LoginNotifyOthers:
		for _, other := range b.reg.ForUser(u) {
			other.SendEvent(session.PopNotify{})
		}
	}

	b.mu.Lock()
	b.usersByUUID[u.UUID] = u

	sess.User = u
	sess.Token = auth.GenTokenStr()
	b.reg.Add(sess)

	if u.Detail == nil {
		b.mu.Unlock()
		// loadDetail prefers an unflushed copy from the dirty set over
		// a stale storage read (e.g. re-login within a pump interval).
		detail, err := b.loadDetail(ctx, u)
		if err != nil {
			b.reg.Remove(sess)
			return nil, err
		}
		b.mu.Lock()
		if u.Detail == nil {
			u.Detail = detail
		}
	}
	b.syncContactStatusesLocked()
	b.mu.Unlock()

	b.logger.Info("user logged in", "uuid", u.UUID, "email", u.Email)
	return u, nil
}

// OnConnectionLost tears a session down. When it was the user's last
// session the user goes offline: detail is dropped (the dirty set
// keeps any unsaved copy alive) and observers are notified.
func (b *Backend) OnConnectionLost(sess *session.Session) {
	u := sess.User
	if u == nil {
		return
	}
	b.reg.Remove(sess)
	sess.Close()
	if len(b.reg.ForUser(u)) > 0 {
		return
	}

	b.mu.Lock()
	u.Detail = nil
	u.Status.Substatus = models.Offline
	b.syncContactStatusesLocked()
	targets := b.notifyTargetsLocked(u)
	b.mu.Unlock()

	b.fanOut(targets)
	b.logger.Info("user logged out", "uuid", u.UUID, "email", u.Email)
}

// UtilGetUUIDFromEmail resolves an email to a user uuid, or "".
func (b *Backend) UtilGetUUIDFromEmail(ctx context.Context, email string) (string, error) {
	return b.store.GetUUIDFromEmail(ctx, email)
}

// UtilGetSessByToken resolves a live session token, or nil.
func (b *Backend) UtilGetSessByToken(token string) *session.Session {
	return b.reg.ByToken(token)
}

// UtilGetSessionsByUser returns the live sessions of a user.
func (b *Backend) UtilGetSessionsByUser(u *models.User) []*session.Session {
	return b.reg.ForUser(u)
}

// getUser resolves a uuid to the cached User, consulting the store on
// a memory miss. Returns nil when the account does not exist.
func (b *Backend) getUser(ctx context.Context, userUUID string) (*models.User, error) {
	b.mu.Lock()
	u, ok := b.usersByUUID[userUUID]
	b.mu.Unlock()
	if ok {
		return u, nil
	}
	u, err := b.store.Get(ctx, userUUID)
	if err != nil || u == nil {
		return nil, err
	}
	b.mu.Lock()
	b.usersByUUID[u.UUID] = u
	b.mu.Unlock()
	return u, nil
}

// loadDetail returns the user's live detail, or loads a detached copy
// from storage for an offline user. A detached detail does not make
// the user appear online; it is kept alive by the dirty set until
// flushed.
func (b *Backend) loadDetail(ctx context.Context, u *models.User) (*models.UserDetail, error) {
	if u.Detail != nil {
		return u.Detail, nil
	}
	// An unflushed detached detail must be reused, or its pending
	// mutations would be lost to a stale storage read.
	b.mu.Lock()
	entry, dirty := b.dirty[u.UUID]
	b.mu.Unlock()
	if dirty && entry.detail != nil {
		return entry.detail, nil
	}
	return b.store.GetDetail(ctx, u.UUID)
}

// markModifiedLocked inserts a user into the dirty set. detail may be
// nil when the user is online (u.Detail is used); when both are given
// they must be the same instance.
func (b *Backend) markModifiedLocked(u *models.User, detail *models.UserDetail) {
	if u.Detail != nil {
		if detail != nil && detail != u.Detail {
			panic("backend: detail instance mismatch for " + u.UUID)
		}
		detail = u.Detail
	}
	b.dirty[u.UUID] = dirtyEntry{user: u, detail: detail}
	metrics.DirtyUsers.Set(float64(len(b.dirty)))
}
