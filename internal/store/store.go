// Package store is the persistence façade for user accounts: it is
// the only package that reads or writes the users/groups/contacts
// schema, the offline-message files, and the display-picture files.
//
// User records are cached so that at most one *models.User exists per
// UUID; everything above this package relies on that identity.
package store

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/util/timefmt"
)

// Store wraps the SQLite database and the filesystem storage root.
type Store struct {
	db          *sql.DB
	storageRoot string

	mu    sync.Mutex
	cache map[string]*models.User
}

// New creates a Store. storageRoot hosts the "oim" and "dp" trees.
func New(db *sql.DB, storageRoot string) *Store {
	return &Store{
		db:          db,
		storageRoot: storageRoot,
		cache:       make(map[string]*models.User),
	}
}

// Login verifies email+password and returns the account UUID, or ""
// when the account is unknown or the password does not match. Unknown
// and wrong-password cases are indistinguishable to the caller.
func (s *Store) Login(ctx context.Context, email, password string) (string, error) {
	var userUUID, hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT uuid, password FROM users WHERE email = ?", email,
	).Scan(&userUUID, &hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil
	}
	return userUUID, nil
}

// GetMD5Salt returns the salt of the account's legacy MD5 credential,
// or "" when the account or credential is missing.
func (s *Store) GetMD5Salt(ctx context.Context, email string) (string, error) {
	cred, err := s.frontData(ctx, email, "msn", "pw_md5")
	if err != nil || cred == "" {
		return "", err
	}
	salt, _, ok := strings.Cut(cred, "$")
	if !ok {
		return "", nil
	}
	return salt, nil
}

// LoginMD5 verifies the MD5 challenge response (hex digest of
// salt+password) and returns the account UUID, or "".
func (s *Store) LoginMD5(ctx context.Context, email, hexHash string) (string, error) {
	cred, err := s.frontData(ctx, email, "msn", "pw_md5")
	if err != nil || cred == "" {
		return "", err
	}
	_, stored, ok := strings.Cut(cred, "$")
	if !ok {
		return "", nil
	}
	a := []byte(strings.ToLower(stored))
	b := []byte(strings.ToLower(hexHash))
	if len(a) != len(b) || subtle.ConstantTimeCompare(a, b) != 1 {
		return "", nil
	}
	return s.GetUUIDFromEmail(ctx, email)
}

// GetUUIDFromEmail resolves an email (case-insensitively) to a UUID,
// or "" on miss.
func (s *Store) GetUUIDFromEmail(ctx context.Context, email string) (string, error) {
	var userUUID string
	err := s.db.QueryRowContext(ctx,
		"SELECT uuid FROM users WHERE email = ?", email,
	).Scan(&userUUID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query uuid: %w", err)
	}
	return userUUID, nil
}

// UpdateDateLogin stamps the account's last login time. Fire and
// forget: failures are the caller's to ignore.
func (s *Store) UpdateDateLogin(ctx context.Context, userUUID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET date_login = ? WHERE uuid = ?",
		timefmt.Format(time.Now()), userUUID,
	)
	return err
}

// Get returns the cached User for a UUID, loading it on first access.
// Returns nil (no error) when the account does not exist.
func (s *Store) Get(ctx context.Context, userUUID string) (*models.User, error) {
	s.mu.Lock()
	if u, ok := s.cache[userUUID]; ok {
		s.mu.Unlock()
		return u, nil
	}
	s.mu.Unlock()

	u, err := s.getUncached(ctx, userUUID)
	if err != nil || u == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another loader may have won the race; the cached instance is
	// authoritative either way.
	if cached, ok := s.cache[userUUID]; ok {
		return cached, nil
	}
	s.cache[userUUID] = u
	return u, nil
}

func (s *Store) getUncached(ctx context.Context, userUUID string) (*models.User, error) {
	var (
		u           models.User
		name        sql.NullString
		message     string
		settings    string
		dateCreated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, uuid, email, verified, name, message, settings, date_created
		 FROM users WHERE uuid = ?`, userUUID,
	).Scan(&u.ID, &u.UUID, &u.Email, &u.Verified, &name, &message, &settings, &dateCreated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", userUUID, err)
	}

	u.Status.Name = u.Email
	if name.Valid && name.String != "" {
		u.Status.Name = name.String
	}
	u.Status.Message = message

	u.Settings = make(map[string]any)
	if err := json.Unmarshal([]byte(settings), &u.Settings); err != nil {
		return nil, fmt.Errorf("decode settings for %s: %w", userUUID, err)
	}
	u.DateCreated = timefmt.Parse(dateCreated)
	return &u, nil
}

// CreateUser registers a new account with a bcrypt password and a
// derived legacy MD5 credential, returning the cached User.
func (s *Store) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	salt, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 8)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	sum := md5.Sum([]byte(salt + password))
	frontData := map[string]map[string]any{
		"msn": {"pw_md5": salt + "$" + hex.EncodeToString(sum[:])},
	}
	fd, err := json.Marshal(frontData)
	if err != nil {
		return nil, fmt.Errorf("encode front data: %w", err)
	}

	userUUID := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (uuid, email, password, front_data) VALUES (?, ?, ?, ?)`,
		userUUID, email, string(hash), string(fd),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.Get(ctx, userUUID)
}

func (s *Store) frontData(ctx context.Context, email, service, key string) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT front_data FROM users WHERE email = ?", email,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query front data: %w", err)
	}

	var fd map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &fd); err != nil {
		return "", fmt.Errorf("decode front data: %w", err)
	}
	v, _ := fd[service][key].(string)
	return v, nil
}
