package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"guesthouse/internal/config"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

// Authenticator checks admin credentials and issues sessions.
type Authenticator struct {
	username string
	hash     []byte
	store    Store
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthenticator hashes a plain-text password from config when no hash is given.
func NewAuthenticator(cfg config.AdminConfig, store Store) (*Authenticator, error) {
	a := &Authenticator{
		username: cfg.Username,
		store:    store,
		ttl:      cfg.SessionTTL,
		now:      time.Now,
	}
	switch {
	case cfg.PasswordHash != "":
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.hash = hash
	}
	return a, nil
}

func (a *Authenticator) Enabled() bool {
	return a.username != "" && len(a.hash) > 0
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	if !a.Enabled() {
		return nil, ErrLoginDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  a.username,
		CreatedAt: now,
	}
	if a.ttl > 0 {
		sess.ExpiresAt = now.Add(a.ttl)
	}
	if err := a.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (a *Authenticator) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSession
	}
	sess, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(a.now()) {
		return nil, ErrInvalidSession
	}
	return sess, nil
}

func (a *Authenticator) Logout(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}
