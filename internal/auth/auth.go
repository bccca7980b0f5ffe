// Package auth registers dashboard users and verifies their passwords.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMinPasswordLen is the shortest password Register accepts.
const DefaultMinPasswordLen = 6

var (
	ErrMissingFields    = errors.New("username and password are required")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrUserExists       = errors.New("username already exists")
	ErrInvalidLogin     = errors.New("invalid username or password")
)

// CredentialStore persists password hashes by username.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (hash string, ok bool, err error)
	Store(ctx context.Context, username, hash string) error
}

// Session is one successful login.
type Session struct {
	ID        uuid.UUID
	Username  string
	LoginTime time.Time
}

// Service applies the registration and password rules over a CredentialStore.
type Service struct {
	store  CredentialStore
	minLen int
	now    func() time.Time
}

// NewService creates a Service. minLen below 1 uses DefaultMinPasswordLen.
func NewService(store CredentialStore, minLen int) *Service {
	if minLen < 1 {
		minLen = DefaultMinPasswordLen
	}
	return &Service{store: store, minLen: minLen, now: time.Now}
}

// HashPassword returns the hex SHA-256 digest stored for a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *Service) checkNew(password, confirm string) error {
	if len(password) < s.minLen {
		return fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, s.minLen)
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// Register creates a user. The username is trimmed of surrounding space.
func (s *Service) Register(ctx context.Context, username, password, confirm string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingFields
	}
	if err := s.checkNew(password, confirm); err != nil {
		return err
	}
	_, exists, err := s.store.Lookup(ctx, username)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", username, err)
	}
	if exists {
		return ErrUserExists
	}
	if err := s.store.Store(ctx, username, HashPassword(password)); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}

// Verify reports whether password matches the stored hash for username.
// An unknown user is not an error.
func (s *Service) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, ok, err := s.store.Lookup(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("looking up %s: %w", username, err)
	}
	if !ok {
		return false, nil
	}
	got := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, ErrMissingFields
	}
	ok, err := s.Verify(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidLogin
	}
	return Session{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(username),
		LoginTime: s.now(),
	}, nil
}

// UpdatePassword replaces the password after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, username, current, next, confirm string) error {
	if current == "" || next == "" {
		return ErrMissingFields
	}
	if err := s.checkNew(next, confirm); err != nil {
		return err
	}
	ok, err := s.Verify(ctx, username, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidLogin
	}
	if err := s.store.Store(ctx, strings.TrimSpace(username), HashPassword(next)); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}
