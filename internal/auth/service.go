package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weather-app/internal/auth/credentials"
	"weather-app/internal/logger"
	"weather-app/internal/session"
	"weather-app/internal/storeop"
	"weather-app/internal/users"
)

const DefaultSessionTTL = 3600 * time.Second

// Authorizer is the guard every protected operation passes through.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (username string, err error)
}

// PasswordHasher is satisfied by *credentials.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) bool
}

// Grant is handed to the client after a successful login or registration.
type Grant struct {
	Token        string
	Username     string
	RedirectCity string // empty for new users
	ExpiresAt    time.Time
}

type Config struct {
	SessionTTL time.Duration
	Store      storeop.Policy

	// RevokeOnLogout deletes the server-side session on logout. When false
	// logout only clears the client cookie and the token stays valid until
	// it expires.
	RevokeOnLogout bool
}

// Service issues and validates session tokens. It keeps no mutable state
// between calls.
type Service struct {
	users    users.Store
	sessions session.Store
	hasher   PasswordHasher
	cfg      Config

	now      func() time.Time
	newToken func() (string, error)

	// dummyHash is verified against when the username is unknown so both
	// login failures cost the same.
	dummyHash string
}

type Option func(*Service)

// WithClock overrides time.Now for grant expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator overrides session.GenerateToken.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

func NewService(
	userStore users.Store,
	sessionStore session.Store,
	hasher PasswordHasher,
	cfg Config,
	opts ...Option,
) (*Service, error) {

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	s := &Service{
		users:    userStore,
		sessions: sessionStore,
		hasher:   hasher,
		cfg:      cfg,
		now:      time.Now,
		newToken: session.GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(context.Background(), "not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Login verifies the credentials and mints a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*Grant, error) {
	if users.Canonicalize(username) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user *users.User
	err := s.cfg.Store.Do(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.Find(ctx, username)
		return err
	}, users.ErrNotFound)

	switch {
	case errors.Is(err, users.ErrNotFound):
		// hide whether user exists or not
		s.hasher.Verify(ctx, password, s.dummyHash)
		return nil, s.rejected(ctx)
	case err != nil:
		return nil, err
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, s.rejected(ctx)
	}

	return s.issue(ctx, user.Username, user.LastCity)
}

// Register creates the user and mints a session for it.
func (s *Service) Register(ctx context.Context, username, password string) (*Grant, error) {
	name := users.Canonicalize(username)
	if name == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.hasher.Hash(ctx, password)
	switch {
	case errors.Is(err, credentials.ErrEmptyPassword), errors.Is(err, credentials.ErrPasswordTooLong):
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case err != nil:
		return nil, fmt.Errorf("%w: hash password: %w", ErrUpstreamUnavailable, err)
	}

	err = s.cfg.Store.Do(ctx, func(ctx context.Context) error {
		_, err := s.users.Create(ctx, name, hash)
		return err
	}, users.ErrAlreadyExists)

	switch {
	case errors.Is(err, users.ErrAlreadyExists):
		return nil, ErrUsernameTaken
	case err != nil:
		return nil, err
	}

	logger.Info("user registered", map[string]any{
		"username": name,
	})

	return s.issue(ctx, name, "")
}

// Authorize resolves the username behind token. Empty, unknown and expired
// tokens all yield ErrUnauthorized.
func (s *Service) Authorize(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}

	var username string
	err := s.cfg.Store.Do(ctx, func(ctx context.Context) error {
		var err error
		username, err = s.sessions.Get(ctx, token)
		return err
	}, session.ErrNotFound)

	switch {
	case errors.Is(err, session.ErrNotFound):
		return "", ErrUnauthorized
	case err != nil:
		return "", err
	}

	return username, nil
}

// Logout ends the session from the server's point of view only when
// RevokeOnLogout is set. Otherwise the caller is expected to clear the
// client cookie and the token remains usable until it expires.
func (s *Service) Logout(ctx context.Context, token string) error {
	if !s.cfg.RevokeOnLogout || token == "" {
		return nil
	}
	return s.Revoke(ctx, token)
}

// Revoke deletes the session so the token stops authorizing immediately.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.cfg.Store.Do(ctx, func(ctx context.Context) error {
		return s.sessions.Delete(ctx, token)
	})
}

func (s *Service) issue(ctx context.Context, username, city string) (*Grant, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.SessionTTL)

	err = s.cfg.Store.Do(ctx, func(ctx context.Context) error {
		return s.sessions.Put(ctx, token, username, s.cfg.SessionTTL)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("session issued", map[string]any{
		"username":   username,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	return &Grant{
		Token:        token,
		Username:     username,
		RedirectCity: city,
		ExpiresAt:    expiresAt,
	}, nil
}

// rejected maps a failed verification to ErrInvalidCredentials unless the
// request itself was cancelled, which is not an authentication outcome.
func (s *Service) rejected(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return ErrInvalidCredentials
}
