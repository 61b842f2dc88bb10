package users

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

// User is the durable record kept per account. LastCity is empty until the
// user picks a city.
type User struct {
	Username     string
	PasswordHash string
	LastCity     string
}

// Store persists users keyed by their canonical username.
// Implementations must make Create atomic with respect to concurrent
// registrations of the same username.
type Store interface {
	Find(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	UpdateLastCity(ctx context.Context, username, city string) error
}

// Canonicalize returns the form usernames are compared and stored in.
func Canonicalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
