package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for tokens that were never issued and for tokens
// whose TTL has elapsed; callers cannot tell the two apart.
var ErrNotFound = errors.New("session: not found")

// Store maps opaque tokens to usernames with a fixed time-to-live.
// Implementations enforce expiry themselves.
type Store interface {
	Put(ctx context.Context, token, username string, ttl time.Duration) error
	Get(ctx context.Context, token string) (username string, err error)
	Delete(ctx context.Context, token string) error
}
