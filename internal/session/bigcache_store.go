package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigcacheStore keeps sessions off the Go heap. bigcache evicts on a fixed
// life window, so each entry also carries its own expiry which Get checks.
type BigcacheStore struct {
	cache  *bigcache.BigCache
	maxTTL time.Duration
	now    func() time.Time
}

// NewBigcacheStore sizes the cache life window to maxTTL; Put rejects
// longer TTLs.
func NewBigcacheStore(maxTTL, cleanWindow time.Duration, now func() time.Time) (*BigcacheStore, error) {
	if now == nil {
		now = time.Now
	}

	cfg := bigcache.DefaultConfig(maxTTL)
	cfg.CleanWindow = cleanWindow
	cfg.Verbose = false

	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: bigcache init: %w", err)
	}

	return &BigcacheStore{cache: cache, maxTTL: maxTTL, now: now}, nil
}

func (b *BigcacheStore) Put(_ context.Context, token, username string, ttl time.Duration) error {
	if token == "" || username == "" {
		return fmt.Errorf("session: missing token or username")
	}
	if ttl <= 0 {
		return fmt.Errorf("session: ttl must be positive")
	}
	if ttl > b.maxTTL {
		return fmt.Errorf("session: ttl %s exceeds cache life window %s", ttl, b.maxTTL)
	}

	buf := make([]byte, 8+len(username))
	binary.BigEndian.PutUint64(buf, uint64(b.now().Add(ttl).UnixNano()))
	copy(buf[8:], username)

	return b.cache.Set(token, buf)
}

func (b *BigcacheStore) Get(_ context.Context, token string) (string, error) {
	buf, err := b.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if len(buf) < 8 {
		return "", ErrNotFound
	}

	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(buf)))
	if !b.now().Before(expiresAt) {
		_ = b.cache.Delete(token)
		return "", ErrNotFound
	}

	return string(buf[8:]), nil
}

func (b *BigcacheStore) Delete(_ context.Context, token string) error {
	err := b.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (b *BigcacheStore) Close() error {
	return b.cache.Close()
}
