package users

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPasswordHash = "password_hash"
	fieldLastCity     = "last_city"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// updateIfExists refuses to create a hash for an unknown user.
var updateIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[4])
return 1
`)

// RedisStore keeps one hash per user under "user:<canonical name>".
// Durability follows the server's persistence settings (AOF recommended).
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "user:",
	}
}

func (r *RedisStore) key(username string) string {
	return r.prefix + Canonicalize(username)
}

func (r *RedisStore) Find(ctx context.Context, username string) (*User, error) {
	fields, err := r.client.HGetAll(ctx, r.key(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	hash, ok := fields[fieldPasswordHash]
	if !ok {
		return nil, ErrNotFound
	}

	return &User{
		Username:     Canonicalize(username),
		PasswordHash: hash,
		LastCity:     fields[fieldLastCity],
	}, nil
}

func (r *RedisStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	key := r.key(username)

	created, err := r.client.HSetNX(ctx, key, fieldPasswordHash, passwordHash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if !created {
		return nil, ErrAlreadyExists
	}

	if err := r.client.HSet(ctx, key, fieldCreatedAt, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	return &User{Username: Canonicalize(username), PasswordHash: passwordHash}, nil
}

func (r *RedisStore) UpdateLastCity(ctx context.Context, username, city string) error {
	updated, err := updateIfExists.Run(ctx, r.client,
		[]string{r.key(username)},
		fieldLastCity, city,
		fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339),
	).Int()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}
