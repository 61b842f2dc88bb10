package credentials

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var (
	ErrEmptyPassword    = errors.New("password is empty")
	ErrPasswordTooLong  = bcrypt.ErrPasswordTooLong
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

// Argon2Params tunes argon2id. Memory is in KiB.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// argon2 hashes claiming more memory or passes than this are treated as
// malformed.
const (
	maxArgon2Memory = 256 * 1024
	maxArgon2Time   = 16
)

// Hasher produces self-describing salted hashes. All hashing work runs on
// a bounded number of slots so login bursts queue instead of starving the
// request handlers.
type Hasher struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params
	slots      *semaphore.Weighted
}

type Option func(*Hasher)

func WithAlgorithm(name string) Option {
	return func(h *Hasher) { h.algorithm = name }
}

func WithBcryptCost(cost int) Option {
	return func(h *Hasher) { h.bcryptCost = cost }
}

func WithArgon2Params(p Argon2Params) Option {
	return func(h *Hasher) { h.argon = p }
}

// WithWorkers caps concurrent hash computations.
func WithWorkers(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

func NewHasher(opts ...Option) (*Hasher, error) {
	h := &Hasher{
		algorithm:  AlgorithmBcrypt,
		bcryptCost: bcrypt.DefaultCost,
		argon:      DefaultArgon2Params,
		slots:      semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	for _, opt := range opts {
		opt(h)
	}

	switch h.algorithm {
	case AlgorithmBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("credentials: bcrypt cost %d out of range", h.bcryptCost)
		}
	case AlgorithmArgon2id:
		p := h.argon
		if p.Time == 0 || p.Time > maxArgon2Time || p.Memory == 0 || p.Memory > maxArgon2Memory ||
			p.Threads == 0 || p.SaltLen == 0 || p.KeyLen == 0 {
			return nil, fmt.Errorf("credentials: argon2id params out of range")
		}
	default:
		return nil, fmt.Errorf("credentials: %w: %q", ErrUnknownAlgorithm, h.algorithm)
	}

	return h, nil
}

// Hash returns the encoded hash of password using the configured algorithm.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2id(password, h.argon)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches encoded. Malformed or unknown
// encodings yield false; so does a context cancelled while waiting.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(password, encoded)
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

func hashArgon2id(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credentials: salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var (
		memory, time uint32
		threads      uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgon2Memory || time == 0 || time > maxArgon2Time || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
