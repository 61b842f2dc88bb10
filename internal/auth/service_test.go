package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"weather-app/internal/auth/credentials"
	"weather-app/internal/session"
	"weather-app/internal/storeop"
	"weather-app/internal/users"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *Service
	users    *users.MemoryStore
	sessions *session.MemoryStore
	clock    *clock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	c := &clock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	userStore := users.NewMemoryStore()
	sessionStore := session.NewMemoryStore(time.Hour, session.WithClock(c.Now))
	t.Cleanup(func() { _ = sessionStore.Close() })

	hasher, err := credentials.NewHasher(credentials.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	if cfg.Store == (storeop.Policy{}) {
		cfg.Store = storeop.Policy{Timeout: 100 * time.Millisecond, RetryDelay: time.Millisecond}
	}

	svc, err := NewService(userStore, sessionStore, hasher, cfg, WithClock(c.Now))
	require.NoError(t, err)

	return &fixture{svc: svc, users: userStore, sessions: sessionStore, clock: c}
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "bob", reg.Username)
	assert.Empty(t, reg.RedirectCity)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTTL), reg.ExpiresAt)

	login, err := f.svc.Login(ctx, "bob", "secret123")
	require.NoError(t, err)
	assert.NotEqual(t, reg.Token, login.Token)

	for _, tok := range []string{reg.Token, login.Token} {
		name, err := f.svc.Authorize(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, "bob", name)
	}
}

func TestRegister_UsernameTakenAnyCase(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "first-password")
	require.NoError(t, err)

	for _, name := range []string{"Alice", "alice", "ALICE", " alice "} {
		_, err := f.svc.Register(ctx, name, "other-password")
		assert.True(t, errors.Is(err, ErrUsernameTaken), name)
	}

	// the original password still works
	_, err = f.svc.Login(ctx, "alice", "first-password")
	assert.NoError(t, err)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "", "secret123")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.Register(ctx, "   ", "secret123")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.Register(ctx, "bob", "")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = f.svc.Register(ctx, "bob", string(make([]byte, 100)))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestLogin_CaseInsensitive(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Alice", "pw")
	require.NoError(t, err)

	grant, err := f.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", grant.Username)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, "bob", "wrong")
	_, unknownUser := f.svc.Login(ctx, "nobody", "secret123")
	_, emptyUser := f.svc.Login(ctx, "", "secret123")
	_, emptyPassword := f.svc.Login(ctx, "bob", "")

	for _, err := range []error{wrongPassword, unknownUser, emptyUser, emptyPassword} {
		assert.Equal(t, ErrInvalidCredentials, err)
	}
}

func TestLogin_RedirectCity(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateLastCity(ctx, "bob", "Warsaw"))

	grant, err := f.svc.Login(ctx, "BOB", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Warsaw", grant.RedirectCity)
}

func TestAuthorize_Rejections(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	grant, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)

	_, err = f.svc.Authorize(ctx, "")
	assert.Equal(t, ErrUnauthorized, err)

	never, err := session.GenerateToken()
	require.NoError(t, err)
	_, err = f.svc.Authorize(ctx, never)
	assert.Equal(t, ErrUnauthorized, err)

	f.clock.Advance(3599 * time.Second)
	_, err = f.svc.Authorize(ctx, grant.Token)
	assert.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.Authorize(ctx, grant.Token)
	assert.Equal(t, ErrUnauthorized, err)
}

func TestLogin_ConcurrentSessions(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)

	grants := make([]*Grant, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range grants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			grants[i], errs[i] = f.svc.Login(ctx, "bob", "secret123")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, grants[0].Token, grants[1].Token)

	for _, g := range grants {
		name, err := f.svc.Authorize(ctx, g.Token)
		require.NoError(t, err)
		assert.Equal(t, "bob", name)
	}
}

func TestLogout_KeepsSessionByDefault(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	grant, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, grant.Token))

	name, err := f.svc.Authorize(ctx, grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "bob", name)
}

func TestLogout_RevokeOnLogout(t *testing.T) {
	f := newFixture(t, Config{RevokeOnLogout: true})
	ctx := context.Background()

	first, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "bob", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, first.Token))

	_, err = f.svc.Authorize(ctx, first.Token)
	assert.Equal(t, ErrUnauthorized, err)

	// other devices stay signed in
	_, err = f.svc.Authorize(ctx, second.Token)
	assert.NoError(t, err)

	assert.NoError(t, f.svc.Logout(ctx, ""))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	grant, err := f.svc.Register(ctx, "bob", "secret123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(ctx, grant.Token))
	_, err = f.svc.Authorize(ctx, grant.Token)
	assert.Equal(t, ErrUnauthorized, err)
}

func TestTokenGeneratorFailure(t *testing.T) {
	f := newFixture(t, Config{})
	boom := errors.New("entropy exhausted")
	WithTokenGenerator(func() (string, error) { return "", boom })(f.svc)

	_, err := f.svc.Register(context.Background(), "bob", "secret123")
	assert.True(t, errors.Is(err, boom))
}

func TestNewService_DefaultTTL(t *testing.T) {
	f := newFixture(t, Config{})
	assert.Equal(t, DefaultSessionTTL, f.svc.cfg.SessionTTL)
}
