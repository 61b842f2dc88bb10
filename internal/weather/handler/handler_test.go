package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"weather-app/internal/auth"
	"weather-app/internal/auth/credentials"
	"weather-app/internal/middleware"
	"weather-app/internal/preference"
	"weather-app/internal/session"
	"weather-app/internal/storeop"
	"weather-app/internal/users"
	"weather-app/internal/weather"
)

type fakeProvider map[string]weather.Report

func (f fakeProvider) Fetch(_ context.Context, city string) (weather.Report, error) {
	if city == "Storm" {
		return weather.Report{}, fmt.Errorf("%w: status 502", weather.ErrUpstreamUnavailable)
	}
	rep, ok := f[strings.ToLower(city)]
	if !ok {
		return weather.Report{}, weather.ErrCityNotFound
	}
	return rep, nil
}

var reports = fakeProvider{
	"poznań": {City: "Poznań", Condition: "Clouds", TemperatureCelsius: 11.5, Humidity: 70, Pressure: 1008},
	"warsaw": {City: "Warsaw", Condition: "Clear", TemperatureCelsius: 20, Humidity: 40, Pressure: 1013},
}

type fixture struct {
	router *gin.Engine
	svc    *auth.Service
	users  *users.MemoryStore
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	policy := storeop.Policy{Timeout: 100 * time.Millisecond, RetryDelay: time.Millisecond}
	userStore := users.NewMemoryStore()
	sessions := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = sessions.Close() })

	hasher, err := credentials.NewHasher(credentials.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	svc, err := auth.NewService(userStore, sessions, hasher, auth.Config{Store: policy})
	require.NoError(t, err)

	g, err := svc.Register(context.Background(), "bob", "secret123")
	require.NoError(t, err)

	r := gin.New()
	protected := r.Group("/")
	protected.Use(middleware.GinRequireAuth(middleware.NewAuthMiddleware(svc)))
	NewHandler(reports, preference.NewUpdater(svc, userStore, policy), "Poznań").RegisterRoutes(protected)

	return &fixture{router: r, svc: svc, users: userStore, token: g.Token}
}

func (f *fixture) lastCity(t *testing.T) string {
	t.Helper()
	u, err := f.users.Find(context.Background(), "bob")
	require.NoError(t, err)
	return u.LastCity
}

func TestShow_DefaultCity(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.city", "Poznań")).
		Assert(jsonpath.Equal("$.weather_type", "Clouds")).
		Assert(jsonpath.Equal("$.temp", 11.5)).
		Assert(jsonpath.Equal("$.humidity", float64(70))).
		Assert(jsonpath.Equal("$.pressure", float64(1008))).
		Assert(jsonpath.Equal("$.not_found", false)).
		End()
}

func TestShow_NotFoundFlag(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Query("city", "warsaw").
		Query("not_found", "true").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.city", "Warsaw")).
		Assert(jsonpath.Equal("$.not_found", true)).
		End()
}

func TestShow_UnknownCity(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Query("city", "Atlantis").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.not_found", true)).
		End()
}

func TestShow_ProviderDown(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Query("city", "Storm").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusServiceUnavailable).
		End()
}

func TestShow_RequiresSession(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(f.router).
		Get("/weather").
		Cookie(session.CookieName, "0").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestChangeCity(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Post("/weather").
		FormData("city", "warsaw").
		FormData("old_city", "Poznań").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusFound).
		Header("Location", "/weather?city=Warsaw").
		End()

	assert.Equal(t, "Warsaw", f.lastCity(t))

	g, err := f.svc.Login(context.Background(), "bob", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Warsaw", g.RedirectCity)
}

func TestChangeCity_UnknownIsNotPersisted(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Post("/weather").
		FormData("city", "Atlantis").
		FormData("old_city", "Warsaw").
		Cookie(session.CookieName, f.token).
		Expect(t).
		Status(http.StatusFound).
		Header("Location", "/weather?city=Warsaw&not_found=true").
		End()

	assert.Empty(t, f.lastCity(t))
}

func TestChangeCity_RequiresSession(t *testing.T) {
	f := newFixture(t)

	apitest.New().
		Handler(f.router).
		Post("/weather").
		FormData("city", "warsaw").
		FormData("old_city", "Poznań").
		Cookie(session.CookieName, "forged").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	assert.Empty(t, f.lastCity(t))
}
