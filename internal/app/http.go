package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"weather-app/internal/auth"
	"weather-app/internal/auth/credentials"
	authhandler "weather-app/internal/auth/handler"
	"weather-app/internal/config"
	"weather-app/internal/middleware"
	"weather-app/internal/preference"
	"weather-app/internal/session"
	"weather-app/internal/storeop"
	"weather-app/internal/weather"
	weatherhandler "weather-app/internal/weather/handler"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := SetupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	hasher, err := NewHasher(cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	policy := storeop.Policy{Timeout: cfg.Store.Timeout}

	authService, err := auth.NewService(infra.Users, infra.Sessions, hasher, auth.Config{
		SessionTTL:     cfg.Session.TTL,
		Store:          policy,
		RevokeOnLogout: cfg.Session.RevokeOnLogout,
	})
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	updater := preference.NewUpdater(authService, infra.Users, policy)
	provider := weather.NewOpenWeatherMap(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout)

	cookie := session.CookieOptions{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	authHandler := authhandler.NewHandler(authService, cookie, cfg.Weather.DefaultCity)
	weatherHandler := weatherhandler.NewHandler(provider, updater, cfg.Weather.DefaultCity)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected Routes
	// ----------------------------

	protected := router.Group("/")
	protected.Use(middleware.GinRequireAuth(authMiddleware))
	weatherHandler.RegisterRoutes(protected)

	return router, infra.Close, nil
}

// NewHasher builds the password hasher described by cfg.
func NewHasher(cfg config.Config) (*credentials.Hasher, error) {
	return credentials.NewHasher(
		credentials.WithAlgorithm(cfg.Hash.Algorithm),
		credentials.WithBcryptCost(cfg.Hash.BcryptCost),
		credentials.WithWorkers(cfg.Hash.Workers),
	)
}
