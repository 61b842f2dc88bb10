package auth

import (
	"errors"

	"weather-app/internal/storeop"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username taken")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("username and password are required")

	// ErrUpstreamUnavailable is returned when a store stays unreachable
	// after one retry.
	ErrUpstreamUnavailable = storeop.ErrUnavailable
)
