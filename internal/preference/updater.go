// Package preference persists per-user settings behind the session guard.
package preference

import (
	"context"
	"errors"
	"strings"

	"weather-app/internal/auth"
	"weather-app/internal/logger"
	"weather-app/internal/storeop"
	"weather-app/internal/users"
)

var ErrInvalidCity = errors.New("city is empty")

// CityStore is the slice of users.Store the updater writes through.
type CityStore interface {
	UpdateLastCity(ctx context.Context, username, city string) error
}

type Updater struct {
	auth   auth.Authorizer
	users  CityStore
	policy storeop.Policy
}

func NewUpdater(authorizer auth.Authorizer, store CityStore, policy storeop.Policy) *Updater {
	return &Updater{
		auth:   authorizer,
		users:  store,
		policy: policy,
	}
}

// SetLastCity records city as the last one the token's owner looked at.
// Nothing is written unless the token authorizes.
func (u *Updater) SetLastCity(ctx context.Context, token, city string) error {
	username, err := u.auth.Authorize(ctx, token)
	if err != nil {
		return err
	}

	city = strings.TrimSpace(city)
	if city == "" {
		return ErrInvalidCity
	}

	err = u.policy.Do(ctx, func(ctx context.Context) error {
		return u.users.UpdateLastCity(ctx, username, city)
	}, users.ErrNotFound)

	if errors.Is(err, users.ErrNotFound) {
		// session outlived its user record
		logger.Warn("last city not saved: user missing", map[string]any{
			"username": username,
		})
		return nil
	}
	return err
}
