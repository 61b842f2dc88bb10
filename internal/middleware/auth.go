package middleware

import (
	"context"
	"errors"
	"net/http"

	"weather-app/internal/auth"
	"weather-app/internal/logger"
	"weather-app/internal/session"
)

// unexported, collision-proof context key
type usernameContextKeyType struct{}

var usernameKey = usernameContextKeyType{}

// UsernameFromContext extracts the authenticated username from context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok
}

// WithUsername returns a copy of ctx carrying username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

type AuthMiddleware struct {
	Auth auth.Authorizer
}

func NewAuthMiddleware(a auth.Authorizer) *AuthMiddleware {
	return &AuthMiddleware{Auth: a}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.TokenFromRequest(r)

		username, err := a.Auth.Authorize(r.Context(), token)
		switch {
		case errors.Is(err, auth.ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		case err != nil:
			logger.Error("authorize failed", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}
