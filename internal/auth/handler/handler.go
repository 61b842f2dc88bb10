package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"weather-app/internal/auth"
	"weather-app/internal/logger"
	"weather-app/internal/session"
)

// Authenticator is the part of auth.Service the HTTP layer drives.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Grant, error)
	Register(ctx context.Context, username, password string) (*auth.Grant, error)
	Logout(ctx context.Context, token string) error
}

type Handler struct {
	auth        Authenticator
	cookie      session.CookieOptions
	defaultCity string
}

func NewHandler(a Authenticator, cookie session.CookieOptions, defaultCity string) *Handler {
	return &Handler{
		auth:        a,
		cookie:      cookie,
		defaultCity: defaultCity,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.POST("/token", h.Login)
	r.POST("/register", h.Register)
	r.POST("/logout", h.Logout)
}

// Index reports which entry-screen banners should be shown.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"wrong_cred":     queryBool(c, "wrong_cred"),
		"username_taken": queryBool(c, "username_taken"),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token := session.TokenFromRequest(c.Request)

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		// the cookie is cleared regardless
		logger.Warn("logout revoke failed", map[string]any{
			"error": err.Error(),
		})
	}

	session.ClearCookie(c.Writer, h.cookie)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) grant(c *gin.Context, g *auth.Grant, city string) {
	session.SetCookie(c.Writer, g.Token, g.ExpiresAt, h.cookie)

	target := "/weather"
	if city != "" {
		target += "?" + url.Values{"city": {city}}.Encode()
	}
	c.Redirect(http.StatusFound, target)
}

func upstreamFailure(c *gin.Context, op string, err error) {
	logger.Error(op+" failed", map[string]any{
		"error": err.Error(),
	})
	status := http.StatusInternalServerError
	if errors.Is(err, auth.ErrUpstreamUnavailable) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": "service unavailable"})
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
