package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"weather-app/internal/auth"
)

func (h *Handler) Login(c *gin.Context) {
	g, err := h.auth.Login(
		c.Request.Context(),
		c.PostForm("username"),
		c.PostForm("password"),
	)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.Redirect(http.StatusFound, "/?wrong_cred=true")
		return
	case err != nil:
		upstreamFailure(c, "login", err)
		return
	}

	city := g.RedirectCity
	if city == "" {
		city = h.defaultCity
	}
	h.grant(c, g, city)
}
