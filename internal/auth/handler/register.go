package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"weather-app/internal/auth"
)

func (h *Handler) Register(c *gin.Context) {
	g, err := h.auth.Register(
		c.Request.Context(),
		c.PostForm("username"),
		c.PostForm("password"),
	)

	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		c.Redirect(http.StatusFound, "/?username_taken=true")
		return
	case errors.Is(err, auth.ErrInvalidInput):
		c.Redirect(http.StatusFound, "/?wrong_cred=true")
		return
	case err != nil:
		upstreamFailure(c, "register", err)
		return
	}

	h.grant(c, g, "")
}
