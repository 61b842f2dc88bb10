package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"weather-app/internal/auth"
	"weather-app/internal/logger"
	"weather-app/internal/preference"
	"weather-app/internal/session"
	"weather-app/internal/weather"
)

// Preferences persists the city a user last switched to.
type Preferences interface {
	SetLastCity(ctx context.Context, token, city string) error
}

type Handler struct {
	provider    weather.Provider
	prefs       Preferences
	defaultCity string
}

func NewHandler(p weather.Provider, prefs Preferences, defaultCity string) *Handler {
	return &Handler{
		provider:    p,
		prefs:       prefs,
		defaultCity: defaultCity,
	}
}

// RegisterRoutes expects r to already sit behind the auth guard.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/weather", h.Show)
	r.POST("/weather", h.ChangeCity)
}

func (h *Handler) Show(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		city = h.defaultCity
	}
	notFound, _ := strconv.ParseBool(c.Query("not_found"))

	rep, err := h.provider.Fetch(c.Request.Context(), city)
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"city":      city,
			"not_found": true,
		})
		return
	case err != nil:
		weatherFailure(c, city, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"city":         rep.City,
		"weather_type": rep.Condition,
		"temp":         rep.TemperatureCelsius,
		"humidity":     rep.Humidity,
		"pressure":     rep.Pressure,
		"not_found":    notFound,
	})
}

// ChangeCity switches to the posted city when the provider knows it and
// remembers it for the next login. Unknown cities bounce back to old_city.
func (h *Handler) ChangeCity(c *gin.Context) {
	city := c.PostForm("city")
	oldCity := c.PostForm("old_city")

	rep, err := h.provider.Fetch(c.Request.Context(), city)
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		c.Redirect(http.StatusFound, "/weather?"+url.Values{
			"city":      {oldCity},
			"not_found": {"true"},
		}.Encode())
		return
	case err != nil:
		weatherFailure(c, city, err)
		return
	}

	err = h.prefs.SetLastCity(c.Request.Context(), session.TokenFromRequest(c.Request), rep.City)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	case errors.Is(err, preference.ErrInvalidCity):
		// provider resolved the city to an empty name; nothing to store
	case err != nil:
		logger.Error("save last city failed", map[string]any{
			"city":  rep.City,
			"error": err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}

	c.Redirect(http.StatusFound, "/weather?"+url.Values{"city": {rep.City}}.Encode())
}

func weatherFailure(c *gin.Context, city string, err error) {
	logger.Error("weather lookup failed", map[string]any{
		"city":  city,
		"error": err.Error(),
	})
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "weather service unavailable"})
}
