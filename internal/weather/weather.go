// Package weather fetches current conditions for a city.
package weather

import (
	"context"
	"errors"
)

var (
	ErrCityNotFound        = errors.New("city not found")
	ErrUpstreamUnavailable = errors.New("weather service unavailable")
)

// Report is the normalized current-weather record.
type Report struct {
	City               string  `json:"city"`
	Condition          string  `json:"weather_type"`
	TemperatureCelsius float64 `json:"temp"`
	Humidity           int     `json:"humidity"`
	Pressure           int     `json:"pressure"`
}

type Provider interface {
	// Fetch resolves city and returns its current weather. Report.City is the
	// provider's canonical name for the place.
	Fetch(ctx context.Context, city string) (Report, error)
}
