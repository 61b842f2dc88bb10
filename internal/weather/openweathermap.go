package weather

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"
	currentPath    = "/data/2.5/weather"

	kelvinOffset = 273.15
	maxBodyBytes = 1 << 20
)

type OpenWeatherMap struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type OWMOption func(*OpenWeatherMap)

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(c *http.Client) OWMOption {
	return func(o *OpenWeatherMap) { o.client = c }
}

func NewOpenWeatherMap(baseURL, apiKey string, timeout time.Duration, opts ...OWMOption) *OpenWeatherMap {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	o := &OpenWeatherMap{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenWeatherMap) Fetch(ctx context.Context, city string) (Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Report{}, ErrCityNotFound
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+currentPath+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Report{}, fmt.Errorf("%w: read body: %w", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Report{}, ErrCityNotFound
	case resp.StatusCode != http.StatusOK:
		return Report{}, fmt.Errorf("%w: status %d: %s",
			ErrUpstreamUnavailable, resp.StatusCode, gjson.GetBytes(body, "message").String())
	}

	return parseCurrent(body)
}

func parseCurrent(body []byte) (Report, error) {
	if !gjson.ValidBytes(body) {
		return Report{}, fmt.Errorf("%w: malformed response", ErrUpstreamUnavailable)
	}

	res := gjson.GetManyBytes(body,
		"name",
		"weather.0.main",
		"main.temp",
		"main.humidity",
		"main.pressure",
	)
	name, condition, temp := res[0], res[1], res[2]
	if !name.Exists() || !temp.Exists() {
		return Report{}, fmt.Errorf("%w: incomplete response", ErrUpstreamUnavailable)
	}

	return Report{
		City:               name.String(),
		Condition:          condition.String(),
		TemperatureCelsius: kelvinToCelsius(temp.Float()),
		Humidity:           int(res[3].Int()),
		Pressure:           int(res[4].Int()),
	}, nil
}

func kelvinToCelsius(k float64) float64 {
	return math.Round((k-kelvinOffset)*100) / 100
}
