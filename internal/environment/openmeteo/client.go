// Package openmeteo fetches daily island forecasts from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/schedule"
)

const (
	// ProviderName identifies this environment provider.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com"

	dailyFields = "weather_code,temperature_2m_max,wind_speed_10m_max,relative_humidity_2m_mean"
)

// DefaultLocation is the forecast point for Ishigaki.
var DefaultLocation = struct{ Lat, Lng float64 }{Lat: 24.3336, Lng: 124.1543}

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to Open-Meteo).
	BaseURL string

	// Lat and Lng select the forecast point (optional, defaults to Ishigaki).
	Lat float64
	Lng float64

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	lat, lng   float64
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ environment.Provider = (*Client)(nil)

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	lat, lng := cfg.Lat, cfg.Lng
	if lat == 0 && lng == 0 {
		lat, lng = DefaultLocation.Lat, DefaultLocation.Lng
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		lat:        lat,
		lng:        lng,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// DailyConditions fetches the daily forecast for date. Open-Meteo has no
// tide data, so the tide level is always estimated.
func (c *Client) DailyConditions(ctx context.Context, date time.Time) (*environment.Conditions, error) {
	day := date.Format(environment.DateLayout)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.lng, 'f', 4, 64))
	q.Set("daily", dailyFields)
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "Asia/Tokyo")
	q.Set("start_date", day)
	q.Set("end_date", day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", environment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Reason != "" {
			return nil, fmt.Errorf("%w: status %d: %s", environment.ErrProviderUnavailable, resp.StatusCode, apiErr.Reason)
		}
		return nil, fmt.Errorf("%w: unexpected status code: %d", environment.ErrProviderUnavailable, resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	conditions, err := body.toConditions(day, date)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("date", day).
		Str("condition", string(conditions.Condition)).
		Float64("wind_kph", conditions.WindSpeedKph).
		Msg("received daily forecast")

	return conditions, nil
}

type forecastResponse struct {
	Daily struct {
		Time             []string   `json:"time"`
		WeatherCode      []*int     `json:"weather_code"`
		TemperatureMax   []*float64 `json:"temperature_2m_max"`
		WindSpeedMax     []*float64 `json:"wind_speed_10m_max"`
		RelativeHumidity []*float64 `json:"relative_humidity_2m_mean"`
	} `json:"daily"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// toConditions picks the entry for day out of the daily arrays.
func (r *forecastResponse) toConditions(day string, date time.Time) (*environment.Conditions, error) {
	idx := -1
	for i, t := range r.Daily.Time {
		if t == day {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no forecast for %s", environment.ErrProviderUnavailable, day)
	}

	out := &environment.Conditions{
		Date:          day,
		Condition:     schedule.WeatherUnknown,
		TideLevelCm:   environment.EstimateTideCm(date),
		TideEstimated: true,
		Source:        ProviderName,
		FetchedAt:     time.Now(),
	}
	if v := at(r.Daily.WeatherCode, idx); v != nil {
		out.Condition = environment.ConditionFromWMO(*v)
	}
	if v := at(r.Daily.TemperatureMax, idx); v != nil {
		out.TemperatureC = *v
	}
	if v := at(r.Daily.WindSpeedMax, idx); v != nil {
		out.WindSpeedKph = *v
	}
	if v := at(r.Daily.RelativeHumidity, idx); v != nil {
		out.HumidityPct = *v
	}
	return out, nil
}

func at[T any](values []*T, i int) *T {
	if i < len(values) {
		return values[i]
	}
	return nil
}
