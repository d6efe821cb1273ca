package openmeteo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/environment/openmeteo"
	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/schedule"
)

const dailyBody = `{
  "latitude": 24.34,
  "longitude": 124.16,
  "timezone": "Asia/Tokyo",
  "daily": {
    "time": ["2026-07-15"],
    "weather_code": [61],
    "temperature_2m_max": [31.2],
    "wind_speed_10m_max": [27.4],
    "relative_humidity_2m_mean": [82]
  }
}`

func newClient(t *testing.T, handler http.HandlerFunc) *openmeteo.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_DailyConditions(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "24.3336", q.Get("latitude"))
		assert.Equal(t, "124.1543", q.Get("longitude"))
		assert.Equal(t, "kmh", q.Get("wind_speed_unit"))
		assert.Equal(t, "Asia/Tokyo", q.Get("timezone"))
		assert.Equal(t, "2026-07-15", q.Get("start_date"))
		assert.Equal(t, "2026-07-15", q.Get("end_date"))
		assert.Contains(t, q.Get("daily"), "wind_speed_10m_max")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(dailyBody))
	})

	date, err := environment.ParseDate("2026-07-15")
	require.NoError(t, err)

	c, err := client.DailyConditions(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, "2026-07-15", c.Date)
	assert.Equal(t, schedule.WeatherRainy, c.Condition)
	assert.Equal(t, 31.2, c.TemperatureC)
	assert.Equal(t, 27.4, c.WindSpeedKph)
	assert.Equal(t, 82.0, c.HumidityPct)
	assert.Equal(t, environment.EstimateTideCm(date), c.TideLevelCm)
	assert.True(t, c.TideEstimated)
	assert.False(t, c.Estimated)
	assert.Equal(t, openmeteo.ProviderName, c.Source)
	assert.Equal(t, environment.SeaChoppy, c.SeaState())
}

func TestClient_NullValues(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"daily":{"time":["2026-07-15"],"weather_code":[null],"temperature_2m_max":[null]}}`))
	})

	date, _ := environment.ParseDate("2026-07-15")
	c, err := client.DailyConditions(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, schedule.WeatherUnknown, c.Condition)
	assert.Zero(t, c.WindSpeedKph)
}

func TestClient_Errors(t *testing.T) {
	date, _ := environment.ParseDate("2026-07-15")

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"error":true,"reason":"start_date is out of allowed range"}`},
		{"server error", http.StatusServiceUnavailable, ``},
		{"missing day", http.StatusOK, `{"daily":{"time":["2026-07-16"],"weather_code":[0]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.DailyConditions(context.Background(), date)
			assert.ErrorIs(t, err, environment.ErrProviderUnavailable)
		})
	}
}

func TestClient_DefaultsToResilientClient(t *testing.T) {
	registry := resilience.NewRegistry()
	client := openmeteo.NewClient(openmeteo.ClientConfig{Registry: registry})

	assert.Equal(t, openmeteo.ProviderName, client.Name())
	assert.NotNil(t, registry.GetHealth(openmeteo.ProviderName))
}

func TestClient_UsesConfiguredLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "24.4041", r.URL.Query().Get("latitude"))
		w.Write([]byte(dailyBody))
	}))
	defer server.Close()

	client := openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    server.URL + "/",
		Lat:        24.4041,
		Lng:        124.1611,
		HTTPClient: &http.Client{Timeout: time.Second},
	})
	date, _ := environment.ParseDate("2026-07-15")
	_, err := client.DailyConditions(context.Background(), date)
	require.NoError(t, err)
}
