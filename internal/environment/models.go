// Package environment supplies tour-day weather, wind and tide conditions
// for the pickup planner.
package environment

import (
	"errors"
	"fmt"
	"time"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// Environment errors.
var (
	ErrProviderUnavailable = errors.New("environment provider unavailable")
	ErrInvalidDate         = errors.New("invalid date")
	ErrSnapshotNotFound    = errors.New("environment snapshot not found")
)

// DateLayout is the calendar date format used in requests and cache keys.
const DateLayout = "2006-01-02"

// Tokyo is the island's time zone.
var Tokyo = time.FixedZone("JST", 9*60*60)

// Conditions is the forecast for one tour day.
type Conditions struct {
	Date          string                    `json:"date"`
	Condition     schedule.WeatherCondition `json:"condition"`
	TemperatureC  float64                   `json:"temperatureC"`
	WindSpeedKph  float64                   `json:"windSpeedKph"`
	HumidityPct   float64                   `json:"humidityPct"`
	TideLevelCm   float64                   `json:"tideLevelCm"`
	TideEstimated bool                      `json:"tideEstimated"`
	Source        string                    `json:"source"`
	Estimated     bool                      `json:"estimated"`
	FetchedAt     time.Time                 `json:"fetchedAt"`
}

// SeaState is a coarse sea description derived from wind speed.
type SeaState string

const (
	SeaCalm     SeaState = "calm"
	SeaModerate SeaState = "moderate"
	SeaChoppy   SeaState = "choppy"
	SeaRough    SeaState = "rough"
)

// SeaState buckets wind speed in km/h.
func (c *Conditions) SeaState() SeaState {
	switch {
	case c.WindSpeedKph < 10:
		return SeaCalm
	case c.WindSpeedKph < 20:
		return SeaModerate
	case c.WindSpeedKph < 30:
		return SeaChoppy
	default:
		return SeaRough
	}
}

// TideStage is a coarse description of the tide level.
type TideStage string

const (
	TideSpring TideStage = "spring"
	TideHigh   TideStage = "high"
	TideMid    TideStage = "mid"
	TideLow    TideStage = "low"
)

// TideStage buckets the tide level in cm.
func (c *Conditions) TideStage() TideStage {
	switch {
	case c.TideLevelCm > 180:
		return TideSpring
	case c.TideLevelCm > 150:
		return TideHigh
	case c.TideLevelCm > 120:
		return TideMid
	default:
		return TideLow
	}
}

// ForValidation converts the conditions into the validator's input.
func (c *Conditions) ForValidation() *schedule.Environment {
	if c == nil {
		return nil
	}
	tide := c.TideLevelCm
	return &schedule.Environment{
		Condition:    c.Condition,
		WindSpeedKph: c.WindSpeedKph,
		TideLevelCm:  &tide,
	}
}

// ParseDate parses a YYYY-MM-DD date in island time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, Tokyo)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Today returns the current island date.
func Today(now time.Time) time.Time {
	y, m, d := now.In(Tokyo).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Tokyo)
}
