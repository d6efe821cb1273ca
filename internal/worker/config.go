// Package worker runs the background jobs of the pickup planner: periodic
// refresh of environment snapshots and Pub/Sub triggered refreshes.
package worker

import (
	"time"

	"github.com/ishigakitour/pickup/internal/environment"
)

// RefreshConfig holds configuration for the environment refresh job.
type RefreshConfig struct {
	// Days is how many tour days to refresh, starting today (default: 3).
	Days int

	// Concurrency is the number of concurrent provider calls (default: 3).
	Concurrency int

	// Timeout bounds the refresh of a single day (default: 30s).
	Timeout time.Duration

	// Interval is the period of the scheduled refresh (default: 30m).
	Interval time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Days:        3,
		Concurrency: 3,
		Timeout:     30 * time.Second,
		Interval:    30 * time.Minute,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Days <= 0 {
		c.Days = def.Days
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}

// Dates returns the island dates to refresh at now, today first.
func (c RefreshConfig) Dates(now time.Time) []time.Time {
	today := environment.Today(now)
	dates := make([]time.Time, 0, c.Days)
	for i := 0; i < c.Days; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates
}
