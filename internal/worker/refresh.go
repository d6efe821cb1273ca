package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/environment"
)

// Refresher fetches fresh conditions for a date and publishes them to the
// shared snapshot store.
type Refresher interface {
	Refresh(ctx context.Context, date time.Time) (*environment.Conditions, error)
}

// RefreshJob refreshes environment snapshots for upcoming tour days.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	refresher Refresher
	now       func() time.Time

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	SuccessfulDates int64
	FailedDates     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Refresher Refresher

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		logger:    cfg.Logger,
		refresher: cfg.Refresher,
		now:       now,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalDates int
	Successful int
	Failed     int
	Errors     []RefreshError
}

// RefreshError records a failed date.
type RefreshError struct {
	Date  string
	Error string
}

// Run refreshes today and the configured number of following days.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunDates(ctx, j.config.Dates(j.now()))
}

// RunDates refreshes the given dates with a bounded worker pool.
func (j *RefreshJob) RunDates(ctx context.Context, dates []time.Time) *RefreshResult {
	startTime := j.now()
	result := &RefreshResult{
		StartTime:  startTime,
		TotalDates: len(dates),
	}

	j.logger.Info().
		Int("total_dates", result.TotalDates).
		Int("concurrency", j.config.Concurrency).
		Msg("starting environment refresh job")

	datesChan := make(chan time.Time, len(dates))
	resultsChan := make(chan dateResult, len(dates))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, datesChan, resultsChan)
		}()
	}

	for _, d := range dates {
		datesChan <- d
	}
	close(datesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for dr := range resultsChan {
		if dr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{Date: dr.date, Error: dr.err.Error()})
	}
	// Dates never picked up because the context ended count as failed.
	if skipped := result.TotalDates - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("environment refresh job completed")

	return result
}

type dateResult struct {
	date string
	err  error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, dates <-chan time.Time, results chan<- dateResult) {
	for date := range dates {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshDate(ctx, date)
		}
	}
}

func (j *RefreshJob) refreshDate(ctx context.Context, date time.Time) dateResult {
	key := date.Format(environment.DateLayout)
	if j.refresher == nil {
		return dateResult{date: key, err: environment.ErrProviderUnavailable}
	}

	dateCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	c, err := j.refresher.Refresh(dateCtx, date)
	if err != nil {
		j.logger.Warn().Err(err).Str("date", key).Msg("environment refresh failed")
		return dateResult{date: key, err: err}
	}

	j.logger.Debug().
		Str("date", key).
		Str("condition", string(c.Condition)).
		Float64("wind_kph", c.WindSpeedKph).
		Msg("environment refreshed")
	return dateResult{date: key}
}

// Start runs the job immediately and then every configured interval until
// ctx is done.
func (j *RefreshJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("environment refresh loop stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulDates += int64(result.Successful)
	j.metrics.FailedDates += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		SuccessfulDates: j.metrics.SuccessfulDates,
		FailedDates:     j.metrics.FailedDates,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the current metrics as a map for the health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_dates":  m.SuccessfulDates,
		"failed_dates":      m.FailedDates,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
