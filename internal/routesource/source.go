// Package routesource produces the ordered pickup sequence that the
// distributor splits across vehicles. A sequence comes either from the
// remote route optimizer or from a local nearest-neighbour estimate, and
// the caller always knows which one it got.
package routesource

import (
	"context"
	"errors"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// Kind names where a stop sequence came from.
type Kind string

const (
	KindRemote   Kind = "remote"
	KindEstimate Kind = "estimate"
)

var (
	// ErrUnavailable indicates the optimizer could not be reached or the
	// circuit breaker is open.
	ErrUnavailable = errors.New("route optimizer unavailable")

	// ErrRejected indicates the optimizer answered but declined the request.
	ErrRejected = errors.New("route optimizer rejected the request")

	// ErrInvalidResponse indicates the optimizer answered with something
	// that cannot be mapped back onto the request.
	ErrInvalidResponse = errors.New("invalid route optimizer response")

	// ErrNoGuests indicates there is nothing to sequence.
	ErrNoGuests = errors.New("no guests to sequence")
)

// Request describes one tour day to be sequenced.
type Request struct {
	Date         string
	ActivityType string
	PlannedStart schedule.TimeOfDay
	Activity     schedule.Point
	Departure    schedule.Point
	Guests       []schedule.Guest
	Vehicles     []schedule.Vehicle
}

// Result is an ordered stop sequence plus whatever route totals the
// source reported.
type Result struct {
	Kind            Kind
	Stops           []schedule.ScheduledStop
	TotalDistanceKm float64
	DurationLabel   string

	// EfficiencyScore is set only when the source computed one.
	EfficiencyScore *float64

	// Estimated is true when the sequence was not produced by the optimizer.
	Estimated bool
}

// Source yields an ordered stop sequence for a request.
type Source interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Error carries upstream failure details.
type Error struct {
	Source     string
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Source + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether trying again later may succeed.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrUnavailable)
}
