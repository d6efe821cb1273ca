package routesource

import (
	"context"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// EstimateName is the source name reported for local estimates.
const EstimateName = "local-estimate"

// EstimateConfig tunes LocalEstimate.
type EstimateConfig struct {
	// AverageSpeedKph defaults to schedule.DefaultAverageSpeedKph.
	AverageSpeedKph float64

	// StopBufferMinutes defaults to schedule.DefaultStopBufferMinutes.
	StopBufferMinutes int
}

// LocalEstimate sequences guests without any network call. It builds a
// nearest-neighbour chain outward from the activity location and then
// reverses it, so the farthest guest is collected first and the route
// closes at the activity. Pickup times are counted backwards from the
// planned start.
type LocalEstimate struct {
	speedKph float64
	buffer   int
}

var _ Source = (*LocalEstimate)(nil)

// NewLocalEstimate creates a LocalEstimate.
func NewLocalEstimate(cfg EstimateConfig) *LocalEstimate {
	if cfg.AverageSpeedKph <= 0 {
		cfg.AverageSpeedKph = schedule.DefaultAverageSpeedKph
	}
	if cfg.StopBufferMinutes <= 0 {
		cfg.StopBufferMinutes = schedule.DefaultStopBufferMinutes
	}
	return &LocalEstimate{speedKph: cfg.AverageSpeedKph, buffer: cfg.StopBufferMinutes}
}

func (e *LocalEstimate) Name() string { return EstimateName }

func (e *LocalEstimate) Kind() Kind { return KindEstimate }

// Fetch never fails for a non-empty guest list.
func (e *LocalEstimate) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Guests) == 0 {
		return nil, ErrNoGuests
	}

	order := nearestChain(req.Activity, req.Guests)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	stops := make([]schedule.ScheduledStop, len(order))
	var km float64
	minutes := 0
	at := req.PlannedStart
	next := req.Activity
	for i := len(order) - 1; i >= 0; i-- {
		g := req.Guests[order[i]]
		leg := schedule.DistanceKm(g.Location, next)
		need := schedule.TravelMinutes(leg, e.speedKph) + e.buffer
		at = at.AddClamped(-need)
		stops[i] = schedule.ScheduledStop{Guest: g, PickupTime: at}

		km += leg
		minutes += need
		next = g.Location
	}

	return &Result{
		Kind:            KindEstimate,
		Stops:           stops,
		TotalDistanceKm: schedule.Round1(km),
		DurationLabel:   schedule.DurationLabel(minutes),
		Estimated:       true,
	}, nil
}

// nearestChain returns guest indexes ordered by repeatedly visiting the
// closest unvisited guest, starting from origin. Ties keep input order.
func nearestChain(origin schedule.Point, guests []schedule.Guest) []int {
	visited := make([]bool, len(guests))
	order := make([]int, 0, len(guests))
	at := origin
	for len(order) < len(guests) {
		best := -1
		bestKm := 0.0
		for i := range guests {
			if visited[i] {
				continue
			}
			d := schedule.DistanceKm(at, guests[i].Location)
			if best < 0 || d < bestKm {
				best, bestKm = i, d
			}
		}
		visited[best] = true
		order = append(order, best)
		at = guests[best].Location
	}
	return order
}
