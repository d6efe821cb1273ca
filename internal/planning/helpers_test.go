package planning_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// fakeSource is a scripted route source.
type fakeSource struct {
	name  string
	kind  routesource.Kind
	calls atomic.Int32
	fetch func(ctx context.Context, req routesource.Request) (*routesource.Result, error)
}

func (f *fakeSource) Name() string           { return f.name }
func (f *fakeSource) Kind() routesource.Kind { return f.kind }

func (f *fakeSource) Fetch(ctx context.Context, req routesource.Request) (*routesource.Result, error) {
	f.calls.Add(1)
	return f.fetch(ctx, req)
}

// inOrderRemote returns guests in request order, 15 minutes apart from 09:00.
func inOrderRemote() *fakeSource {
	return &fakeSource{
		name: routesource.RemoteName,
		kind: routesource.KindRemote,
		fetch: func(_ context.Context, req routesource.Request) (*routesource.Result, error) {
			stops := make([]schedule.ScheduledStop, len(req.Guests))
			for i, g := range req.Guests {
				stops[i] = schedule.ScheduledStop{Guest: g, PickupTime: schedule.Clock(9, 0).Add(15 * i)}
			}
			score := 87.5
			return &routesource.Result{
				Kind:            routesource.KindRemote,
				Stops:           stops,
				TotalDistanceKm: 21.4,
				DurationLabel:   "55 min",
				EfficiencyScore: &score,
			}, nil
		},
	}
}

func failingRemote(err error) *fakeSource {
	return &fakeSource{
		name: routesource.RemoteName,
		kind: routesource.KindRemote,
		fetch: func(context.Context, routesource.Request) (*routesource.Result, error) {
			return nil, err
		},
	}
}

func unavailableError() *routesource.Error {
	return &routesource.Error{
		Source:  routesource.RemoteName,
		Code:    "unavailable",
		Message: "optimizer unreachable",
		Err:     routesource.ErrUnavailable,
	}
}

func guests() []schedule.Guest {
	window := schedule.Window{Start: schedule.Clock(9, 0), End: schedule.Clock(9, 30)}
	return []schedule.Guest{
		{ID: "g1", Name: "Sato", HotelName: "ANA InterContinental", Location: schedule.Point{Lat: 24.3920, Lng: 124.1440}, PeopleCount: 2, PreferredWindow: window},
		{ID: "g2", Name: "Suzuki", HotelName: "Fusaki Beach Resort", Location: schedule.Point{Lat: 24.3765, Lng: 124.1373}, PeopleCount: 3, PreferredWindow: window},
		{ID: "g3", Name: "Tanaka", HotelName: "Hotel Nikko Yaeyama", Location: schedule.Point{Lat: 24.3407, Lng: 124.1559}, PeopleCount: 1, PreferredWindow: window},
	}
}

func vehicles() []schedule.Vehicle {
	return []schedule.Vehicle{
		{ID: "v1", Name: "Hiace 1", DriverName: "Higa", Capacity: 4},
		{ID: "v2", Name: "Hiace 2", DriverName: "Oshiro", Capacity: 4},
	}
}

func tour() *roster.Tour {
	t := roster.DefaultTour("2026-10-20")
	return &t
}

func inlineRequest(mode planning.SourceMode) planning.PlanRequest {
	return planning.PlanRequest{
		Source:   mode,
		Guests:   guests(),
		Vehicles: vehicles(),
		Tour:     tour(),
	}
}

func newFlags(t *testing.T, values map[string]interface{}) *featureflags.Service {
	t.Helper()
	svc := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	})
	for key, value := range values {
		if err := svc.SetFlag(context.Background(), &featureflags.Flag{Key: key, Value: value}); err != nil {
			t.Fatalf("set flag %s: %v", key, err)
		}
	}
	return svc
}

// fakeEnvironment serves fixed conditions and records which lookup ran.
type fakeEnvironment struct {
	conditions *environment.Conditions
	err        error
	gets       atomic.Int32
	cached     atomic.Int32
}

func (f *fakeEnvironment) Get(context.Context, time.Time) (*environment.Conditions, error) {
	f.gets.Add(1)
	return f.conditions, f.err
}

func (f *fakeEnvironment) Cached(context.Context, time.Time) (*environment.Conditions, error) {
	f.cached.Add(1)
	return f.conditions, f.err
}

type serviceOptions struct {
	remote      routesource.Source
	roster      planning.Roster
	environment planning.EnvironmentSource
	flags       planning.Flags
	dispatcher  *dispatch.Dispatcher
}

func newService(opts serviceOptions) *planning.Service {
	cfg := planning.ServiceConfig{
		Remote:      opts.remote,
		Roster:      opts.roster,
		Environment: opts.environment,
		Flags:       opts.flags,
		Dispatcher:  opts.dispatcher,
		Logger:      zerolog.Nop(),
	}
	return planning.NewService(cfg)
}
