package planning_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/featureflags"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

func TestParseSourceMode(t *testing.T) {
	tests := []struct {
		in      string
		want    planning.SourceMode
		wantErr bool
	}{
		{"", planning.SourceAuto, false},
		{"auto", planning.SourceAuto, false},
		{"remote", planning.SourceRemote, false},
		{"estimate", planning.SourceEstimate, false},
		{"google", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := planning.ParseSourceMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, planning.ErrInvalidSourceMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_RemoteSequence(t *testing.T) {
	remote := inOrderRemote()
	svc := newService(serviceOptions{remote: remote})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plan.ID, "pln_"))
	assert.Equal(t, routesource.KindRemote, plan.Source)
	assert.Equal(t, routesource.RemoteName, plan.SourceName)
	assert.False(t, plan.Estimated)
	assert.Empty(t, plan.FallbackReason)
	require.NotNil(t, plan.SourceEfficiencyScore)
	assert.InDelta(t, 87.5, *plan.SourceEfficiencyScore, 0.001)
	assert.InDelta(t, 21.4, plan.SourceDistanceKm, 0.001)
	assert.Equal(t, "55 min", plan.SourceDuration)

	require.Len(t, plan.Routes, 2)
	assert.Equal(t, "v1", plan.Routes[0].VehicleID)
	assert.Len(t, plan.Routes[0].Stops, 1)
	assert.Equal(t, "v2", plan.Routes[1].VehicleID)
	assert.Len(t, plan.Routes[1].Stops, 2)
	assert.Empty(t, plan.Unassigned)
	assert.NotNil(t, plan.Unassigned)

	for _, route := range plan.Routes {
		for _, stop := range route.Stops {
			assert.Equal(t, schedule.ComplianceAcceptable, stop.TimeCompliance)
			assert.Equal(t, schedule.GuestMarkerID(stop.Guest.ID), stop.MarkerID)
		}
	}
	assert.False(t, plan.Report.HasErrors())
	assert.Equal(t, 6, plan.Statistics.Summary.TotalGuests)
	assert.Equal(t, schedule.OverflowUnassigned, plan.Overflow)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, plan.ID, latest.ID)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestPlan_EstimateOnly(t *testing.T) {
	remote := inOrderRemote()
	svc := newService(serviceOptions{remote: remote})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceEstimate))
	require.NoError(t, err)

	assert.Equal(t, routesource.KindEstimate, plan.Source)
	assert.Equal(t, routesource.EstimateName, plan.SourceName)
	assert.True(t, plan.Estimated)
	assert.Empty(t, plan.FallbackReason)
	assert.Nil(t, plan.SourceEfficiencyScore)
	assert.Zero(t, remote.calls.Load())

	people := 0
	for _, route := range plan.Routes {
		people += route.PeopleCount()
	}
	assert.Equal(t, 6, people)
}

func TestPlan_AutoFallsBackOnRemoteFailure(t *testing.T) {
	svc := newService(serviceOptions{remote: failingRemote(unavailableError())})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.Equal(t, routesource.KindEstimate, plan.Source)
	assert.True(t, plan.Estimated)
	assert.Contains(t, plan.FallbackReason, "optimizer unreachable")
	assert.NotEmpty(t, plan.Routes)
}

func TestPlan_AutoWithoutRemote(t *testing.T) {
	svc := newService(serviceOptions{})

	plan, err := svc.Plan(context.Background(), inlineRequest(""))
	require.NoError(t, err)

	assert.Equal(t, routesource.KindEstimate, plan.Source)
	assert.Equal(t, planning.ErrRemoteNotConfigured.Error(), plan.FallbackReason)
}

func TestPlan_RemoteOnlyPropagatesFailure(t *testing.T) {
	svc := newService(serviceOptions{remote: failingRemote(unavailableError())})

	_, err := svc.Plan(context.Background(), inlineRequest(planning.SourceRemote))
	require.Error(t, err)

	var srcErr *routesource.Error
	require.True(t, errors.As(err, &srcErr))
	assert.True(t, srcErr.IsRetryable())

	_, err = svc.Latest()
	assert.ErrorIs(t, err, planning.ErrNoPlan)
}

func TestPlan_RemoteOnlyWithoutRemote(t *testing.T) {
	svc := newService(serviceOptions{})

	_, err := svc.Plan(context.Background(), inlineRequest(planning.SourceRemote))
	assert.ErrorIs(t, err, planning.ErrRemoteNotConfigured)
}

func TestPlan_CancelledContextDoesNotFallBack(t *testing.T) {
	remote := &fakeSource{
		name: routesource.RemoteName,
		kind: routesource.KindRemote,
		fetch: func(ctx context.Context, _ routesource.Request) (*routesource.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := newService(serviceOptions{remote: remote})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Plan(ctx, inlineRequest(planning.SourceAuto))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan_InvalidMode(t *testing.T) {
	svc := newService(serviceOptions{})

	_, err := svc.Plan(context.Background(), inlineRequest("fastest"))
	assert.ErrorIs(t, err, planning.ErrInvalidSourceMode)
}

func TestPlan_NoVehicles(t *testing.T) {
	svc := newService(serviceOptions{remote: inOrderRemote()})

	req := inlineRequest(planning.SourceAuto)
	req.Vehicles = []schedule.Vehicle{}

	_, err := svc.Plan(context.Background(), req)
	assert.ErrorIs(t, err, schedule.ErrNoVehicles)
}

func TestPlan_ValidationCollectsAllFields(t *testing.T) {
	svc := newService(serviceOptions{})

	req := inlineRequest(planning.SourceEstimate)
	req.Guests[1].PeopleCount = 0
	req.Tour.Date = "20/10/2026"

	_, err := svc.Plan(context.Background(), req)
	var verr *schedule.ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "guests[1].peopleCount")
	assert.Contains(t, fields, "date")
}

func TestPlan_NoGuestsSkipsSource(t *testing.T) {
	remote := inOrderRemote()
	svc := newService(serviceOptions{remote: remote})

	req := inlineRequest(planning.SourceAuto)
	req.Guests = []schedule.Guest{}

	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, remote.calls.Load())
	assert.Empty(t, plan.Routes)
	assert.NotNil(t, plan.Routes)
	assert.Empty(t, plan.Source)
	assert.Zero(t, plan.Statistics.Summary.TotalGuests)
}

func TestPlan_FillsMissingVehicleIDs(t *testing.T) {
	svc := newService(serviceOptions{remote: inOrderRemote()})

	req := inlineRequest(planning.SourceAuto)
	req.Vehicles[0].ID = ""
	req.Vehicles[1].ID = ""

	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, plan.Routes, 2)
	assert.Equal(t, "vehicle-1", plan.Routes[0].VehicleID)
	assert.Equal(t, "vehicle-2", plan.Routes[1].VehicleID)
	assert.Empty(t, req.Vehicles[0].ID, "request vehicles must not be modified")
}

func TestPlan_OverflowGoesUnassigned(t *testing.T) {
	svc := newService(serviceOptions{remote: inOrderRemote()})

	req := inlineRequest(planning.SourceAuto)
	req.Vehicles = req.Vehicles[:1]

	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, plan.Routes, 1)
	assert.Equal(t, []string{"g1"}, stopIDs(plan.Routes[0].Stops))
	assert.Equal(t, []string{"g2", "g3"}, stopIDs(plan.Unassigned))
	assert.True(t, plan.Report.HasErrors())

	kinds := map[schedule.WarningKind]int{}
	for _, w := range plan.Report.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 2, kinds[schedule.WarningUnassigned])
}

func TestPlan_WraparoundFlag(t *testing.T) {
	flags := newFlags(t, map[string]interface{}{featureflags.FlagDistributorWraparound: true})
	svc := newService(serviceOptions{remote: inOrderRemote(), flags: flags})

	req := inlineRequest(planning.SourceAuto)
	req.Vehicles = req.Vehicles[:1]

	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, schedule.OverflowWrap, plan.Overflow)
	assert.Empty(t, plan.Unassigned)
	require.Len(t, plan.Routes, 1)
	assert.Equal(t, 6, plan.Routes[0].PeopleCount())

	kinds := map[schedule.WarningKind]int{}
	for _, w := range plan.Report.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[schedule.WarningOvercapacity])
}

func TestPlan_ForceLocalEstimateFlag(t *testing.T) {
	remote := inOrderRemote()
	flags := newFlags(t, map[string]interface{}{featureflags.FlagForceLocalEstimate: true})
	svc := newService(serviceOptions{remote: remote, flags: flags})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.Zero(t, remote.calls.Load())
	assert.Equal(t, routesource.KindEstimate, plan.Source)
	assert.Contains(t, plan.FallbackReason, featureflags.FlagForceLocalEstimate)
}

func TestPlan_RemoteTimeoutFlag(t *testing.T) {
	var remaining time.Duration
	remote := &fakeSource{
		name: routesource.RemoteName,
		kind: routesource.KindRemote,
		fetch: func(ctx context.Context, req routesource.Request) (*routesource.Result, error) {
			deadline, ok := ctx.Deadline()
			if ok {
				remaining = time.Until(deadline)
			}
			return inOrderRemote().fetch(ctx, req)
		},
	}
	flags := newFlags(t, map[string]interface{}{featureflags.FlagRemoteTimeoutSeconds: 2.0})
	svc := newService(serviceOptions{remote: remote, flags: flags})

	_, err := svc.Plan(context.Background(), inlineRequest(planning.SourceRemote))
	require.NoError(t, err)

	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 2*time.Second)
}

func TestPlan_ReadsRoster(t *testing.T) {
	ctx := context.Background()
	rs := roster.NewService(roster.NewInMemoryRepository())
	for _, g := range guests() {
		_, err := rs.CreateGuest(ctx, g)
		require.NoError(t, err)
	}
	for _, v := range vehicles() {
		_, err := rs.CreateVehicle(ctx, v)
		require.NoError(t, err)
	}
	date := "2026-10-21"
	_, err := rs.UpdateTour(ctx, roster.TourPatch{Date: &date})
	require.NoError(t, err)

	svc := newService(serviceOptions{remote: inOrderRemote(), roster: rs})

	plan, err := svc.Plan(ctx, planning.PlanRequest{})
	require.NoError(t, err)

	assert.Equal(t, date, plan.Date)
	assert.Equal(t, roster.DefaultActivityType, plan.ActivityType)
	assert.Equal(t, 6, plan.Statistics.Summary.TotalGuests)
	assert.Len(t, plan.Routes, 2)
}

func TestPlan_WithoutRoster(t *testing.T) {
	svc := newService(serviceOptions{})

	_, err := svc.Plan(context.Background(), planning.PlanRequest{Guests: guests()})
	assert.ErrorIs(t, err, planning.ErrRosterNotConfigured)
}

func TestPlan_EnvironmentOverride(t *testing.T) {
	env := &fakeEnvironment{}
	svc := newService(serviceOptions{remote: inOrderRemote(), environment: env})

	req := inlineRequest(planning.SourceAuto)
	req.Environment = &schedule.Environment{Condition: schedule.WeatherRainy, WindSpeedKph: 40}

	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, env.gets.Load())
	assert.Nil(t, plan.Conditions)
	require.NotNil(t, plan.Environment)

	kinds := map[schedule.RecommendationKind]bool{}
	for _, r := range plan.Report.Recommendations {
		kinds[r.Kind] = true
	}
	assert.True(t, kinds[schedule.RecommendRainBuffer])
	assert.True(t, kinds[schedule.RecommendWindCaution])
}

func TestPlan_EnvironmentService(t *testing.T) {
	env := &fakeEnvironment{conditions: &environment.Conditions{
		Date:         "2026-10-20",
		Condition:    schedule.WeatherSunny,
		WindSpeedKph: 12,
		TideLevelCm:  160,
		Source:       "open-meteo",
	}}
	svc := newService(serviceOptions{remote: inOrderRemote(), environment: env})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.Equal(t, int32(1), env.gets.Load())
	assert.Zero(t, env.cached.Load())
	require.NotNil(t, plan.Conditions)
	assert.Equal(t, "open-meteo", plan.Conditions.Source)
	require.NotNil(t, plan.Environment)
	assert.Equal(t, schedule.WeatherSunny, plan.Environment.Condition)
}

func TestPlan_EnvironmentCachedOnlyFlag(t *testing.T) {
	env := &fakeEnvironment{conditions: &environment.Conditions{Date: "2026-10-20", Condition: schedule.WeatherCloudy}}
	flags := newFlags(t, map[string]interface{}{featureflags.FlagEnvironmentCachedOnly: true})
	svc := newService(serviceOptions{remote: inOrderRemote(), environment: env, flags: flags})

	_, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.Zero(t, env.gets.Load())
	assert.Equal(t, int32(1), env.cached.Load())
}

func TestPlan_EnvironmentFailureIsNotFatal(t *testing.T) {
	env := &fakeEnvironment{err: errors.New("provider down")}
	svc := newService(serviceOptions{remote: inOrderRemote(), environment: env})

	plan, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)

	assert.Nil(t, plan.Environment)
	assert.Nil(t, plan.Conditions)
}

func TestPlan_RecomputeReplacesLatest(t *testing.T) {
	svc := newService(serviceOptions{remote: inOrderRemote()})

	first, err := svc.Plan(context.Background(), inlineRequest(planning.SourceAuto))
	require.NoError(t, err)
	second, err := svc.Plan(context.Background(), inlineRequest(planning.SourceEstimate))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestPlan_StopForAndRouteFor(t *testing.T) {
	svc := newService(serviceOptions{remote: inOrderRemote()})

	req := inlineRequest(planning.SourceAuto)
	req.Vehicles = req.Vehicles[:1]
	plan, err := svc.Plan(context.Background(), req)
	require.NoError(t, err)

	stop, vehicleID, ok := plan.StopFor("g1")
	require.True(t, ok)
	assert.Equal(t, "v1", vehicleID)
	assert.Equal(t, "09:00", stop.PickupTime.String())

	_, vehicleID, ok = plan.StopFor("g3")
	require.True(t, ok)
	assert.Empty(t, vehicleID)

	_, _, ok = plan.StopFor("nobody")
	assert.False(t, ok)

	route, ok := plan.RouteFor("v1")
	require.True(t, ok)
	assert.Len(t, route.Stops, 1)
	_, ok = plan.RouteFor("v9")
	assert.False(t, ok)
}

func stopIDs(stops []schedule.RouteStop) []string {
	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.Guest.ID)
	}
	return ids
}
