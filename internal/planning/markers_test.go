package planning_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/planning"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

type markerFixture struct {
	svc        *planning.Service
	roster     *roster.Service
	dispatcher *dispatch.Dispatcher
	guestIDs   []string
	vehicleIDs []string
}

func newMarkerFixture(t *testing.T) *markerFixture {
	t.Helper()
	ctx := context.Background()

	rs := roster.NewService(roster.NewInMemoryRepository())
	f := &markerFixture{roster: rs, dispatcher: dispatch.New()}
	for _, g := range guests() {
		created, err := rs.CreateGuest(ctx, g)
		require.NoError(t, err)
		f.guestIDs = append(f.guestIDs, created.ID)
	}
	for _, v := range vehicles() {
		created, err := rs.CreateVehicle(ctx, v)
		require.NoError(t, err)
		f.vehicleIDs = append(f.vehicleIDs, created.ID)
	}

	f.svc = newService(serviceOptions{remote: inOrderRemote(), roster: rs, dispatcher: f.dispatcher})
	require.NoError(t, f.svc.RegisterMarkers(rs))
	return f
}

func TestRegisterMarkers_RequiresDispatcher(t *testing.T) {
	svc := newService(serviceOptions{})
	assert.Error(t, svc.RegisterMarkers(roster.NewService(roster.NewInMemoryRepository())))
}

func TestMarkers_MoveGuest(t *testing.T) {
	f := newMarkerFixture(t)
	marker := schedule.GuestMarkerID(f.guestIDs[0])

	out, err := f.dispatcher.Dispatch(context.Background(), marker, planning.ActionMove, json.RawMessage(`{"lat":24.35,"lng":124.16}`))
	require.NoError(t, err)

	moved, ok := out.(*schedule.Guest)
	require.True(t, ok)
	assert.Equal(t, schedule.Point{Lat: 24.35, Lng: 124.16}, moved.Location)

	stored, err := f.roster.GetGuest(context.Background(), f.guestIDs[0])
	require.NoError(t, err)
	assert.Equal(t, moved.Location, stored.Location)
}

func TestMarkers_MoveRejectsBadPayload(t *testing.T) {
	f := newMarkerFixture(t)
	marker := schedule.VehicleMarkerID(f.vehicleIDs[0])

	for _, payload := range []string{``, `[]`, `{"lat":24.3}`, `{"lat":124.3,"lng":24.1}`} {
		_, err := f.dispatcher.Dispatch(context.Background(), marker, planning.ActionMove, json.RawMessage(payload))
		var verr *schedule.ValidationError
		assert.True(t, errors.As(err, &verr), "payload %q", payload)
	}
}

func TestMarkers_MoveUnknownGuest(t *testing.T) {
	f := newMarkerFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), "guest:missing", planning.ActionMove, json.RawMessage(`{"lat":24.35,"lng":124.16}`))
	assert.ErrorIs(t, err, roster.ErrGuestNotFound)
}

func TestMarkers_MoveActivity(t *testing.T) {
	f := newMarkerFixture(t)

	out, err := f.dispatcher.Dispatch(context.Background(), schedule.ActivityMarkerID, planning.ActionMove, json.RawMessage(`{"lat":24.45,"lng":124.2}`))
	require.NoError(t, err)

	tour, ok := out.(*roster.Tour)
	require.True(t, ok)
	assert.Equal(t, schedule.Point{Lat: 24.45, Lng: 124.2}, tour.Activity)
}

func TestMarkers_DetailsBeforeAndAfterPlan(t *testing.T) {
	f := newMarkerFixture(t)
	ctx := context.Background()
	marker := schedule.GuestMarkerID(f.guestIDs[1])

	out, err := f.dispatcher.Dispatch(ctx, marker, planning.ActionDetails, nil)
	require.NoError(t, err)
	details := out.(*planning.GuestDetails)
	assert.Equal(t, f.guestIDs[1], details.Guest.ID)
	assert.Empty(t, details.PlanID)
	assert.Nil(t, details.Stop)

	plan, err := f.svc.Plan(ctx, planning.PlanRequest{})
	require.NoError(t, err)

	out, err = f.dispatcher.Dispatch(ctx, marker, planning.ActionDetails, nil)
	require.NoError(t, err)
	details = out.(*planning.GuestDetails)
	assert.Equal(t, plan.ID, details.PlanID)
	require.NotNil(t, details.Stop)
	assert.Equal(t, f.vehicleIDs[1], details.VehicleID)

	out, err = f.dispatcher.Dispatch(ctx, schedule.VehicleMarkerID(f.vehicleIDs[0]), planning.ActionDetails, nil)
	require.NoError(t, err)
	vd := out.(*planning.VehicleDetails)
	assert.Equal(t, "Hiace 1", vd.Vehicle.Name)
	require.NotNil(t, vd.Route)
	assert.Len(t, vd.Route.Stops, 1)

	out, err = f.dispatcher.Dispatch(ctx, schedule.ActivityMarkerID, planning.ActionDetails, nil)
	require.NoError(t, err)
	ad := out.(*planning.ActivityDetails)
	assert.Equal(t, plan.ID, ad.PlanID)
	assert.NotNil(t, ad.Report)
}

func TestMarkers_SelectFollowsLatestPlan(t *testing.T) {
	f := newMarkerFixture(t)
	ctx := context.Background()
	marker := schedule.GuestMarkerID(f.guestIDs[0])

	_, err := f.dispatcher.Dispatch(ctx, marker, planning.ActionSelect, nil)
	assert.ErrorIs(t, err, planning.ErrNoPlan)

	first, err := f.svc.Plan(ctx, planning.PlanRequest{})
	require.NoError(t, err)

	out, err := f.dispatcher.Dispatch(ctx, marker, planning.ActionSelect, nil)
	require.NoError(t, err)
	sel := out.(planning.Selection)
	assert.Equal(t, first.ID, sel.PlanID)
	assert.Equal(t, f.vehicleIDs[0], sel.VehicleID)
	require.NotNil(t, sel.Stop)
	assert.Equal(t, f.guestIDs[0], sel.Stop.Guest.ID)

	out, err = f.dispatcher.Dispatch(ctx, schedule.VehicleMarkerID(f.vehicleIDs[1]), planning.ActionSelect, nil)
	require.NoError(t, err)
	assert.NotNil(t, out.(planning.Selection).Route)

	// A plan without the first guest unbinds its marker.
	req := planning.PlanRequest{Guests: []schedule.Guest{}}
	second, err := f.svc.Plan(ctx, req)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	_, err = f.dispatcher.Dispatch(ctx, marker, planning.ActionSelect, nil)
	assert.ErrorIs(t, err, planning.ErrNotInPlan)

	assert.Equal(t, []string{planning.ActionDetails, planning.ActionMove, planning.ActionSelect}, f.dispatcher.Actions(marker))
}

func TestMarkers_ConcurrentPlansBindLatest(t *testing.T) {
	f := newMarkerFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Plan(ctx, planning.PlanRequest{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	latest, err := f.svc.Latest()
	require.NoError(t, err)

	for _, marker := range []string{
		schedule.GuestMarkerID(f.guestIDs[0]),
		schedule.VehicleMarkerID(f.vehicleIDs[0]),
	} {
		out, err := f.dispatcher.Dispatch(ctx, marker, planning.ActionSelect, nil)
		require.NoError(t, err)
		assert.Equal(t, latest.ID, out.(planning.Selection).PlanID, marker)
	}
}
