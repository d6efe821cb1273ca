package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/dispatch"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// Marker actions.
const (
	ActionMove    = "move"
	ActionDetails = "details"
	ActionSelect  = "select"
)

// MarkerEditor is the roster surface the map markers act on.
type MarkerEditor interface {
	GetGuest(ctx context.Context, id string) (*schedule.Guest, error)
	GetVehicle(ctx context.Context, id string) (*schedule.Vehicle, error)
	Tour(ctx context.Context) (*roster.Tour, error)
	MoveGuest(ctx context.Context, id string, to schedule.Point) (*schedule.Guest, error)
	MoveVehicle(ctx context.Context, id string, to schedule.Point) (*schedule.Vehicle, error)
	MoveActivity(ctx context.Context, to schedule.Point) (*roster.Tour, error)
}

// GuestDetails is the "details" answer for a guest marker.
type GuestDetails struct {
	Guest     *schedule.Guest     `json:"guest"`
	PlanID    string              `json:"planId,omitempty"`
	VehicleID string              `json:"vehicleId,omitempty"`
	Stop      *schedule.RouteStop `json:"stop,omitempty"`
}

// VehicleDetails is the "details" answer for a vehicle marker.
type VehicleDetails struct {
	Vehicle *schedule.Vehicle      `json:"vehicle"`
	PlanID  string                 `json:"planId,omitempty"`
	Route   *schedule.VehicleRoute `json:"route,omitempty"`
}

// ActivityDetails is the "details" answer for the activity marker.
type ActivityDetails struct {
	Tour        *roster.Tour          `json:"tour"`
	PlanID      string                `json:"planId,omitempty"`
	Environment *schedule.Environment `json:"environment,omitempty"`
	Report      *schedule.Report      `json:"report,omitempty"`
}

// Selection is the "select" answer for a marker of the latest plan.
type Selection struct {
	MarkerID  string                 `json:"markerId"`
	PlanID    string                 `json:"planId"`
	VehicleID string                 `json:"vehicleId,omitempty"`
	Stop      *schedule.RouteStop    `json:"stop,omitempty"`
	Route     *schedule.VehicleRoute `json:"route,omitempty"`
}

type movePayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func decodeMove(payload json.RawMessage) (schedule.Point, error) {
	var p movePayload
	if len(payload) == 0 {
		return schedule.Point{}, &schedule.ValidationError{Errors: []schedule.FieldError{
			{Field: "payload", Message: "is required"},
		}}
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return schedule.Point{}, &schedule.ValidationError{Errors: []schedule.FieldError{
			{Field: "payload", Message: "must be an object with lat and lng"},
		}}
	}
	var errs []schedule.FieldError
	if p.Lat == nil {
		errs = append(errs, schedule.FieldError{Field: "lat", Message: "is required"})
	}
	if p.Lng == nil {
		errs = append(errs, schedule.FieldError{Field: "lng", Message: "is required"})
	}
	if len(errs) > 0 {
		return schedule.Point{}, &schedule.ValidationError{Errors: errs}
	}
	to := schedule.Point{Lat: *p.Lat, Lng: *p.Lng}
	if !to.Valid() {
		return schedule.Point{}, &schedule.ValidationError{Errors: []schedule.FieldError{
			{Field: "location", Message: "must be a valid coordinate"},
		}}
	}
	return to, nil
}

// RegisterMarkers installs the standing marker actions: "move" and
// "details" on every guest and vehicle marker and on the activity marker.
// Plan-specific "select" actions are bound by each Plan call; selecting a
// marker outside the latest plan fails with ErrNotInPlan.
func (s *Service) RegisterMarkers(editor MarkerEditor) error {
	d := s.markers.dispatcher
	if d == nil {
		return errors.New("planning: no marker dispatcher configured")
	}

	notInPlan := func(context.Context, string, json.RawMessage) (any, error) {
		if s.latest.Load() == nil {
			return nil, ErrNoPlan
		}
		return nil, ErrNotInPlan
	}

	registrations := []markerRegistration{
		{"guest:*", ActionMove, func(ctx context.Context, markerID string, payload json.RawMessage) (any, error) {
			to, err := decodeMove(payload)
			if err != nil {
				return nil, err
			}
			_, id := dispatch.SplitMarkerID(markerID)
			return editor.MoveGuest(ctx, id, to)
		}},
		{"guest:*", ActionDetails, func(ctx context.Context, markerID string, _ json.RawMessage) (any, error) {
			_, id := dispatch.SplitMarkerID(markerID)
			guest, err := editor.GetGuest(ctx, id)
			if err != nil {
				return nil, err
			}
			details := &GuestDetails{Guest: guest}
			if plan := s.latest.Load(); plan != nil {
				details.PlanID = plan.ID
				if stop, vehicleID, ok := plan.StopFor(id); ok {
					details.Stop = &stop
					details.VehicleID = vehicleID
				}
			}
			return details, nil
		}},
		{"vehicle:*", ActionMove, func(ctx context.Context, markerID string, payload json.RawMessage) (any, error) {
			to, err := decodeMove(payload)
			if err != nil {
				return nil, err
			}
			_, id := dispatch.SplitMarkerID(markerID)
			return editor.MoveVehicle(ctx, id, to)
		}},
		{"vehicle:*", ActionDetails, func(ctx context.Context, markerID string, _ json.RawMessage) (any, error) {
			_, id := dispatch.SplitMarkerID(markerID)
			vehicle, err := editor.GetVehicle(ctx, id)
			if err != nil {
				return nil, err
			}
			details := &VehicleDetails{Vehicle: vehicle}
			if plan := s.latest.Load(); plan != nil {
				details.PlanID = plan.ID
				if route, ok := plan.RouteFor(id); ok {
					details.Route = route
				}
			}
			return details, nil
		}},
		{schedule.ActivityMarkerID, ActionMove, func(ctx context.Context, _ string, payload json.RawMessage) (any, error) {
			to, err := decodeMove(payload)
			if err != nil {
				return nil, err
			}
			return editor.MoveActivity(ctx, to)
		}},
		{schedule.ActivityMarkerID, ActionDetails, func(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
			tour, err := editor.Tour(ctx)
			if err != nil {
				return nil, err
			}
			details := &ActivityDetails{Tour: tour}
			if plan := s.latest.Load(); plan != nil {
				details.PlanID = plan.ID
				details.Environment = plan.Environment
				details.Report = &plan.Report
			}
			return details, nil
		}},
		{"guest:*", ActionSelect, notInPlan},
		{"vehicle:*", ActionSelect, notInPlan},
	}

	for _, r := range registrations {
		if err := d.Register(r.marker, r.action, r.handler); err != nil {
			return fmt.Errorf("registering %s/%s: %w", r.marker, r.action, err)
		}
	}
	return nil
}

type markerRegistration struct {
	marker  string
	action  string
	handler dispatch.Handler
}

// planMarkers publishes the latest plan together with its "select"
// bindings on the dispatcher. Only the markers of one plan are bound at a
// time, and Latest always names the plan whose markers are bound.
type planMarkers struct {
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger

	mu    sync.Mutex
	bound []string
}

func newPlanMarkers(d *dispatch.Dispatcher, logger zerolog.Logger) *planMarkers {
	return &planMarkers{dispatcher: d, logger: logger}
}

func (m *planMarkers) publish(plan *Plan, latest *atomic.Pointer[Plan]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest.Store(plan)
	if m.dispatcher == nil {
		return
	}

	for _, markerID := range m.bound {
		m.dispatcher.Unregister(markerID, ActionSelect)
	}
	m.bound = m.bound[:0]

	register := func(markerID string, sel Selection) {
		err := m.dispatcher.Register(markerID, ActionSelect, func(context.Context, string, json.RawMessage) (any, error) {
			return sel, nil
		})
		if err != nil {
			m.logger.Error().Err(err).
				Str("plan_id", plan.ID).
				Str("marker_id", markerID).
				Msg("failed to bind marker selection")
			return
		}
		m.bound = append(m.bound, markerID)
	}

	for i := range plan.Routes {
		route := &plan.Routes[i]
		register(schedule.VehicleMarkerID(route.VehicleID), Selection{
			MarkerID:  schedule.VehicleMarkerID(route.VehicleID),
			PlanID:    plan.ID,
			VehicleID: route.VehicleID,
			Route:     route,
		})
		for j := range route.Stops {
			stop := &route.Stops[j]
			register(stop.MarkerID, Selection{
				MarkerID:  stop.MarkerID,
				PlanID:    plan.ID,
				VehicleID: route.VehicleID,
				Stop:      stop,
			})
		}
	}
	for j := range plan.Unassigned {
		stop := &plan.Unassigned[j]
		register(stop.MarkerID, Selection{
			MarkerID: stop.MarkerID,
			PlanID:   plan.ID,
			Stop:     stop,
		})
	}
}
