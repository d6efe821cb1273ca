// Package planning turns a tour day into vehicle routes: it resolves the
// roster, asks a route source for a stop sequence, distributes the stops
// over vehicles, and validates and summarizes the result.
package planning

import (
	"errors"
	"fmt"
	"time"

	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/routesource"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// Planning errors.
var (
	ErrInvalidSourceMode   = errors.New("invalid source mode")
	ErrRemoteNotConfigured = errors.New("remote optimizer is not configured")
	ErrRosterNotConfigured = errors.New("roster is not configured")
	ErrNoPlan              = errors.New("no plan has been computed")
	ErrNotInPlan           = errors.New("marker is not part of the latest plan")
)

// SourceMode selects where the stop sequence comes from.
type SourceMode string

const (
	// SourceRemote uses the remote optimizer and fails when it fails.
	SourceRemote SourceMode = "remote"

	// SourceEstimate uses the local estimate only.
	SourceEstimate SourceMode = "estimate"

	// SourceAuto tries the remote optimizer and falls back to the local
	// estimate, recording why.
	SourceAuto SourceMode = "auto"
)

// ParseSourceMode parses a mode name. The empty string means auto.
func ParseSourceMode(s string) (SourceMode, error) {
	switch m := SourceMode(s); m {
	case "":
		return SourceAuto, nil
	case SourceRemote, SourceEstimate, SourceAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want remote, estimate or auto)", ErrInvalidSourceMode, s)
	}
}

// PlanRequest describes one planning run. Nil slices and a nil tour are
// read from the roster; an empty non-nil slice means "none".
type PlanRequest struct {
	Source   SourceMode
	Guests   []schedule.Guest
	Vehicles []schedule.Vehicle
	Tour     *roster.Tour

	// Environment overrides the environment service for validation.
	Environment *schedule.Environment

	// Policy overrides the configured thresholds; zero fields keep defaults.
	Policy *schedule.ThresholdPolicy
}

// Plan is a computed schedule. Plans are derived data: a recompute
// replaces the previous plan wholesale.
type Plan struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Date         string             `json:"date"`
	ActivityType string             `json:"activityType"`
	PlannedStart schedule.TimeOfDay `json:"plannedStartTime"`

	Source         routesource.Kind        `json:"source,omitempty"`
	SourceName     string                  `json:"sourceName,omitempty"`
	Estimated      bool                    `json:"estimated"`
	FallbackReason string                  `json:"fallbackReason,omitempty"`
	Overflow       schedule.OverflowPolicy `json:"overflow"`

	Routes     []schedule.VehicleRoute  `json:"routes"`
	Unassigned []schedule.RouteStop     `json:"unassigned"`
	Report     schedule.Report          `json:"report"`
	Statistics schedule.Statistics      `json:"statistics"`
	Policy     schedule.ThresholdPolicy `json:"policy"`

	// Environment is what the validator saw; Conditions is the full
	// record when it came from the environment service.
	Environment *schedule.Environment   `json:"environment,omitempty"`
	Conditions  *environment.Conditions `json:"conditions,omitempty"`

	// Totals reported by the remote optimizer for the whole sequence.
	SourceEfficiencyScore *float64 `json:"sourceEfficiencyScore,omitempty"`
	SourceDistanceKm      float64  `json:"sourceDistanceKm,omitempty"`
	SourceDuration        string   `json:"sourceDuration,omitempty"`
}

// StopFor returns the route stop and vehicle id for a guest, or false.
func (p *Plan) StopFor(guestID string) (schedule.RouteStop, string, bool) {
	for i := range p.Routes {
		for _, stop := range p.Routes[i].Stops {
			if stop.Guest.ID == guestID {
				return stop, p.Routes[i].VehicleID, true
			}
		}
	}
	for _, stop := range p.Unassigned {
		if stop.Guest.ID == guestID {
			return stop, "", true
		}
	}
	return schedule.RouteStop{}, "", false
}

// RouteFor returns the route for a vehicle, or false.
func (p *Plan) RouteFor(vehicleID string) (*schedule.VehicleRoute, bool) {
	for i := range p.Routes {
		if p.Routes[i].VehicleID == vehicleID {
			return &p.Routes[i], true
		}
	}
	return nil, false
}
