package models

import (
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// PlanRequest is the body of POST /v1/plans. Omitted guests, vehicles or
// tour are read from the roster; an empty list means "none".
type PlanRequest struct {
	// Source is remote, estimate or auto (default).
	Source      string                    `json:"source,omitempty"`
	Guests      []schedule.Guest          `json:"guests,omitempty"`
	Vehicles    []schedule.Vehicle        `json:"vehicles,omitempty"`
	Tour        *roster.Tour              `json:"tour,omitempty"`
	Environment *schedule.Environment     `json:"environment,omitempty"`
	Policy      *schedule.ThresholdPolicy `json:"policy,omitempty"`
}

// ValidateRequest is the body of POST /v1/schedule/validate.
type ValidateRequest struct {
	Routes       []schedule.VehicleRoute   `json:"routes"`
	Vehicles     []schedule.Vehicle        `json:"vehicles"`
	Unassigned   []schedule.RouteStop      `json:"unassigned,omitempty"`
	Environment  *schedule.Environment     `json:"environment,omitempty"`
	Policy       *schedule.ThresholdPolicy `json:"policy,omitempty"`
	ActivityType string                    `json:"activityType,omitempty"`
}

// StatisticsRequest is the body of POST /v1/schedule/statistics.
type StatisticsRequest struct {
	Routes   []schedule.VehicleRoute `json:"routes"`
	Vehicles []schedule.Vehicle      `json:"vehicles"`
}

// ClassifyRequest is the body of POST /v1/schedule/classify.
type ClassifyRequest struct {
	PickupTime *schedule.TimeOfDay `json:"pickupTime"`
	Window     *schedule.Window    `json:"window"`
}

// ClassifyResponse labels one pickup time.
type ClassifyResponse struct {
	PickupTime     schedule.TimeOfDay  `json:"pickupTime"`
	Window         schedule.Window     `json:"window"`
	TimeCompliance schedule.Compliance `json:"timeCompliance"`
}

// MarkerActionResponse wraps the result of a dispatched marker action.
type MarkerActionResponse struct {
	MarkerID string      `json:"markerId"`
	Action   string      `json:"action"`
	Result   interface{} `json:"result,omitempty"`
}

// MarkerActions lists the actions a marker responds to.
type MarkerActions struct {
	MarkerID string   `json:"markerId"`
	Actions  []string `json:"actions"`
}
