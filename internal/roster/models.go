// Package roster keeps the guests, vehicles and tour settings that plans
// are computed from.
package roster

import (
	"errors"
	"time"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// Repository errors.
var (
	ErrGuestNotFound   = errors.New("guest not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// Default tour settings.
var (
	DefaultActivityLocation  = schedule.Point{Lat: 24.4041, Lng: 124.1611}
	DefaultDepartureLocation = schedule.Point{Lat: 24.3336, Lng: 124.1543}
	DefaultPlannedStart      = schedule.Clock(10, 0)
)

// DefaultActivityType is used when no tour has been configured.
const DefaultActivityType = "snorkeling"

// Tour holds the settings shared by every plan for the day.
type Tour struct {
	Date         string             `json:"date"`
	ActivityType string             `json:"activityType"`
	PlannedStart schedule.TimeOfDay `json:"plannedStartTime"`
	Activity     schedule.Point     `json:"activityLocation"`
	Departure    schedule.Point     `json:"departureLocation"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// DefaultTour returns the settings used before an operator saves any.
func DefaultTour(date string) Tour {
	return Tour{
		Date:         date,
		ActivityType: DefaultActivityType,
		PlannedStart: DefaultPlannedStart,
		Activity:     DefaultActivityLocation,
		Departure:    DefaultDepartureLocation,
	}
}

// Validate checks the tour settings.
func (t *Tour) Validate() error {
	var errs []schedule.FieldError
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		errs = append(errs, schedule.FieldError{Field: "date", Message: "must be in YYYY-MM-DD format"})
	}
	if t.ActivityType == "" {
		errs = append(errs, schedule.FieldError{Field: "activityType", Message: "is required"})
	}
	if !t.Activity.Valid() {
		errs = append(errs, schedule.FieldError{Field: "activityLocation", Message: "must be a valid coordinate"})
	}
	if !t.Departure.Valid() {
		errs = append(errs, schedule.FieldError{Field: "departureLocation", Message: "must be a valid coordinate"})
	}
	if len(errs) > 0 {
		return &schedule.ValidationError{Errors: errs}
	}
	return nil
}
