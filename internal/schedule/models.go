// Package schedule holds the pickup planning core: the guest and vehicle
// model, capacity distribution, time-compliance classification, schedule
// validation and statistics. Everything here is pure and synchronous.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Core errors.
var (
	// ErrNoVehicles is returned when distribution is attempted without vehicles.
	ErrNoVehicles = errors.New("no vehicles available")
)

// Boundary limits for guests and vehicles.
const (
	MaxPeoplePerGuest = 50
	MaxVehicleSeats   = 50
)

// Guest is a participant group booking a pickup.
type Guest struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	HotelName          string     `json:"hotelName"`
	Location           Point      `json:"location"`
	PeopleCount        int        `json:"peopleCount"`
	PreferredWindow    Window     `json:"preferredWindow"`
	AssignedPickupTime *TimeOfDay `json:"assignedPickupTime,omitempty"`
	Contact            string     `json:"contact,omitempty"`
	SpecialNeeds       string     `json:"specialNeeds,omitempty"`
}

// Validate checks the guest record and returns every offending field.
func (g *Guest) Validate() error {
	return fieldErrorsToError(g.validate(""))
}

func (g *Guest) validate(prefix string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, FieldError{Field: prefix + "name", Message: "is required"})
	}
	if strings.TrimSpace(g.HotelName) == "" {
		errs = append(errs, FieldError{Field: prefix + "hotelName", Message: "is required"})
	}
	errs = append(errs, validatePoint(g.Location, prefix+"location")...)
	if g.PeopleCount < 1 || g.PeopleCount > MaxPeoplePerGuest {
		errs = append(errs, FieldError{
			Field:   prefix + "peopleCount",
			Message: fmt.Sprintf("must be between 1 and %d", MaxPeoplePerGuest),
		})
	}
	if !g.PreferredWindow.Valid() {
		errs = append(errs, FieldError{Field: prefix + "preferredWindow", Message: "start must be before end"})
	}
	return errs
}

// Vehicle is a pickup vehicle with a seat capacity.
type Vehicle struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DriverName string `json:"driverName"`
	Capacity   int    `json:"capacity"`
	Location   *Point `json:"location,omitempty"`
}

// Validate checks the vehicle record and returns every offending field.
func (v *Vehicle) Validate() error {
	return fieldErrorsToError(v.validate(""))
}

func (v *Vehicle) validate(prefix string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(v.ID) == "" {
		errs = append(errs, FieldError{Field: prefix + "id", Message: "is required"})
	}
	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, FieldError{Field: prefix + "name", Message: "is required"})
	}
	if v.Capacity < 1 || v.Capacity > MaxVehicleSeats {
		errs = append(errs, FieldError{
			Field:   prefix + "capacity",
			Message: fmt.Sprintf("must be between 1 and %d", MaxVehicleSeats),
		})
	}
	if v.Location != nil {
		errs = append(errs, validatePoint(*v.Location, prefix+"location")...)
	}
	return errs
}

// Compliance labels how a pickup time relates to the preferred window.
type Compliance string

const (
	ComplianceAcceptable Compliance = "acceptable"
	ComplianceEarly      Compliance = "early"
	ComplianceLate       Compliance = "late"
)

// ScheduledStop is a guest pickup with an assigned time, as produced by a
// route source, before it is placed into a vehicle.
type ScheduledStop struct {
	Guest      Guest     `json:"guest"`
	PickupTime TimeOfDay `json:"pickupTime"`
}

// RouteStop is a guest pickup placed into a specific vehicle route.
type RouteStop struct {
	Guest          Guest      `json:"guest"`
	PickupTime     TimeOfDay  `json:"pickupTime"`
	TimeCompliance Compliance `json:"timeCompliance"`
	MarkerID       string     `json:"markerId"`
}

// VehicleRoute is one vehicle's ordered list of stops.
type VehicleRoute struct {
	VehicleID                string      `json:"vehicleId"`
	VehicleName              string      `json:"vehicleName"`
	DriverName               string      `json:"driverName"`
	Stops                    []RouteStop `json:"route"`
	TotalDistanceKm          float64     `json:"totalDistance"`
	EstimatedDurationMinutes int         `json:"estimatedDurationMinutes"`
	EstimatedDurationLabel   string      `json:"estimatedDuration"`
	EfficiencyScore          float64     `json:"efficiencyScore"`
}

// PeopleCount returns the total number of people picked up on the route.
func (r *VehicleRoute) PeopleCount() int {
	total := 0
	for _, s := range r.Stops {
		total += s.Guest.PeopleCount
	}
	return total
}

// GuestMarkerID returns the map marker id for a guest.
func GuestMarkerID(guestID string) string {
	return "guest:" + guestID
}

// VehicleMarkerID returns the map marker id for a vehicle.
func VehicleMarkerID(vehicleID string) string {
	return "vehicle:" + vehicleID
}

// ActivityMarkerID is the map marker id of the activity location.
const ActivityMarkerID = "activity"

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects boundary validation failures.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateInputs checks a full guest and vehicle set before planning.
// Duplicate ids are reported as well as per-record problems.
func ValidateInputs(guests []Guest, vehicles []Vehicle) error {
	var errs []FieldError

	seenGuests := make(map[string]bool, len(guests))
	for i := range guests {
		prefix := fmt.Sprintf("guests[%d].", i)
		errs = append(errs, guests[i].validate(prefix)...)
		if id := guests[i].ID; id != "" {
			if seenGuests[id] {
				errs = append(errs, FieldError{Field: prefix + "id", Message: "is duplicated"})
			}
			seenGuests[id] = true
		} else {
			errs = append(errs, FieldError{Field: prefix + "id", Message: "is required"})
		}
	}

	seenVehicles := make(map[string]bool, len(vehicles))
	for i := range vehicles {
		prefix := fmt.Sprintf("vehicles[%d].", i)
		errs = append(errs, vehicles[i].validate(prefix)...)
		if id := vehicles[i].ID; id != "" {
			if seenVehicles[id] {
				errs = append(errs, FieldError{Field: prefix + "id", Message: "is duplicated"})
			}
			seenVehicles[id] = true
		}
	}

	return fieldErrorsToError(errs)
}

func validatePoint(p Point, field string) []FieldError {
	// (0,0) is what a missing coordinate decodes to.
	if p.Lat == 0 && p.Lng == 0 {
		return []FieldError{{Field: field, Message: "is required"}}
	}
	var errs []FieldError
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, FieldError{Field: field + ".lat", Message: "must be between -90 and 90"})
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		errs = append(errs, FieldError{Field: field + ".lng", Message: "must be between -180 and 180"})
	}
	return errs
}

func fieldErrorsToError(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
