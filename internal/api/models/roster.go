package models

import (
	"github.com/ishigakitour/pickup/internal/environment"
	"github.com/ishigakitour/pickup/internal/roster"
	"github.com/ishigakitour/pickup/internal/schedule"
)

// GuestList is the response of GET /v1/guests.
type GuestList struct {
	Items []schedule.Guest `json:"items"`
}

// VehicleList is the response of GET /v1/vehicles.
type VehicleList struct {
	Items []schedule.Vehicle `json:"items"`
}

// GuestUpdateRequest is the body of PUT /v1/guests/{guestID}. Omitted
// fields are left unchanged.
type GuestUpdateRequest struct {
	Name            *string          `json:"name,omitempty"`
	HotelName       *string          `json:"hotelName,omitempty"`
	Location        *schedule.Point  `json:"location,omitempty"`
	PeopleCount     *int             `json:"peopleCount,omitempty"`
	PreferredWindow *schedule.Window `json:"preferredWindow,omitempty"`
	Contact         *string          `json:"contact,omitempty"`
	SpecialNeeds    *string          `json:"specialNeeds,omitempty"`
}

// Patch converts the request into a roster patch.
func (r *GuestUpdateRequest) Patch() roster.GuestPatch {
	return roster.GuestPatch{
		Name:            r.Name,
		HotelName:       r.HotelName,
		Location:        r.Location,
		PeopleCount:     r.PeopleCount,
		PreferredWindow: r.PreferredWindow,
		Contact:         r.Contact,
		SpecialNeeds:    r.SpecialNeeds,
	}
}

// VehicleUpdateRequest is the body of PUT /v1/vehicles/{vehicleID}.
type VehicleUpdateRequest struct {
	Name       *string         `json:"name,omitempty"`
	DriverName *string         `json:"driverName,omitempty"`
	Capacity   *int            `json:"capacity,omitempty"`
	Location   *schedule.Point `json:"location,omitempty"`
}

// Patch converts the request into a roster patch.
func (r *VehicleUpdateRequest) Patch() roster.VehiclePatch {
	return roster.VehiclePatch{
		Name:       r.Name,
		DriverName: r.DriverName,
		Capacity:   r.Capacity,
		Location:   r.Location,
	}
}

// TourUpdateRequest is the body of PUT /v1/tour.
type TourUpdateRequest struct {
	Date              *string             `json:"date,omitempty"`
	ActivityType      *string             `json:"activityType,omitempty"`
	PlannedStartTime  *schedule.TimeOfDay `json:"plannedStartTime,omitempty"`
	ActivityLocation  *schedule.Point     `json:"activityLocation,omitempty"`
	DepartureLocation *schedule.Point     `json:"departureLocation,omitempty"`
}

// Patch converts the request into a roster patch.
func (r *TourUpdateRequest) Patch() roster.TourPatch {
	return roster.TourPatch{
		Date:         r.Date,
		ActivityType: r.ActivityType,
		PlannedStart: r.PlannedStartTime,
		Activity:     r.ActivityLocation,
		Departure:    r.DepartureLocation,
	}
}

// EnvironmentResponse is the response of GET /v1/environment.
type EnvironmentResponse struct {
	*environment.Conditions
	SeaState  environment.SeaState  `json:"seaState"`
	TideStage environment.TideStage `json:"tideStage"`
}

// NewEnvironmentResponse adds the derived sea and tide descriptions.
func NewEnvironmentResponse(c *environment.Conditions) EnvironmentResponse {
	return EnvironmentResponse{
		Conditions: c,
		SeaState:   c.SeaState(),
		TideStage:  c.TideStage(),
	}
}
