package roster

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// GuestPatch carries optional guest field updates.
type GuestPatch struct {
	Name            *string
	HotelName       *string
	Location        *schedule.Point
	PeopleCount     *int
	PreferredWindow *schedule.Window
	Contact         *string
	SpecialNeeds    *string
}

// VehiclePatch carries optional vehicle field updates.
type VehiclePatch struct {
	Name       *string
	DriverName *string
	Capacity   *int
	Location   *schedule.Point
}

// TourPatch carries optional tour setting updates.
type TourPatch struct {
	Date         *string
	ActivityType *string
	PlannedStart *schedule.TimeOfDay
	Activity     *schedule.Point
	Departure    *schedule.Point
}

// Service provides roster operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new roster service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func newID(prefix string) string {
	return prefix + uuid.New().String()[:22]
}

// ListGuests returns every guest in creation order.
func (s *Service) ListGuests(ctx context.Context) ([]schedule.Guest, error) {
	guests, err := s.repo.ListGuests(ctx)
	if err != nil {
		return nil, err
	}
	if guests == nil {
		guests = []schedule.Guest{}
	}
	return guests, nil
}

// GetGuest retrieves a guest by ID.
func (s *Service) GetGuest(ctx context.Context, id string) (*schedule.Guest, error) {
	return s.repo.GetGuest(ctx, id)
}

// CreateGuest validates input and stores it under a new id.
func (s *Service) CreateGuest(ctx context.Context, input schedule.Guest) (*schedule.Guest, error) {
	input.ID = newID("gst_")
	input.AssignedPickupTime = nil
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateGuest(ctx, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// UpdateGuest applies a patch and re-validates the whole guest.
func (s *Service) UpdateGuest(ctx context.Context, id string, patch GuestPatch) (*schedule.Guest, error) {
	g, err := s.repo.GetGuest(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.HotelName != nil {
		g.HotelName = *patch.HotelName
	}
	if patch.Location != nil {
		g.Location = *patch.Location
	}
	if patch.PeopleCount != nil {
		g.PeopleCount = *patch.PeopleCount
	}
	if patch.PreferredWindow != nil {
		g.PreferredWindow = *patch.PreferredWindow
	}
	if patch.Contact != nil {
		g.Contact = *patch.Contact
	}
	if patch.SpecialNeeds != nil {
		g.SpecialNeeds = *patch.SpecialNeeds
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGuest(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// MoveGuest changes a guest's pickup location.
func (s *Service) MoveGuest(ctx context.Context, id string, to schedule.Point) (*schedule.Guest, error) {
	return s.UpdateGuest(ctx, id, GuestPatch{Location: &to})
}

// DeleteGuest deletes a guest.
func (s *Service) DeleteGuest(ctx context.Context, id string) error {
	return s.repo.DeleteGuest(ctx, id)
}

// ListVehicles returns every vehicle in creation order.
func (s *Service) ListVehicles(ctx context.Context) ([]schedule.Vehicle, error) {
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	if vehicles == nil {
		vehicles = []schedule.Vehicle{}
	}
	return vehicles, nil
}

// GetVehicle retrieves a vehicle by ID.
func (s *Service) GetVehicle(ctx context.Context, id string) (*schedule.Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// CreateVehicle validates input and stores it under a new id.
func (s *Service) CreateVehicle(ctx context.Context, input schedule.Vehicle) (*schedule.Vehicle, error) {
	input.ID = newID("veh_")
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateVehicle(ctx, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// UpdateVehicle applies a patch and re-validates the whole vehicle.
func (s *Service) UpdateVehicle(ctx context.Context, id string, patch VehiclePatch) (*schedule.Vehicle, error) {
	v, err := s.repo.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.DriverName != nil {
		v.DriverName = *patch.DriverName
	}
	if patch.Capacity != nil {
		v.Capacity = *patch.Capacity
	}
	if patch.Location != nil {
		loc := *patch.Location
		v.Location = &loc
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVehicle(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// MoveVehicle changes a vehicle's standby location.
func (s *Service) MoveVehicle(ctx context.Context, id string, to schedule.Point) (*schedule.Vehicle, error) {
	return s.UpdateVehicle(ctx, id, VehiclePatch{Location: &to})
}

// DeleteVehicle deletes a vehicle.
func (s *Service) DeleteVehicle(ctx context.Context, id string) error {
	return s.repo.DeleteVehicle(ctx, id)
}

// Tour returns the saved tour settings, or defaults for today when none
// have been saved.
func (s *Service) Tour(ctx context.Context) (*Tour, error) {
	t, err := s.repo.GetTour(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil {
		d := DefaultTour(s.now().Format("2006-01-02"))
		return &d, nil
	}
	return t, nil
}

// UpdateTour applies a patch to the current settings and saves them.
func (s *Service) UpdateTour(ctx context.Context, patch TourPatch) (*Tour, error) {
	t, err := s.Tour(ctx)
	if err != nil {
		return nil, err
	}

	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.ActivityType != nil {
		t.ActivityType = *patch.ActivityType
	}
	if patch.PlannedStart != nil {
		t.PlannedStart = *patch.PlannedStart
	}
	if patch.Activity != nil {
		t.Activity = *patch.Activity
	}
	if patch.Departure != nil {
		t.Departure = *patch.Departure
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()
	if err := s.repo.SaveTour(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// MoveActivity changes the activity location.
func (s *Service) MoveActivity(ctx context.Context, to schedule.Point) (*Tour, error) {
	return s.UpdateTour(ctx, TourPatch{Activity: &to})
}
