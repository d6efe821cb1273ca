package roster

import (
	"context"
	"sync"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs tests and single-process deployments without a database.
type InMemoryRepository struct {
	mu           sync.RWMutex
	guests       map[string]*schedule.Guest
	guestOrder   []string
	vehicles     map[string]*schedule.Vehicle
	vehicleOrder []string
	tour         *Tour
}

// NewInMemoryRepository creates a new in-memory roster repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		guests:   make(map[string]*schedule.Guest),
		vehicles: make(map[string]*schedule.Vehicle),
	}
}

// ListGuests returns copies of every guest in creation order.
func (r *InMemoryRepository) ListGuests(_ context.Context) ([]schedule.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]schedule.Guest, 0, len(r.guestOrder))
	for _, id := range r.guestOrder {
		out = append(out, copyGuest(r.guests[id]))
	}
	return out, nil
}

// GetGuest retrieves a guest by ID.
func (r *InMemoryRepository) GetGuest(_ context.Context, id string) (*schedule.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.guests[id]
	if !ok {
		return nil, ErrGuestNotFound
	}
	cpy := copyGuest(g)
	return &cpy, nil
}

// CreateGuest stores a new guest.
func (r *InMemoryRepository) CreateGuest(_ context.Context, g *schedule.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.guests[g.ID]; !exists {
		r.guestOrder = append(r.guestOrder, g.ID)
	}
	cpy := copyGuest(g)
	r.guests[g.ID] = &cpy
	return nil
}

// UpdateGuest replaces an existing guest.
func (r *InMemoryRepository) UpdateGuest(_ context.Context, g *schedule.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.guests[g.ID]; !ok {
		return ErrGuestNotFound
	}
	cpy := copyGuest(g)
	r.guests[g.ID] = &cpy
	return nil
}

// DeleteGuest deletes a guest by ID.
func (r *InMemoryRepository) DeleteGuest(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.guests[id]; !ok {
		return ErrGuestNotFound
	}
	delete(r.guests, id)
	r.guestOrder = without(r.guestOrder, id)
	return nil
}

// ListVehicles returns copies of every vehicle in creation order.
func (r *InMemoryRepository) ListVehicles(_ context.Context) ([]schedule.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]schedule.Vehicle, 0, len(r.vehicleOrder))
	for _, id := range r.vehicleOrder {
		out = append(out, copyVehicle(r.vehicles[id]))
	}
	return out, nil
}

// GetVehicle retrieves a vehicle by ID.
func (r *InMemoryRepository) GetVehicle(_ context.Context, id string) (*schedule.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	cpy := copyVehicle(v)
	return &cpy, nil
}

// CreateVehicle stores a new vehicle.
func (r *InMemoryRepository) CreateVehicle(_ context.Context, v *schedule.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vehicles[v.ID]; !exists {
		r.vehicleOrder = append(r.vehicleOrder, v.ID)
	}
	cpy := copyVehicle(v)
	r.vehicles[v.ID] = &cpy
	return nil
}

// UpdateVehicle replaces an existing vehicle.
func (r *InMemoryRepository) UpdateVehicle(_ context.Context, v *schedule.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[v.ID]; !ok {
		return ErrVehicleNotFound
	}
	cpy := copyVehicle(v)
	r.vehicles[v.ID] = &cpy
	return nil
}

// DeleteVehicle deletes a vehicle by ID.
func (r *InMemoryRepository) DeleteVehicle(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[id]; !ok {
		return ErrVehicleNotFound
	}
	delete(r.vehicles, id)
	r.vehicleOrder = without(r.vehicleOrder, id)
	return nil
}

// GetTour returns the saved tour, or nil.
func (r *InMemoryRepository) GetTour(_ context.Context) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.tour == nil {
		return nil, nil
	}
	cpy := *r.tour
	return &cpy, nil
}

// SaveTour replaces the tour settings.
func (r *InMemoryRepository) SaveTour(_ context.Context, t *Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *t
	r.tour = &cpy
	return nil
}

func copyGuest(g *schedule.Guest) schedule.Guest {
	cpy := *g
	if g.AssignedPickupTime != nil {
		at := *g.AssignedPickupTime
		cpy.AssignedPickupTime = &at
	}
	return cpy
}

func copyVehicle(v *schedule.Vehicle) schedule.Vehicle {
	cpy := *v
	if v.Location != nil {
		loc := *v.Location
		cpy.Location = &loc
	}
	return cpy
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
