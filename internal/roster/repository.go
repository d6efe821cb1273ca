package roster

import (
	"context"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// Repository defines the interface for roster persistence. Lists come back
// in creation order, which is the order the distributor fills vehicles in.
type Repository interface {
	ListGuests(ctx context.Context) ([]schedule.Guest, error)
	GetGuest(ctx context.Context, id string) (*schedule.Guest, error)
	CreateGuest(ctx context.Context, g *schedule.Guest) error
	UpdateGuest(ctx context.Context, g *schedule.Guest) error
	DeleteGuest(ctx context.Context, id string) error

	ListVehicles(ctx context.Context) ([]schedule.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*schedule.Vehicle, error)
	CreateVehicle(ctx context.Context, v *schedule.Vehicle) error
	UpdateVehicle(ctx context.Context, v *schedule.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error

	// GetTour returns nil without error when no tour has been saved.
	GetTour(ctx context.Context) (*Tour, error)
	SaveTour(ctx context.Context, t *Tour) error
}
