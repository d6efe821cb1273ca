package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ishigakitour/pickup/internal/schedule"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL roster repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const guestColumns = `
	id, name, hotel_name, lat, lng, people_count,
	window_start, window_end, contact, special_needs`

// ListGuests returns every guest in creation order.
func (r *PostgresRepository) ListGuests(ctx context.Context) ([]schedule.Guest, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+guestColumns+` FROM guests ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []schedule.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guests, nil
}

// GetGuest retrieves a guest by ID.
func (r *PostgresRepository) GetGuest(ctx context.Context, id string) (*schedule.Guest, error) {
	g, err := scanGuest(r.pool.QueryRow(ctx, `SELECT`+guestColumns+` FROM guests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGuestNotFound
	}
	return g, err
}

// CreateGuest inserts a guest.
func (r *PostgresRepository) CreateGuest(ctx context.Context, g *schedule.Guest) error {
	query := `
		INSERT INTO guests (` + guestColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		g.ID, g.Name, g.HotelName, g.Location.Lat, g.Location.Lng, g.PeopleCount,
		g.PreferredWindow.Start.String(), g.PreferredWindow.End.String(),
		g.Contact, g.SpecialNeeds, time.Now(),
	)
	return err
}

// UpdateGuest updates an existing guest.
func (r *PostgresRepository) UpdateGuest(ctx context.Context, g *schedule.Guest) error {
	query := `
		UPDATE guests SET
			name = $2,
			hotel_name = $3,
			lat = $4,
			lng = $5,
			people_count = $6,
			window_start = $7,
			window_end = $8,
			contact = $9,
			special_needs = $10,
			updated_at = $11
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		g.ID, g.Name, g.HotelName, g.Location.Lat, g.Location.Lng, g.PeopleCount,
		g.PreferredWindow.Start.String(), g.PreferredWindow.End.String(),
		g.Contact, g.SpecialNeeds, time.Now(),
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}

// DeleteGuest deletes a guest by ID.
func (r *PostgresRepository) DeleteGuest(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrGuestNotFound
	}
	return nil
}

const vehicleColumns = ` id, name, driver_name, capacity, lat, lng`

// ListVehicles returns every vehicle in creation order.
func (r *PostgresRepository) ListVehicles(ctx context.Context) ([]schedule.Vehicle, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+vehicleColumns+` FROM vehicles ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []schedule.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetVehicle retrieves a vehicle by ID.
func (r *PostgresRepository) GetVehicle(ctx context.Context, id string) (*schedule.Vehicle, error) {
	v, err := scanVehicle(r.pool.QueryRow(ctx, `SELECT`+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// CreateVehicle inserts a vehicle.
func (r *PostgresRepository) CreateVehicle(ctx context.Context, v *schedule.Vehicle) error {
	lat, lng := pointColumns(v.Location)
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	_, err := r.pool.Exec(ctx, query, v.ID, v.Name, v.DriverName, v.Capacity, lat, lng, time.Now())
	return err
}

// UpdateVehicle updates an existing vehicle.
func (r *PostgresRepository) UpdateVehicle(ctx context.Context, v *schedule.Vehicle) error {
	lat, lng := pointColumns(v.Location)
	query := `
		UPDATE vehicles SET
			name = $2,
			driver_name = $3,
			capacity = $4,
			lat = $5,
			lng = $6,
			updated_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, v.ID, v.Name, v.DriverName, v.Capacity, lat, lng, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// DeleteVehicle deletes a vehicle by ID.
func (r *PostgresRepository) DeleteVehicle(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// GetTour returns the saved tour settings, or nil when none exist.
func (r *PostgresRepository) GetTour(ctx context.Context) (*Tour, error) {
	query := `
		SELECT tour_date, activity_type, planned_start,
			activity_lat, activity_lng, departure_lat, departure_lng, updated_at
		FROM tour_settings
		WHERE id = 1
	`
	var (
		t     Tour
		start string
	)
	err := r.pool.QueryRow(ctx, query).Scan(
		&t.Date, &t.ActivityType, &start,
		&t.Activity.Lat, &t.Activity.Lng,
		&t.Departure.Lat, &t.Departure.Lng,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.PlannedStart, err = schedule.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("tour planned_start: %w", err)
	}
	return &t, nil
}

// SaveTour upserts the single tour settings row.
func (r *PostgresRepository) SaveTour(ctx context.Context, t *Tour) error {
	query := `
		INSERT INTO tour_settings (
			id, tour_date, activity_type, planned_start,
			activity_lat, activity_lng, departure_lat, departure_lng, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			tour_date = EXCLUDED.tour_date,
			activity_type = EXCLUDED.activity_type,
			planned_start = EXCLUDED.planned_start,
			activity_lat = EXCLUDED.activity_lat,
			activity_lng = EXCLUDED.activity_lng,
			departure_lat = EXCLUDED.departure_lat,
			departure_lng = EXCLUDED.departure_lng,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		t.Date, t.ActivityType, t.PlannedStart.String(),
		t.Activity.Lat, t.Activity.Lng, t.Departure.Lat, t.Departure.Lng,
		t.UpdatedAt,
	)
	return err
}

func scanGuest(row pgx.Row) (*schedule.Guest, error) {
	var (
		g          schedule.Guest
		start, end string
	)
	err := row.Scan(
		&g.ID, &g.Name, &g.HotelName,
		&g.Location.Lat, &g.Location.Lng,
		&g.PeopleCount, &start, &end,
		&g.Contact, &g.SpecialNeeds,
	)
	if err != nil {
		return nil, err
	}
	if g.PreferredWindow.Start, err = schedule.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("guest %s window_start: %w", g.ID, err)
	}
	if g.PreferredWindow.End, err = schedule.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("guest %s window_end: %w", g.ID, err)
	}
	return &g, nil
}

func scanVehicle(row pgx.Row) (*schedule.Vehicle, error) {
	var (
		v        schedule.Vehicle
		lat, lng *float64
	)
	if err := row.Scan(&v.ID, &v.Name, &v.DriverName, &v.Capacity, &lat, &lng); err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		v.Location = &schedule.Point{Lat: *lat, Lng: *lng}
	}
	return &v, nil
}

func pointColumns(p *schedule.Point) (lat, lng *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Lng
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
