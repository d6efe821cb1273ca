package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS guests (
		seq BIGSERIAL UNIQUE,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hotel_name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		people_count INTEGER NOT NULL CHECK (people_count > 0),
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		special_needs TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		seq BIGSERIAL UNIQUE,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tour_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		tour_date TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		planned_start TEXT NOT NULL,
		activity_lat DOUBLE PRECISION NOT NULL,
		activity_lng DOUBLE PRECISION NOT NULL,
		departure_lat DOUBLE PRECISION NOT NULL,
		departure_lng DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feature_flags (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// InitSchema creates the tables the repositories expect. It is idempotent
// and runs in a single transaction.
func InitSchema(ctx context.Context, db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for i, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}
