package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
)

//go:embed schema.sql
var schema string

func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables and seeds reference data. Safe to re-run.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	for i, name := range model.BloodTypeNames {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO blood_types (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			i+1, name); err != nil {
			return fmt.Errorf("failed to seed blood type %s: %w", name, err)
		}
	}
	for i, name := range model.LocationNames {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO locations (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			i+1, name); err != nil {
			return fmt.Errorf("failed to seed location %s: %w", name, err)
		}
	}
	return nil
}
