package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
)

func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv_blobs (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		revision   BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Migrate creates the blob table when missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("failed to create kv_blobs: %w", err)
	}
	return nil
}
