package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sehatsathi/sehatsathi-api/internal/repository"
)

type blobRow struct {
	Value    []byte `db:"value"`
	Revision int64  `db:"revision"`
}

// KV keeps one kv_blobs row per key.
type KV struct {
	db *sqlx.DB
}

func NewKV(db *sqlx.DB) *KV {
	return &KV{db: db}
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	query := `SELECT value, revision FROM kv_blobs WHERE key = $1`

	var row blobRow
	err := r.db.GetContext(ctx, &row, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return row.Value, row.Revision, nil
}

func (r *KV) CompareAndSwap(ctx context.Context, key string, expected int64, value []byte) (int64, error) {
	var (
		res sql.Result
		err error
		now = time.Now().UTC()
	)

	if expected == 0 {
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO kv_blobs (key, value, revision, updated_at)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (key) DO NOTHING
		`, key, value, now)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE kv_blobs
			SET value = $1, revision = revision + 1, updated_at = $2
			WHERE key = $3 AND revision = $4
		`, value, now, key, expected)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return 0, repository.ErrRevisionMismatch
	}
	return expected + 1, nil
}

func (r *KV) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
