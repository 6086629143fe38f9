package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres keeps each collection as one jsonb row.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an existing database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Init creates the backing table when missing.
func (s *Postgres) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create collections table: %w", err)
	}
	return nil
}

// Get returns the collection payload, or nil when no row exists.
func (s *Postgres) Get(ctx context.Context, collection string) ([]byte, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT payload FROM collections WHERE name = $1`, collection)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select collection %s: %w", collection, err)
	}
	return raw, nil
}

// Set upserts the collection row.
func (s *Postgres) Set(ctx context.Context, collection string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("upsert collection %s: %w", collection, err)
	}
	return nil
}
