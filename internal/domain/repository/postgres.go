package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	DB *sqlx.DB
}

// NewPostgresRepository connects to PostgreSQL and makes sure the
// predictions table exists.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	r := &PostgresRepository{DB: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id               BIGSERIAL PRIMARY KEY,
			request_id       UUID        NOT NULL UNIQUE,
			model_name       TEXT        NOT NULL,
			model_version    TEXT        NOT NULL DEFAULT '',
			input            JSONB       NOT NULL,
			features         JSONB       NOT NULL,
			consumption_kbtu DOUBLE PRECISION NOT NULL,
			status           TEXT        NOT NULL,
			recorded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_predictions_recorded_at ON predictions(recorded_at);
	`)
	return err
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}
