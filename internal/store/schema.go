package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the stock_data table and indexes if they do not
// exist. Idempotent; run at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS stock_data (
			ticker          TEXT PRIMARY KEY,
			price           DOUBLE PRECISION,
			shares          DOUBLE PRECISION,
			fcf             DOUBLE PRECISION,
			sector          TEXT,
			eps             DOUBLE PRECISION,
			growth_rate     DOUBLE PRECISION,
			external_dcf    DOUBLE PRECISION,
			exchange        TEXT,
			intrinsic_value DOUBLE PRECISION,
			score           DOUBLE PRECISION,
			updated_at      TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create stock_data table: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_stock_data_sector ON stock_data (sector)`,
	); err != nil {
		return fmt.Errorf("failed to create sector index: %w", err)
	}

	return nil
}
