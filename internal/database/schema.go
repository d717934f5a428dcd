package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the run persistence tables when they do not
// exist yet. The service owns this schema; there is no external
// migration tooling to coordinate with.
func EnsureSchema(ctx context.Context) error {
	p := Pool()
	if p == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS allocation_runs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			product_count INTEGER NOT NULL,
			group_count INTEGER NOT NULL,
			volume_before DOUBLE PRECISION NOT NULL,
			volume_after DOUBLE PRECISION NOT NULL,
			profit_before DOUBLE PRECISION NOT NULL,
			profit_after DOUBLE PRECISION NOT NULL,
			improvement_pct DOUBLE PRECISION NOT NULL,
			groups_with_violations INTEGER NOT NULL,
			fallback_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create allocation_runs: %w", err)
	}

	_, err = p.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS allocation_rows (
			run_id TEXT NOT NULL REFERENCES allocation_runs(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			group_key TEXT NOT NULL DEFAULT '',
			demand DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			profit DOUBLE PRECISION NOT NULL,
			fulfillment_pct DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create allocation_rows: %w", err)
	}

	_, err = p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_allocation_rows_run_id
		ON allocation_rows(run_id)
	`)
	if err != nil {
		return fmt.Errorf("create allocation_rows index: %w", err)
	}
	return nil
}
