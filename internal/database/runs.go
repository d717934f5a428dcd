package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mixplan/mix-service/internal/optimizer"
)

// Run represents one persisted allocation run.
type Run struct {
	ID                   string    `json:"id"` // run_{uuid}
	Label                string    `json:"label"`
	ProductCount         int       `json:"product_count"`
	GroupCount           int       `json:"group_count"`
	VolumeBefore         float64   `json:"volume_before"`
	VolumeAfter          float64   `json:"volume_after"`
	ProfitBefore         float64   `json:"profit_before"`
	ProfitAfter          float64   `json:"profit_after"`
	ImprovementPct       float64   `json:"improvement_pct"`
	GroupsWithViolations int       `json:"groups_with_violations"`
	FallbackCount        int       `json:"fallback_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// RunRow is one product's allocation inside a persisted run.
type RunRow struct {
	RunID          string  `json:"run_id"`
	ProductID      string  `json:"product_id"`
	GroupKey       string  `json:"group_key"`
	Demand         float64 `json:"demand"`
	Volume         float64 `json:"volume"`
	Profit         float64 `json:"profit"`
	FulfillmentPct float64 `json:"fulfillment_pct"`
	Status         string  `json:"status"`
}

// NewRunID generates a run identifier.
func NewRunID() string {
	return "run_" + uuid.NewString()
}

// SaveRun persists a run summary and its allocation rows in one
// transaction. The caller supplies the label; everything else comes
// from the result.
func SaveRun(ctx context.Context, label string, result *optimizer.Result) (*Run, error) {
	p := Pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	run := &Run{
		ID:                   NewRunID(),
		Label:                label,
		ProductCount:         len(result.Allocations),
		GroupCount:           result.Metrics.GroupsOptimized,
		VolumeBefore:         result.Metrics.VolumeBefore,
		VolumeAfter:          result.Metrics.VolumeAfter,
		ProfitBefore:         result.Metrics.ProfitBefore,
		ProfitAfter:          result.Metrics.ProfitAfter,
		ImprovementPct:       result.Metrics.ImprovementPct,
		GroupsWithViolations: result.Metrics.GroupsWithViolations,
		FallbackCount:        result.Metrics.FallbackCount,
		CreatedAt:            time.Now(),
	}

	tx, err := p.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO allocation_runs (
			id, label, product_count, group_count,
			volume_before, volume_after, profit_before, profit_after,
			improvement_pct, groups_with_violations, fallback_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		run.ID, run.Label, run.ProductCount, run.GroupCount,
		run.VolumeBefore, run.VolumeAfter, run.ProfitBefore, run.ProfitAfter,
		run.ImprovementPct, run.GroupsWithViolations, run.FallbackCount, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert allocation run: %w", err)
	}

	for i := range result.Allocations {
		a := &result.Allocations[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO allocation_rows (
				run_id, product_id, group_key, demand, volume,
				profit, fulfillment_pct, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			run.ID, a.ProductID, a.GroupKey, a.Demand, a.Volume,
			a.Profit, a.FulfillmentPct, string(a.Status),
		)
		if err != nil {
			return nil, fmt.Errorf("insert allocation row for %s: %w", a.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit run transaction: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run summary by ID.
func GetRun(ctx context.Context, id string) (*Run, error) {
	p := Pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	row := p.QueryRow(ctx, `
		SELECT id, label, product_count, group_count,
			volume_before, volume_after, profit_before, profit_after,
			improvement_pct, groups_with_violations, fallback_count, created_at
		FROM allocation_runs
		WHERE id = $1
	`, id)

	var run Run
	err := row.Scan(
		&run.ID, &run.Label, &run.ProductCount, &run.GroupCount,
		&run.VolumeBefore, &run.VolumeAfter, &run.ProfitBefore, &run.ProfitAfter,
		&run.ImprovementPct, &run.GroupsWithViolations, &run.FallbackCount, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunRows retrieves all allocation rows of a run, in insertion order.
func GetRunRows(ctx context.Context, runID string) ([]RunRow, error) {
	p := Pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := p.Query(ctx, `
		SELECT run_id, product_id, group_key, demand, volume,
			profit, fulfillment_pct, status
		FROM allocation_rows
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(
			&r.RunID, &r.ProductID, &r.GroupKey, &r.Demand, &r.Volume,
			&r.Profit, &r.FulfillmentPct, &r.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRuns returns run summaries, most recent first.
func ListRuns(ctx context.Context, limit int) ([]Run, error) {
	p := Pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.Query(ctx, `
		SELECT id, label, product_count, group_count,
			volume_before, volume_after, profit_before, profit_after,
			improvement_pct, groups_with_violations, fallback_count, created_at
		FROM allocation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Label, &run.ProductCount, &run.GroupCount,
			&run.VolumeBefore, &run.VolumeAfter, &run.ProfitBefore, &run.ProfitAfter,
			&run.ImprovementPct, &run.GroupsWithViolations, &run.FallbackCount, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
