package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/db"
)

// GetRuns retrieves all planning run records, newest first
func (d *DB) GetRuns(ctx context.Context) ([]db.PlanningRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, created_at, state, source, solver_status, proven, objective,
		       solutions, total_cost, total_hours, violations, conflicts
		FROM planning_run
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query planning runs: %w", err)
	}
	defer rows.Close()

	var runs []db.PlanningRun
	for rows.Next() {
		var r db.PlanningRun
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.State, &r.Source, &r.SolverStatus, &r.Proven, &r.Objective,
			&r.Solutions, &r.TotalCost, &r.TotalHours, &r.Violations, &r.Conflicts,
		); err != nil {
			return nil, fmt.Errorf("failed to scan planning run: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planning runs: %w", err)
	}

	return runs, nil
}

// InsertRun inserts a planning run and its assigned slots in one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.PlanningRun, slots []db.AssignedSlot) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO planning_run (id, created_at, state, source, solver_status, proven, objective,
		                          solutions, total_cost, total_hours, violations, conflicts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.CreatedAt.UTC(), run.State, run.Source, run.SolverStatus, run.Proven, run.Objective,
		run.Solutions, run.TotalCost, run.TotalHours, run.Violations, run.Conflicts)
	if err != nil {
		return fmt.Errorf("failed to insert planning run: %w", err)
	}

	for i, s := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO assigned_slot (run_id, worker_id, day_id, shift, minutes, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, run.ID, s.WorkerID, s.DayID, s.Shift, s.Minutes, i)
		if err != nil {
			return fmt.Errorf("failed to insert assigned slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
