package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/db"
)

// GetRunSlots retrieves the slots assigned by one run.
// Slots are ordered by worker, then by the order the run stored them.
func (d *DB) GetRunSlots(ctx context.Context, runID string) ([]db.AssignedSlot, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT run_id, worker_id, day_id, shift, minutes
		FROM assigned_slot
		WHERE run_id = $1
		ORDER BY worker_id, position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned slots: %w", err)
	}
	defer rows.Close()

	var slots []db.AssignedSlot
	for rows.Next() {
		var s db.AssignedSlot
		if err := rows.Scan(&s.RunID, &s.WorkerID, &s.DayID, &s.Shift, &s.Minutes); err != nil {
			return nil, fmt.Errorf("failed to scan assigned slot: %w", err)
		}
		slots = append(slots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assigned slots: %w", err)
	}

	return slots, nil
}
