package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/core/services"
)

// Report implements services.ReportingSink by storing the run summary and its slots.
// Failed runs are stored too, without slots, so history shows every attempt.
func (d *DB) Report(ctx context.Context, outcome *services.Outcome) error {
	run, slots := outcome.Record()
	if err := d.InsertRun(ctx, run, slots); err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}
	return nil
}
