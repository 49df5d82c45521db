package db

import "context"

// RunStore defines the read side of planning run history
type RunStore interface {
	GetRuns(ctx context.Context) ([]PlanningRun, error)
	GetRunSlots(ctx context.Context, runID string) ([]AssignedSlot, error)
}

// RunWriter defines the write side of planning run history
type RunWriter interface {
	InsertRun(ctx context.Context, run *PlanningRun, slots []AssignedSlot) error
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	RunStore
	RunWriter
}
