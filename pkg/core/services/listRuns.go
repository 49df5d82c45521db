package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/db"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// RunDetail is a stored run with its slots grouped by worker
type RunDetail struct {
	Run     db.PlanningRun               `json:"run"`
	Workers []string                     `json:"workers"`
	Slots   map[string][]db.AssignedSlot `json:"slots"`
}

// ListRuns returns the most recent planning runs, newest first
func ListRuns(ctx context.Context, store db.RunStore, logger *zap.Logger, limit int) ([]db.PlanningRun, error) {
	logger.Debug("Listing planning runs", zap.Int("limit", limit))

	runs, err := store.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	latest := db.LatestRuns(runs, limit)
	logger.Debug("Found planning runs", zap.Int("total", len(runs)), zap.Int("returned", len(latest)))

	return latest, nil
}

// GetRun returns one stored run and its assigned slots
func GetRun(ctx context.Context, store db.RunStore, logger *zap.Logger, runID string) (*RunDetail, error) {
	logger.Debug("Fetching planning run", zap.String("run_id", runID))

	runs, err := store.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	var found *db.PlanningRun
	for i := range runs {
		if runs[i].ID == runID {
			found = &runs[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	slots, err := store.GetRunSlots(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch slots for run %s: %w", runID, err)
	}

	grouped := db.SlotsByWorker(slots)
	workers := make([]string, 0, len(grouped))
	for id := range grouped {
		workers = append(workers, id)
	}
	sort.Strings(workers)

	logger.Debug("Planning run fetched", zap.Int("slots", len(slots)), zap.Int("workers", len(workers)))

	return &RunDetail{Run: *found, Workers: workers, Slots: grouped}, nil
}
