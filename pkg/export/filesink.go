package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/services"
)

const (
	dirPerms  = 0755
	filePerms = 0644
)

// FileSink writes each planning outcome to a directory as JSON.
// Every run produces <runId>.json; successful runs also produce
// <runId>_schedule.json holding only the worker → slots export.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// NewFileSink creates a sink writing into dir, creating it if needed
func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Dir returns the directory the sink writes to
func (s *FileSink) Dir() string {
	return s.dir
}

// OutcomePath returns the path of the full outcome file for a run
func (s *FileSink) OutcomePath(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// SchedulePath returns the path of the schedule-only file for a run
func (s *FileSink) SchedulePath(runID string) string {
	return filepath.Join(s.dir, runID+"_schedule.json")
}

// Report implements services.ReportingSink
func (s *FileSink) Report(ctx context.Context, outcome *services.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if outcome.RunID == "" {
		return fmt.Errorf("outcome has no run ID")
	}

	if err := writeJSON(s.OutcomePath(outcome.RunID), outcome); err != nil {
		return fmt.Errorf("failed to write outcome: %w", err)
	}
	s.logger.Debug("Wrote outcome file",
		zap.String("run_id", outcome.RunID),
		zap.String("path", s.OutcomePath(outcome.RunID)))

	if !outcome.Succeeded() {
		return nil
	}

	if err := writeJSON(s.SchedulePath(outcome.RunID), outcome.Export); err != nil {
		return fmt.Errorf("failed to write schedule: %w", err)
	}
	s.logger.Debug("Wrote schedule file",
		zap.String("run_id", outcome.RunID),
		zap.String("path", s.SchedulePath(outcome.RunID)))

	return nil
}

// writeJSON writes to a temporary file first so readers never see a partial export
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), filePerms); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
