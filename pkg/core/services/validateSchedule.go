package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// ValidationReport is the result of checking a supplied schedule
type ValidationReport struct {
	Valid      bool                  `json:"valid"`
	Violations []validator.Violation `json:"violations"`
	Metrics    schedule.Metrics      `json:"metrics"`
}

// ValidateSchedule checks a schedule export (either slot form, optionally wrapped in
// proposal text) against the model. A schedule that names unknown workers, days or
// shifts is an error rather than a violation.
func ValidateSchedule(m *model.Model, text string, logger *zap.Logger) (*ValidationReport, error) {
	if m == nil {
		return nil, &model.ModelError{Reason: "model is nil"}
	}

	logger.Debug("Validating schedule", zap.Int("bytes", len(text)))

	a, err := proposal.Resolve(m, text)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	result := validator.Validate(m, a)

	logger.Debug("Schedule validated",
		zap.Bool("valid", result.Valid),
		zap.Int("slots", a.Count()),
		zap.Int("violations", len(result.Violations)))

	return &ValidationReport{
		Valid:      result.Valid,
		Violations: result.Violations,
		Metrics:    schedule.ComputeMetrics(m, a),
	}, nil
}
