package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// convertRequirementOverrides turns configured overrides into model overrides.
// Each rule is expanded once over the horizon (padded by a week either side) and
// the matching dates are kept for AppliesTo.
func convertRequirementOverrides(configOverrides []config.RequirementOverride, horizon model.HorizonInput, logger *zap.Logger) ([]model.RequirementOverride, error) {
	if len(configOverrides) == 0 {
		return nil, nil
	}

	if horizon.Start == "" {
		return nil, &model.ModelError{Field: "horizon.start", Reason: "requirement overrides need a dated horizon"}
	}

	start, err := time.Parse(model.DateLayout, horizon.Start)
	if err != nil {
		return nil, &model.ModelError{Field: "horizon.start", Reason: fmt.Sprintf("invalid date %q", horizon.Start)}
	}

	// Determine the date range for RRule generation from the horizon
	searchStart := start.AddDate(0, 0, -7)                   // 1 week before start
	searchEnd := start.AddDate(0, 0, max(horizon.Days, 1)+7) // 1 week after end

	result := make([]model.RequirementOverride, 0, len(configOverrides))
	for i, override := range configOverrides {
		rule, err := rrule.StrToRRule(override.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for override %d: %w", i, err)
		}

		rule.DTStart(searchStart)
		dates := make(map[string]bool)
		for _, occurrence := range rule.Between(searchStart, searchEnd, true) {
			dates[occurrence.Format(model.DateLayout)] = true
		}

		result = append(result, model.RequirementOverride{
			AppliesTo: func(date time.Time) bool {
				return dates[date.Format(model.DateLayout)]
			},
			Shift:         override.Shift,
			MinHeadcount:  override.MinHeadcount,
			RoleMinimums:  override.RoleMinimums,
			SkillMinimums: override.SkillMinimums,
		})

		logger.Debug("Converted override",
			zap.Int("index", i),
			zap.String("rrule", override.RRule),
			zap.String("shift", override.Shift),
			zap.Int("matching_dates", len(dates)),
			zap.Bool("has_min_headcount", override.MinHeadcount != nil))
	}

	return result, nil
}

// BuildModel resolves raw input and configured requirement overrides into a model
func BuildModel(in *model.Input, overrides []config.RequirementOverride, logger *zap.Logger) (*model.Model, error) {
	modelOverrides, err := convertRequirementOverrides(overrides, in.Horizon, logger)
	if err != nil {
		return nil, err
	}

	m, err := model.New(*in, modelOverrides...)
	if err != nil {
		return nil, err
	}

	logger.Debug("Model built",
		zap.Int("workers", m.NumWorkers()),
		zap.Int("days", m.NumDays()),
		zap.Int("shifts", m.NumShifts()),
		zap.Int("overrides", len(modelOverrides)))

	return m, nil
}

// LoadModel reads a model file (YAML or JSON) and builds it with the configured overrides
func LoadModel(path string, overrides []config.RequirementOverride, logger *zap.Logger) (*model.Model, error) {
	logger.Debug("Loading model", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	in, err := model.ParseInput(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	return BuildModel(in, overrides, logger)
}
