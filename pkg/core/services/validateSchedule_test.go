package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

func TestValidateSchedule_Valid(t *testing.T) {
	m := oneShiftModel(t, 2)

	report, err := ValidateSchedule(m, `{"EMP_002": ["Mon_Morning"], "EMP_003": ["Mon_Morning"]}`, zap.NewNop())

	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)
	assert.InDelta(t, 22.0, report.Metrics.TotalCost, 1e-9)
}

func TestValidateSchedule_Violations(t *testing.T) {
	m := oneShiftModel(t, 2)

	report, err := ValidateSchedule(m, `{"EMP_002": [{"day": "Mon", "shift": "Morning"}]}`, zap.NewNop())

	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, model.RuleCoverage, report.Violations[0].Rule)
}

func TestValidateSchedule_Unresolvable(t *testing.T) {
	m := oneShiftModel(t, 2)

	_, err := ValidateSchedule(m, `{"EMP_002": ["Sun_Morning"]}`, zap.NewNop())
	assert.ErrorContains(t, err, "failed to read schedule")

	_, err = ValidateSchedule(m, "not a schedule", zap.NewNop())
	assert.Error(t, err)

	_, err = ValidateSchedule(nil, "{}", zap.NewNop())
	assert.True(t, model.IsModelError(err))
}
