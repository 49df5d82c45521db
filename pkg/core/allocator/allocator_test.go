package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
)

func newModel(t *testing.T, in model.Input) *model.Model {
	t.Helper()
	m, err := model.New(in)
	require.NoError(t, err)
	return m
}

func slotsOf(m *model.Model, a *schedule.Assignment) []string {
	var out []string
	for _, s := range a.Slots() {
		out = append(out, m.Workers[s.Worker].ID+" "+slotName(m, s.Day, s.Shift))
	}
	return out
}

func TestAllocate_PicksCheapestWorkers(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon"}},
		Shifts:  []model.ShiftInput{{Name: "Morning", Start: "09:00", End: "10:00"}},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Wage: 15, MaxHours: 8},
			{ID: "EMP_002", Wage: 10, MaxHours: 8},
			{ID: "EMP_003", Wage: 12, MaxHours: 8},
		},
		Requirements: []model.RequirementInput{{Shift: "Morning", MinHeadcount: 2}},
	})

	outcome, err := Allocate(m, Config{})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Unfilled)
	assert.Equal(t, []string{"EMP_002 Mon/Morning", "EMP_003 Mon/Morning"}, slotsOf(m, outcome.Assignment))
}

func TestAllocate_RespectsRestBetweenEveningAndMorning(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue"}},
		Shifts: []model.ShiftInput{
			{Name: "Morning", Start: "06:00", End: "14:00"},
			{Name: "Evening", Start: "14:00", End: "22:00"},
		},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Wage: 10, MaxHours: 40},
			{ID: "EMP_002", Wage: 12, MaxHours: 40},
			{ID: "EMP_003", Wage: 14, MaxHours: 40},
		},
		Requirements: []model.RequirementInput{
			{Shift: "Morning", MinHeadcount: 1},
			{Shift: "Evening", MinHeadcount: 1},
		},
		Policy: model.PolicyInput{MinRestMinutes: 600},
	})

	outcome, err := Allocate(m, Config{})
	require.NoError(t, err)

	require.True(t, outcome.Success, "violations: %v", outcome.Violations)
	assert.Equal(t, []string{
		"EMP_001 Mon/Morning",
		"EMP_001 Tue/Morning",
		"EMP_002 Mon/Evening",
		"EMP_002 Tue/Evening",
	}, slotsOf(m, outcome.Assignment))
}

func TestAllocate_FillsRoleMinimumFirst(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon"}},
		Shifts:  []model.ShiftInput{{Name: "Morning", Start: "09:00", End: "17:00"}},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Role: model.RoleStaff, Wage: 10, MaxHours: 40},
			{ID: "EMP_002", Role: model.RoleStaff, Wage: 11, MaxHours: 40},
			{ID: "MGR_001", Role: model.RoleManager, Wage: 20, MaxHours: 40},
		},
		Requirements: []model.RequirementInput{{
			Shift:        "Morning",
			MinHeadcount: 2,
			RoleMinimums: map[string]int{model.RoleManager: 1},
		}},
	})

	outcome, err := Allocate(m, Config{})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, []string{"EMP_001 Mon/Morning", "MGR_001 Mon/Morning"}, slotsOf(m, outcome.Assignment))
}

func TestAllocate_ReportsUnfilledRequirement(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon"}},
		Shifts:  []model.ShiftInput{{Name: "Morning", Start: "09:00", End: "10:00"}},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Wage: 10, MaxHours: 8},
			{ID: "EMP_002", Wage: 10, MaxHours: 8},
		},
		Requirements: []model.RequirementInput{{Shift: "Morning", MinHeadcount: 3}},
	})

	outcome, err := Allocate(m, Config{})
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, []string{"Mon/Morning"}, outcome.Unfilled)
	result := validator.Validate(m, outcome.Assignment)
	assert.NotEmpty(t, result.ByRule(model.RuleCoverage))
}

func TestAllocate_TopsUpMinimumHours(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue"}},
		Shifts:  []model.ShiftInput{{Name: "Day", Start: "09:00", End: "17:00"}},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Wage: 10, MinHours: 16, MaxHours: 40},
		},
	})

	outcome, err := Allocate(m, Config{})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, []string{"EMP_001 Mon/Day", "EMP_001 Tue/Day"}, slotsOf(m, outcome.Assignment))
}

func TestAllocate_PreferredShiftWins(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon"}},
		Shifts: []model.ShiftInput{
			{Name: "Early", Start: "06:00", End: "10:00"},
			{Name: "Late", Start: "18:00", End: "22:00"},
		},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Wage: 10, MinHours: 4, MaxHours: 4, PreferredShifts: []string{"Late"}},
		},
	})

	criteria := append(DefaultCriteria(), &Preferred{Weight: 5})
	outcome, err := Allocate(m, Config{Criteria: criteria})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, []string{"EMP_001 Mon/Late"}, slotsOf(m, outcome.Assignment))
}

func TestAllocate_NilModel(t *testing.T) {
	_, err := Allocate(nil, Config{})
	assert.True(t, model.IsModelError(err))
}

func TestConsecutiveDays_IsSlotValid(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue", "Wed", "Thu"}},
		Shifts:  []model.ShiftInput{{Name: "Day", Start: "09:00", End: "17:00"}},
		Workers: []model.WorkerInput{{ID: "EMP_001", Wage: 10, MaxHours: 60}},
		Policy:  model.PolicyInput{MaxConsecutiveDays: 2},
	})
	state := newState(m)
	state.assign(0, 0, 0)
	state.assign(0, 2, 0)

	c := &ConsecutiveDays{}
	w := m.Workers[0]

	// Tue would join Mon and Wed into a three-day run
	assert.False(t, c.IsSlotValid(state, w, 1, 0))
	// Thu makes Wed-Thu, two days
	assert.True(t, c.IsSlotValid(state, w, 3, 0))
}

func TestRestPeriod_OvernightShift(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue"}},
		Shifts: []model.ShiftInput{
			{Name: "Morning", Start: "06:00", End: "14:00"},
			{Name: "Night", Start: "22:00", End: "06:00"},
		},
		Workers: []model.WorkerInput{{ID: "EMP_001", Wage: 10, MaxHours: 60}},
		Policy:  model.PolicyInput{MinRestMinutes: 600},
	})
	state := newState(m)
	state.assign(0, 0, 1)

	c := &RestPeriod{}
	w := m.Workers[0]

	// Mon Night ends at 06:00 Tue, when Tue Morning starts
	assert.False(t, c.IsSlotValid(state, w, 1, 0))
	assert.True(t, c.IsSlotValid(state, w, 1, 1))
}

func TestLaborBudget_IsSlotValid(t *testing.T) {
	m := newModel(t, model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue"}},
		Shifts:  []model.ShiftInput{{Name: "Day", Start: "09:00", End: "17:00"}},
		Workers: []model.WorkerInput{{ID: "EMP_001", Wage: 10, MaxHours: 60}},
		Policy:  model.PolicyInput{MaxTotalHours: 10},
	})
	state := newState(m)
	c := &LaborBudget{}

	assert.True(t, c.IsSlotValid(state, m.Workers[0], 0, 0))
	state.assign(0, 0, 0)
	assert.False(t, c.IsSlotValid(state, m.Workers[0], 1, 0))
}
