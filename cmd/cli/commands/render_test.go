package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/core/solver"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
	"github.com/jakechorley/shift-planner/pkg/db"
)

func TestStateLabel(t *testing.T) {
	assert.Contains(t, stateLabel(services.StateAccepted), "Proposal accepted")
	assert.Contains(t, stateLabel(services.StateSolverAccepted), "Solver schedule accepted")
	assert.Contains(t, stateLabel(services.StateSchedulingFailure), "No feasible schedule")
	assert.Contains(t, stateLabel(services.StateValidating), "validating")
}

func TestRenderOutcome_Success(t *testing.T) {
	var buf bytes.Buffer
	renderOutcome(&buf, &services.Outcome{
		RunID:        "run-1",
		State:        services.StateSolverAccepted,
		Source:       services.SourceSolver,
		SolverStatus: solver.Optimal,
		Proven:       true,
		Solutions:    42,
		Metrics: &schedule.Metrics{
			Workers: []schedule.WorkerMetrics{{WorkerID: "EMP_001", Minutes: 480, Hours: 8, Cost: 120, Shifts: 1}},
			Slots: []schedule.SlotMetrics{
				{DayID: "Mon", ShiftName: "Morning", Headcount: 1, Required: 1, Roster: []string{"EMP_001"}},
				{DayID: "Mon", ShiftName: "Evening", Headcount: 0, Required: 0},
			},
			TotalMinutes: 480,
			TotalCost:    120,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "optimal (proven, 42 solutions)")
	assert.Contains(t, out, "EMP_001")
	assert.Contains(t, out, "Total: 8.00h, cost 120.00")
}

func TestRenderOutcome_Failure(t *testing.T) {
	var buf bytes.Buffer
	renderOutcome(&buf, &services.Outcome{
		RunID:        "run-2",
		State:        services.StateSchedulingFailure,
		SolverStatus: solver.Infeasible,
		Violations:   []validator.Violation{{Rule: "Coverage", Entity: "Mon/Morning", Detail: "has 0 workers but needs 1"}},
		Conflicts:    []services.Conflict{{Kind: services.ConflictCoverage, Entity: "Mon/Morning", Detail: "no eligible workers"}},
		Hints:        []string{"Add a worker available on Mon"},
	})

	out := buf.String()
	assert.Contains(t, out, "No feasible schedule")
	assert.Contains(t, out, "Proposal violations (1)")
	assert.Contains(t, out, "[Coverage] Mon/Morning: has 0 workers but needs 1")
	assert.Contains(t, out, "Conflicts (1)")
	assert.Contains(t, out, "Add a worker available on Mon")
	assert.NotContains(t, out, "Roster:")
}

func TestRenderValidation(t *testing.T) {
	var buf bytes.Buffer
	renderValidation(&buf, &services.ValidationReport{
		Valid:      false,
		Violations: []validator.Violation{{Rule: "HourBounds", Entity: "EMP_002", Detail: "assigned 16.00h exceeds maximum 8.00h"}},
	})

	out := buf.String()
	assert.Contains(t, out, "Schedule has 1 violations")
	assert.Contains(t, out, "[HourBounds] EMP_002")
}

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	renderRuns(&buf, nil)
	assert.Contains(t, buf.String(), "No planning runs found")

	buf.Reset()
	created := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	renderRuns(&buf, []db.PlanningRun{
		{ID: "run-1", CreatedAt: created, State: "solver_accepted", Source: "solver", TotalHours: 24, TotalCost: 310.5},
		{ID: "run-2", CreatedAt: created, State: "scheduling_failure"},
	})

	out := buf.String()
	assert.Contains(t, out, "2024-01-08 09:30")
	assert.Contains(t, out, "310.50")
	assert.Contains(t, out, "run-2")
}

func TestRenderRunDetail(t *testing.T) {
	var buf bytes.Buffer
	renderRunDetail(&buf, &services.RunDetail{
		Run:     db.PlanningRun{ID: "run-1", State: "accepted", Source: "proposal"},
		Workers: []string{"EMP_001"},
		Slots: map[string][]db.AssignedSlot{
			"EMP_001": {
				{RunID: "run-1", WorkerID: "EMP_001", DayID: "Mon", Shift: "Morning", Minutes: 480},
				{RunID: "run-1", WorkerID: "EMP_001", DayID: "Tue", Shift: "Morning", Minutes: 480},
			},
		},
	})

	assert.Contains(t, buf.String(), "16.00h  Mon/Morning, Tue/Morning")
}
