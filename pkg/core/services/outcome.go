package services

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/solver"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
	"github.com/jakechorley/shift-planner/pkg/db"
)

// ErrValidatorDiverged means the solver returned a schedule the validator rejects.
// It always signals a bug in the constraint encoding and is fatal.
var ErrValidatorDiverged = errors.New("validator rejected solver output")

// State is a step of the planning state machine
type State string

const (
	StateAwaitProposal     State = "await_proposal"
	StateValidating        State = "validating"
	StateAccepted          State = "accepted"
	StateRejected          State = "rejected"
	StateSolvingFallback   State = "solving_fallback"
	StateSolverAccepted    State = "solver_accepted"
	StateSolverInfeasible  State = "solver_infeasible"
	StateSchedulingFailure State = "scheduling_failure"
)

// Terminal reports whether a run stops in this state
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateSolverAccepted || s == StateSchedulingFailure
}

// Schedule sources recorded on successful outcomes
const (
	SourceProposal = "proposal"
	SourceSolver   = "solver"
)

// Transition is one step of the state machine trail
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Detail string `json:"detail,omitempty"`
}

// Outcome is the final result of one planning run, handed to every reporting sink
type Outcome struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	State     State     `json:"state"`

	// Source says where an accepted schedule came from (empty on failure)
	Source string `json:"source,omitempty"`

	// SolverStatus is empty when the proposal was accepted without solving
	SolverStatus solver.Status `json:"solverStatus,omitempty"`

	// Proven is false when the schedule came from a proposal or a search that hit its budget
	Proven    bool  `json:"proven"`
	Objective int64 `json:"objective,omitempty"`
	Solutions int64 `json:"solutions,omitempty"`

	Model      *model.Model         `json:"-"`
	Assignment *schedule.Assignment `json:"-"`

	Export  schedule.Export   `json:"schedule,omitempty"`
	Metrics *schedule.Metrics `json:"metrics,omitempty"`

	// Violations are the last validation failures seen (the rejected proposal's, on failure)
	Violations []validator.Violation `json:"violations,omitempty"`

	Conflicts []Conflict `json:"conflicts,omitempty"`
	Hints     []string   `json:"hints,omitempty"`

	Transitions []Transition `json:"transitions"`
}

// Succeeded reports whether the run produced a validated schedule
func (o *Outcome) Succeeded() bool {
	return o.State == StateAccepted || o.State == StateSolverAccepted
}

// transition moves the run to a new state and records the step
func (o *Outcome) transition(to State, detail string) {
	o.Transitions = append(o.Transitions, Transition{From: o.State, To: to, Detail: detail})
	o.State = to
}

// accept stores a validated assignment and its derived views
func (o *Outcome) accept(to State, source string, a *schedule.Assignment, detail string) {
	metrics := schedule.ComputeMetrics(o.Model, a)
	o.Source = source
	o.Assignment = a
	o.Export = schedule.ToExport(o.Model, a)
	o.Metrics = &metrics
	o.transition(to, detail)
}

// Record converts the outcome into the stored run summary and its slots
func (o *Outcome) Record() (*db.PlanningRun, []db.AssignedSlot) {
	run := &db.PlanningRun{
		ID:           o.RunID,
		CreatedAt:    o.CreatedAt,
		State:        string(o.State),
		Source:       o.Source,
		SolverStatus: string(o.SolverStatus),
		Proven:       o.Proven,
		Objective:    o.Objective,
		Solutions:    o.Solutions,
		Violations:   len(o.Violations),
		Conflicts:    len(o.Conflicts),
	}
	if o.Metrics != nil {
		run.TotalCost = o.Metrics.TotalCost
		run.TotalHours = o.Metrics.TotalHours()
	}

	var slots []db.AssignedSlot
	if o.Assignment != nil && o.Model != nil {
		for _, slot := range o.Assignment.Slots() {
			shift := o.Model.Shifts[slot.Shift]
			slots = append(slots, db.AssignedSlot{
				RunID:    o.RunID,
				WorkerID: o.Model.Workers[slot.Worker].ID,
				DayID:    o.Model.Days[slot.Day].ID,
				Shift:    shift.Name,
				Minutes:  shift.Duration(),
			})
		}
	}

	return run, slots
}

// ReportingSink consumes the outcome of a planning run
type ReportingSink interface {
	Report(ctx context.Context, outcome *Outcome) error
}
