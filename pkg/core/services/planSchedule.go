package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/allocator"
	"github.com/jakechorley/shift-planner/pkg/core/constraints"
	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/solver"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// PlanConfig holds the per-run knobs of PlanSchedule
type PlanConfig struct {
	Constraints constraints.Options
	Solver      solver.Options

	// ProposalTimeout bounds the proposal source call (0 = config.DefaultProposalTimeout)
	ProposalTimeout time.Duration
}

// NewPlanConfig derives the run settings from the application config
func NewPlanConfig(cfg *config.Config) (PlanConfig, error) {
	kind, err := constraints.ParseObjectiveKind(cfg.Objective.Kind)
	if err != nil {
		return PlanConfig{}, fmt.Errorf("failed to parse objective: %w", err)
	}

	return PlanConfig{
		Constraints: constraints.Options{
			Objective:        kind,
			CostWeight:       cfg.Objective.CostWeight,
			PreferenceWeight: cfg.Objective.PreferenceWeight,
		},
		Solver: solver.Options{
			TimeLimit:     cfg.Solver.TimeLimit,
			SolutionLimit: cfg.Solver.SolutionLimit,
		},
		ProposalTimeout: cfg.Proposal.Timeout,
	}, nil
}

// PlanSchedule runs one planning run.
// It asks the proposal source (if any) for a candidate and validates it. A valid
// proposal is accepted as is; otherwise the solver computes a schedule, which is
// validated again before it is accepted. When nothing feasible is found the
// outcome is a SchedulingFailure carrying conflicts and remediation hints.
// The outcome is passed to every sink; sink errors are joined and returned
// alongside the outcome.
func PlanSchedule(
	ctx context.Context,
	m *model.Model,
	source proposal.Source,
	sinks []ReportingSink,
	logger *zap.Logger,
	cfg PlanConfig,
) (*Outcome, error) {
	if m == nil {
		return nil, &model.ModelError{Reason: "model is nil"}
	}

	ctx, span := startPlanSpan(ctx, m)
	defer span.End()

	outcome := &Outcome{
		RunID:       uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		State:       StateAwaitProposal,
		Model:       m,
		Transitions: []Transition{},
	}
	logger = logger.With(zap.String("run_id", outcome.RunID))

	logger.Debug("Starting planning run",
		zap.Int("workers", m.NumWorkers()),
		zap.Int("days", m.NumDays()),
		zap.Int("shifts", m.NumShifts()),
		zap.Int("requirements", len(m.Requirements)),
		zap.Bool("has_proposal_source", source != nil))

	// Step 1: Ask for a proposal and validate it
	var lastViolations []validator.Violation
	candidate, detail := requestProposal(ctx, m, source, logger, cfg.ProposalTimeout)
	if candidate == nil {
		outcome.transition(StateSolvingFallback, detail)
	} else {
		outcome.transition(StateValidating, detail)

		result := validator.Validate(m, candidate)
		if result.Valid {
			logger.Info("Proposal accepted", zap.Int("slots", candidate.Count()))
			outcome.accept(StateAccepted, SourceProposal, candidate, "proposal passed validation")
			return outcome, report(ctx, outcome, sinks, logger)
		}

		lastViolations = result.Violations
		logger.Warn("Proposal rejected, falling back to solver",
			zap.Int("violations", len(result.Violations)),
			zap.String("first_violation", result.Violations[0].String()))
		outcome.transition(StateRejected, fmt.Sprintf("%d violations", len(result.Violations)))
		outcome.transition(StateSolvingFallback, "proposal rejected")
	}

	// Step 2: Build the constraint system
	sys, err := constraints.Build(m, cfg.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to build constraints: %w", err)
	}

	logger.Debug("Constraint system built",
		zap.Int("variables", sys.NumVars),
		zap.Int("rows", len(sys.Rows)),
		zap.String("objective", string(sys.ObjectiveKind)),
		zap.Any("rows_by_rule", sys.RowsByRule()))

	// Step 3: Warm-start the solver from a greedy allocation
	opts := cfg.Solver
	if opts.Incumbent == nil {
		opts.Incumbent = warmStart(m, sys, logger)
	}

	// Step 4: Solve
	res := solver.Solve(ctx, sys, opts)
	outcome.SolverStatus = res.Status
	outcome.Proven = res.Proven()
	outcome.Solutions = res.Solutions

	logger.Debug("Solver finished",
		zap.String("status", string(res.Status)),
		zap.Bool("has_solution", res.HasSolution()),
		zap.Int64("solutions", res.Solutions),
		zap.Duration("elapsed", res.Elapsed),
		zap.Bool("cancelled", res.Cancelled))

	if res.Cancelled {
		// A partial search result is never final
		outcome.transition(StateSolverInfeasible, "search cancelled")
		outcome.Violations = lastViolations
		outcome.Hints = []string{"The run was cancelled before the search finished; run it again to completion"}

		logger.Warn("Solver run cancelled, discarding partial result",
			zap.Bool("had_solution", res.HasSolution()))
		outcome.transition(StateSchedulingFailure, "cancelled")
		return outcome, report(ctx, outcome, sinks, logger)
	}

	if !res.HasSolution() {
		outcome.transition(StateSolverInfeasible, string(res.Status))

		outcome.Violations = lastViolations
		outcome.Conflicts = Diagnose(m)
		if res.Conflict != "" {
			outcome.Conflicts = append(outcome.Conflicts, propagationConflict(res.Conflict))
		}
		outcome.Hints = Hints(outcome.Conflicts, res)

		logger.Warn("No feasible schedule found",
			zap.String("status", string(res.Status)),
			zap.Int("conflicts", len(outcome.Conflicts)))
		outcome.transition(StateSchedulingFailure, fmt.Sprintf("%d conflicts", len(outcome.Conflicts)))
		return outcome, report(ctx, outcome, sinks, logger)
	}

	// Step 5: Decode and validate the solver's answer
	assignment, err := schedule.Decode(m, res.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode solver output: %w", err)
	}

	result := validator.Validate(m, assignment)
	if !result.Valid {
		logger.Error("Validator rejected solver output",
			zap.Int("violations", len(result.Violations)),
			zap.String("first_violation", result.Violations[0].String()))
		return nil, fmt.Errorf("%w: %w", ErrValidatorDiverged, &model.ModelError{
			Field:  result.Violations[0].Entity,
			Reason: result.Violations[0].String(),
		})
	}

	outcome.Objective = res.Objective
	outcome.accept(StateSolverAccepted, SourceSolver, assignment, string(res.Status))

	logger.Info("Solver schedule accepted",
		zap.String("status", string(res.Status)),
		zap.Bool("proven", outcome.Proven),
		zap.Float64("total_cost", outcome.Metrics.TotalCost),
		zap.Float64("total_hours", outcome.Metrics.TotalHours()))

	return outcome, report(ctx, outcome, sinks, logger)
}

// warmStart returns a validated greedy allocation encoded for the system, or nil
func warmStart(m *model.Model, sys *constraints.System, logger *zap.Logger) []bool {
	alloc, err := allocator.Allocate(m, allocator.Config{})
	if err != nil {
		logger.Debug("Greedy allocation failed", zap.Error(err))
		return nil
	}
	if !alloc.Success {
		logger.Debug("Greedy allocation incomplete, solving from scratch",
			zap.Strings("unfilled", alloc.Unfilled),
			zap.Int("violations", len(alloc.Violations)))
		return nil
	}

	logger.Debug("Greedy allocation found", zap.Int("slots", alloc.Assignment.Count()))
	return alloc.Assignment.Encode(sys)
}

type proposalReply struct {
	text string
	err  error
}

// requestProposal asks the source for a candidate under a timeout.
// Any failure means "no proposal"; the returned detail says why.
func requestProposal(
	ctx context.Context,
	m *model.Model,
	source proposal.Source,
	logger *zap.Logger,
	timeout time.Duration,
) (*schedule.Assignment, string) {
	if source == nil {
		return nil, "no proposal source"
	}
	if timeout <= 0 {
		timeout = config.DefaultProposalTimeout
	}

	logger.Debug("Requesting proposal", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the goroutine can finish after we stop waiting
	replies := make(chan proposalReply, 1)
	go func() {
		text, err := source.Propose(ctx, m)
		replies <- proposalReply{text: text, err: err}
	}()

	var reply proposalReply
	select {
	case reply = <-replies:
	case <-ctx.Done():
		reply = proposalReply{err: ctx.Err()}
	}

	switch {
	case errors.Is(reply.err, context.DeadlineExceeded):
		logger.Warn("Proposal source timed out, continuing without a proposal", zap.Duration("timeout", timeout))
		return nil, "proposal timed out"
	case reply.err != nil:
		logger.Warn("Proposal source failed, continuing without a proposal", zap.Error(reply.err))
		return nil, "proposal source failed"
	case strings.TrimSpace(reply.text) == "":
		logger.Warn("Proposal source returned no text, continuing without a proposal")
		return nil, "empty proposal"
	}

	candidate, err := proposal.Resolve(m, reply.text)
	if err != nil {
		logger.Warn("Proposal could not be parsed, continuing without a proposal", zap.Error(err))
		return nil, "unparsable proposal"
	}

	logger.Debug("Proposal parsed", zap.Int("slots", candidate.Count()))
	return candidate, "proposal received"
}

// report hands the outcome to every sink concurrently, even when some sinks fail.
// Errors are joined in sink order.
func report(ctx context.Context, outcome *Outcome, sinks []ReportingSink, logger *zap.Logger) error {
	recordOutcome(ctx, outcome)

	errs := make([]error, len(sinks))
	var g errgroup.Group
	for i, sink := range sinks {
		g.Go(func() error {
			if err := sink.Report(ctx, outcome); err != nil {
				logger.Error("Reporting sink failed", zap.Int("sink", i), zap.Error(err))
				errs[i] = err
				return nil
			}
			logger.Debug("Outcome reported", zap.Int("sink", i))
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to report outcome: %w", err)
	}
	return nil
}
