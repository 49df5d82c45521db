package solver

import (
	"context"
	"sync"
	"time"

	sat "github.com/crillab/gophersat/solver"
	"go.opentelemetry.io/otel/trace"

	"github.com/jakechorley/shift-planner/pkg/core/constraints"
)

// DefaultTimeLimit bounds a solve when no time limit is given
const DefaultTimeLimit = 30 * time.Second

// stopGrace is how long Solve waits for the search to acknowledge a stop
const stopGrace = 250 * time.Millisecond

// Status is the outcome of a solve
type Status string

const (
	// Optimal means the search completed and the solution is proven best
	Optimal Status = "optimal"

	// Feasible means a solution was found but the budget ran out before proving optimality
	Feasible Status = "feasible"

	// Infeasible means the search completed without finding any solution
	Infeasible Status = "infeasible"

	// TimedOut means the search stopped early (budget or cancellation) without proving anything.
	// A solution may still be attached when the search was cancelled externally.
	TimedOut Status = "timed_out"
)

// Options controls the search budget
type Options struct {
	// TimeLimit bounds the wall-clock search time (<= 0 = DefaultTimeLimit)
	TimeLimit time.Duration

	// SolutionLimit stops the search after this many improving solutions (0 = unlimited)
	SolutionLimit int64

	// Incumbent is a known assignment to start from, one value per system variable.
	// It is ignored unless it satisfies the system.
	Incumbent []bool
}

// Result is the solver's answer for one system
type Result struct {
	Status Status

	// Values holds one entry per system variable; nil when no solution was found
	Values []bool

	// Objective is the objective value of Values
	Objective int64

	// Solutions counts the improving solutions found, the incumbent included
	Solutions int64

	Elapsed time.Duration

	// Conflict labels the row that no assignment can satisfy, when infeasibility was detected while encoding
	Conflict string

	// Cancelled is set when the context was cancelled during the search
	Cancelled bool
}

// HasSolution reports whether a complete assignment is attached
func (r *Result) HasSolution() bool {
	return r.Values != nil
}

// Proven reports whether the status is a proof (optimality or infeasibility)
func (r *Result) Proven() bool {
	return r.Status == Optimal || r.Status == Infeasible
}

type stopReason int

const (
	stopDone stopReason = iota
	stopBudget
	stopCancelled
)

// incumbent is the best verified assignment seen so far
type incumbent struct {
	mu        sync.Mutex
	values    []bool
	objective int64
	solutions int64
}

// offer keeps values when they improve on the incumbent
func (b *incumbent) offer(values []bool, objective int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values != nil && objective >= b.objective {
		return false
	}
	b.values = values
	b.objective = objective
	b.solutions++
	return true
}

func (b *incumbent) snapshot() ([]bool, int64, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values, b.objective, b.solutions
}

// Solve searches the system for a minimum-objective 0/1 assignment with the
// gophersat pseudo-boolean optimiser.
//
// Every model the optimiser reports is checked against the system before it
// becomes the incumbent. For a given system the search order is fixed, so the
// same solution is returned on every run that does not hit the budget.
func Solve(ctx context.Context, sys *constraints.System, opts Options) *Result {
	ctx, span := startSolveSpan(ctx, sys, opts)
	defer span.End()

	started := time.Now()
	limit := opts.TimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}

	best := &incumbent{}
	enc := encode(sys)
	if enc.conflict != "" {
		return finish(ctx, span, best, started, stopDone, sat.Unsat, enc.conflict)
	}

	constrs := enc.constrs
	if opts.Incumbent != nil && len(opts.Incumbent) == sys.NumVars {
		if ok, _ := sys.Feasible(opts.Incumbent); ok {
			values := append([]bool(nil), opts.Incumbent...)
			best.offer(values, sys.Evaluate(values))

			bound := enc.normalised(best.objective) - 1
			if bound < 0 {
				return finish(ctx, span, best, started, stopDone, sat.Unsat, "")
			}
			if c, ok := enc.costAtMost(bound); ok {
				constrs = append(constrs, c)
			}
		}
	}

	if ctx.Err() != nil {
		return finish(ctx, span, best, started, stopCancelled, sat.Indet, "")
	}

	pb := sat.ParsePBConstrs(constrs)
	enc.setCost(pb)
	s := sat.New(pb)

	results := make(chan sat.Result)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	limitHit := make(chan struct{})
	var limitOnce sync.Once

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for r := range results {
			values := decode(sys, any(r.Model))
			if values == nil {
				continue
			}
			if ok, _ := sys.Feasible(values); !ok {
				continue
			}
			if !best.offer(values, sys.Evaluate(values)) {
				continue
			}
			if opts.SolutionLimit > 0 {
				if _, _, n := best.snapshot(); n >= opts.SolutionLimit {
					limitOnce.Do(func() { close(limitHit) })
				}
			}
		}
	}()

	done := make(chan sat.Result, 1)
	go func() {
		done <- s.Optimal(results, stop)
	}()

	timer := time.NewTimer(time.Until(started.Add(limit)))
	defer timer.Stop()

	var reason stopReason
	var final sat.Result
	select {
	case final = <-done:
		reason = stopDone
	case <-timer.C:
		reason = stopBudget
	case <-limitHit:
		reason = stopBudget
	case <-ctx.Done():
		reason = stopCancelled
	}

	if reason != stopDone {
		halt()
		grace := time.NewTimer(stopGrace)
		select {
		case <-done:
		case <-grace.C:
		}
		grace.Stop()
		final = sat.Result{Status: sat.Indet}
	} else {
		<-drained
		if final.Status == sat.Sat {
			if values := decode(sys, any(final.Model)); values != nil {
				if ok, _ := sys.Feasible(values); ok {
					best.offer(values, sys.Evaluate(values))
				}
			}
		}
	}

	return finish(ctx, span, best, started, reason, final.Status, "")
}

func finish(ctx context.Context, span trace.Span, best *incumbent, started time.Time, reason stopReason, status sat.Status, conflict string) *Result {
	if ctx.Err() != nil {
		reason = stopCancelled
	}

	values, objective, solutions := best.snapshot()
	res := &Result{
		Solutions: solutions,
		Elapsed:   time.Since(started),
		Conflict:  conflict,
	}
	found := values != nil
	if found {
		res.Values = values
		res.Objective = objective
	}

	switch {
	case reason == stopCancelled:
		res.Status = TimedOut
		res.Cancelled = true
	case reason == stopBudget && found:
		res.Status = Feasible
	case reason == stopBudget:
		res.Status = TimedOut
	case status == sat.Unsat && found:
		// Nothing beats the incumbent
		res.Status = Optimal
	case status == sat.Unsat:
		res.Status = Infeasible
	case status == sat.Sat && found:
		res.Status = Optimal
	case found:
		res.Status = Feasible
	default:
		res.Status = TimedOut
	}

	recordSolveMetrics(ctx, span, res)
	return res
}
