package solver

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jakechorley/shift-planner/pkg/core/constraints"
)

var (
	tracer = otel.Tracer("shiftplanner.solver")
	meter  = otel.Meter("shiftplanner.solver")
)

var (
	solveTotal     metric.Int64Counter
	solutionsFound metric.Int64Counter
	solveDuration  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		solveTotal, err = meter.Int64Counter(
			"solver_solve_total",
			metric.WithDescription("Total number of solves by status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		solutionsFound, err = meter.Int64Counter(
			"solver_solutions_total",
			metric.WithDescription("Improving solutions found"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		solveDuration, err = meter.Float64Histogram(
			"solver_solve_duration_seconds",
			metric.WithDescription("Duration of solves"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startSolveSpan(ctx context.Context, sys *constraints.System, opts Options) (context.Context, trace.Span) {
	return tracer.Start(ctx, "solver.Solve",
		trace.WithAttributes(
			attribute.Int("solver.variables", sys.NumVars),
			attribute.Int("solver.rows", len(sys.Rows)),
			attribute.Int64("solver.time_limit_ms", opts.TimeLimit.Milliseconds()),
			attribute.Bool("solver.warm_start", opts.Incumbent != nil),
			attribute.String("solver.objective", string(sys.ObjectiveKind)),
		),
	)
}

func recordSolveMetrics(ctx context.Context, span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.String("solver.status", string(res.Status)),
		attribute.Int64("solver.solutions", res.Solutions),
	)
	if res.HasSolution() {
		span.SetAttributes(attribute.Int64("solver.objective_value", res.Objective))
	}
	if res.Conflict != "" {
		span.SetAttributes(attribute.String("solver.conflict", res.Conflict))
	}
	if res.Cancelled {
		span.SetAttributes(attribute.Bool("context_cancelled", true))
	}
	span.SetStatus(codes.Ok, "")

	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", string(res.Status)))
	solveTotal.Add(ctx, 1, attrs)
	solutionsFound.Add(ctx, res.Solutions)
	solveDuration.Record(ctx, res.Elapsed.Seconds(), attrs)
}
