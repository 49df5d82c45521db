package services

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

var (
	tracer = otel.Tracer("shiftplanner.services")
	meter  = otel.Meter("shiftplanner.services")
)

var (
	runsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		runsTotal, metricsErr = meter.Int64Counter(
			"planner_runs_total",
			metric.WithDescription("Total planning runs by terminal state and schedule source"),
		)
	})
	return metricsErr
}

func startPlanSpan(ctx context.Context, m *model.Model) (context.Context, trace.Span) {
	return tracer.Start(ctx, "services.PlanSchedule",
		trace.WithAttributes(
			attribute.Int("planner.workers", m.NumWorkers()),
			attribute.Int("planner.days", m.NumDays()),
			attribute.Int("planner.shifts", m.NumShifts()),
		),
	)
}

func recordOutcome(ctx context.Context, outcome *Outcome) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("planner.run_id", outcome.RunID),
		attribute.String("planner.state", string(outcome.State)),
		attribute.String("planner.source", outcome.Source),
	)

	if err := initMetrics(); err != nil {
		return
	}
	runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", string(outcome.State)),
		attribute.String("source", outcome.Source),
	))
}
