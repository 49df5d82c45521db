package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
)

// ErrUnknownExporter is returned for an exporter name Init does not support
var ErrUnknownExporter = errors.New("unknown telemetry exporter")

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"

	shutdownTimeout = 5 * time.Second
)

// Shutdown flushes and stops the providers installed by Init
type Shutdown func(ctx context.Context) error

// Init installs global tracer and meter providers for the configured exporter.
// With the "none" exporter nothing is installed and the otel no-op providers stay in place.
// The returned Shutdown must be called before the process exits.
func Init(ctx context.Context, serviceName, env string, cfg config.TelemetryConfig, logger *zap.Logger) (Shutdown, error) {
	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		logger.Debug("Telemetry disabled")
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", env),
	)

	spanExporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdowns := []Shutdown{tp.Shutdown}

	// Metrics are only printed locally; the OTLP setup exports traces
	if cfg.Exporter == ExporterStdout {
		metricExporter, err := stdoutmetric.New()
		if err != nil {
			tp.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	logger.Info("Telemetry initialized",
		zap.String("exporter", cfg.Exporter),
		zap.String("service", serviceName))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		var errs []error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("failed to shut down telemetry: %w", err)
		}
		return nil
	}, nil
}

func newSpanExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil

	case ExporterOTLP:
		// OTEL_EXPORTER_OTLP_ENDPOINT is usually a URL; the config file takes host:port
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if strings.Contains(cfg.OTLPEndpoint, "://") {
			opts = []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint)}
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		return exporter, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
}
