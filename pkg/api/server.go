package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/db"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// ServiceName identifies the API in traces
const ServiceName = "shift-planner-api"

const shutdownTimeout = 5 * time.Second

// HealthChecker reports whether a backing dependency is reachable. postgres.DB implements it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options holds the dependencies of the HTTP API
type Options struct {
	Plan      services.PlanConfig
	Overrides []config.RequirementOverride

	// Source is used when a schedule request carries no proposal of its own (may be nil)
	Source proposal.Source

	Sinks []services.ReportingSink

	// Runs enables the run history endpoints (may be nil)
	Runs db.RunStore

	// Health is checked by /healthz (may be nil)
	Health HealthChecker

	Logger *zap.Logger
}

// Server exposes planning and validation over HTTP
type Server struct {
	opts   Options
	logger *zap.Logger
	router *gin.Engine
}

// NewServer builds the router and registers every route
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(requestLogger(logger))

	s := &Server{opts: opts, logger: logger, router: router}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	api.POST("/schedule", s.handleSchedule)
	api.POST("/validate", s.handleValidate)
	if opts.Runs != nil {
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}

	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Debug("HTTP request", fields...)
	}
}
