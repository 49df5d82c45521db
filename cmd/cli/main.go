package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/cmd/cli/commands"
	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/shift-planner/pkg/postgres"
	"github.com/jakechorley/shift-planner/pkg/utils/logging"
	"github.com/jakechorley/shift-planner/pkg/utils/telemetry"
)

const serviceName = "shift-planner"

var (
	env  string
	app  = &commands.AppContext{}
	stop context.CancelFunc

	shutdownTelemetry telemetry.Shutdown
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "planner",
		Short:        "Shift Planner CLI - Plan and validate staff schedules",
		Long:         `A CLI tool for planning shift schedules under coverage, availability and labor rules, validating proposed schedules, and reviewing past planning runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cleanup()
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (selects planner_config.<env>.yaml)")

	// Add all commands
	rootCmd.AddCommand(commands.SolveCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.HistoryCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))

	err := rootCmd.Execute()
	if err != nil {
		// PersistentPostRun is skipped when RunE fails
		cleanup()
		os.Exit(1)
	}
}

// initApp sets up logger, config, telemetry, clients, and database
func initApp() error {
	var err error
	app.Env = env
	app.Ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Load .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if errors.Is(err, config.ErrConfigNotFound) {
		app.Logger.Info("No config file found, using defaults")
		app.Cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("objective", app.Cfg.Objective.Kind),
		zap.Duration("proposal_timeout", app.Cfg.Proposal.Timeout))

	// Initialize telemetry
	shutdownTelemetry, err = telemetry.Init(app.Ctx, serviceName, env, app.Cfg.TelemetrySettings(), app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// Connect to database
	if url := app.Cfg.DatabaseURL(); url != "" {
		app.Logger.Info("Connecting to database")
		database, err := postgres.NewDB(app.Ctx, url)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.Database = database

		if app.Cfg.Database != nil && app.Cfg.Database.Migrate {
			app.Logger.Info("Running database migrations")
			if err := database.RunMigrations(app.Ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		app.Logger.Debug("Database connected successfully")
	}

	// Initialize sheets client
	if app.Cfg.Sheets != nil {
		app.Logger.Info("Initializing sheets client", zap.String("spreadsheet_id", app.Cfg.Sheets.SpreadsheetID))
		app.SheetsClient, err = sheetsclient.NewClient(app.Ctx, app.Cfg.SheetsCredentialsFile())
		if err != nil {
			return fmt.Errorf("failed to create sheets client: %w", err)
		}
		app.Logger.Debug("Sheets client initialized successfully")
	}

	return nil
}

// cleanup releases everything initApp acquired. It is safe to call twice.
func cleanup() {
	if app.Database != nil {
		app.Database.Close()
		app.Database = nil
	}
	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(context.Background()); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to shut down telemetry", zap.Error(err))
		}
		shutdownTelemetry = nil
	}
	if stop != nil {
		stop()
		stop = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
