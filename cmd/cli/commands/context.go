package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/clients/llmclient"
	"github.com/jakechorley/shift-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/db"
	"github.com/jakechorley/shift-planner/pkg/export"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// RunDatabase stores planning runs and serves their history. postgres.DB implements it.
type RunDatabase interface {
	db.Database
	services.ReportingSink
	Ping(ctx context.Context) error
	Close()
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env          string
	Cfg          *config.Config
	SheetsClient *sheetsclient.Client
	Database     RunDatabase
	Logger       *zap.Logger
	Ctx          context.Context
}

// ProposalSource returns the configured proposal source. A file given on the
// command line wins over the config; nil means the solver runs straight away.
func (app *AppContext) ProposalSource(file string) (proposal.Source, error) {
	if file != "" {
		return &proposal.FileSource{Path: file}, nil
	}
	if app.Cfg.Proposal.LLM != nil {
		client, err := llmclient.NewClient(app.Cfg.Proposal.LLM, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		return client, nil
	}
	if app.Cfg.Proposal.File != "" {
		return &proposal.FileSource{Path: app.Cfg.Proposal.File}, nil
	}
	return nil, nil
}

// Sinks returns every configured reporting sink. exportDir overrides the config's export directory.
func (app *AppContext) Sinks(exportDir string) ([]services.ReportingSink, error) {
	var sinks []services.ReportingSink

	if exportDir == "" && app.Cfg.Export != nil {
		exportDir = app.Cfg.Export.Dir
	}
	if exportDir != "" {
		fileSink, err := export.NewFileSink(exportDir, app.Logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}

	if app.Database != nil {
		sinks = append(sinks, app.Database)
	}

	if app.SheetsClient != nil {
		sinks = append(sinks, sheetsclient.NewSink(app.SheetsClient, app.Cfg.Sheets, app.Logger))
	}

	return sinks, nil
}

// RunStore returns the run history store, failing when no database is configured
func (app *AppContext) RunStore() (db.RunStore, error) {
	if app.Database == nil {
		return nil, fmt.Errorf("no database configured: set DATABASE_URL or database.url")
	}
	return app.Database, nil
}
