package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/api"
	"github.com/jakechorley/shift-planner/pkg/core/services"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}

			planCfg, err := services.NewPlanConfig(app.Cfg)
			if err != nil {
				return err
			}

			source, err := app.ProposalSource("")
			if err != nil {
				return err
			}

			sinks, err := app.Sinks("")
			if err != nil {
				return err
			}

			opts := api.Options{
				Plan:      planCfg,
				Overrides: app.Cfg.RequirementOverrides,
				Source:    source,
				Sinks:     sinks,
				Logger:    app.Logger,
			}
			if app.Database != nil {
				opts.Runs = app.Database
				opts.Health = app.Database
			}

			app.Logger.Info("Starting API server",
				zap.String("addr", addr),
				zap.Int("sinks", len(sinks)),
				zap.Bool("history", opts.Runs != nil))

			return api.NewServer(opts).Run(app.Ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, then :8080)")

	return cmd
}
