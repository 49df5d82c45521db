package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/services"
)

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored planning runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("limit must be a positive integer, got: %d", limit)
			}

			store, err := app.RunStore()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				app.Logger.Debug("history command", zap.String("run_id", args[0]))

				detail, err := services.GetRun(app.Ctx, store, app.Logger, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(os.Stdout, detail)
				}
				renderRunDetail(os.Stdout, detail)
				return nil
			}

			app.Logger.Debug("history command", zap.Int("limit", limit))

			runs, err := services.ListRuns(app.Ctx, store, app.Logger, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, runs)
			}
			renderRuns(os.Stdout, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}
