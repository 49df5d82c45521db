package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/services"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <model-file> <schedule-file>",
		Short: "Check a schedule against every rule of a model",
		Long: `Check a schedule against every rule of a model.

The schedule file may be a bare JSON export or text containing one, such as a
saved LLM reply ending in FINAL_SCHEDULE.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelFile, scheduleFile := args[0], args[1]
			app.Logger.Debug("validate command",
				zap.String("model_file", modelFile),
				zap.String("schedule_file", scheduleFile))

			m, err := services.LoadModel(modelFile, app.Cfg.RequirementOverrides, app.Logger)
			if err != nil {
				return err
			}

			text, err := os.ReadFile(scheduleFile)
			if err != nil {
				return fmt.Errorf("failed to read schedule file: %w", err)
			}

			report, err := services.ValidateSchedule(m, string(text), app.Logger)
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(os.Stdout, report); err != nil {
					return err
				}
			} else {
				renderValidation(os.Stdout, report)
			}

			if !report.Valid {
				return fmt.Errorf("schedule has %d violations", len(report.Violations))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
