package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/constraints"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// SolveCmd creates the solve command
func SolveCmd(app *AppContext) *cobra.Command {
	var (
		proposalFile  string
		noProposal    bool
		objective     string
		timeLimit     time.Duration
		solutionLimit int64
		exportDir     string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "solve [model-file]",
		Short: "Plan a schedule for a model",
		Long: `Plan a schedule for a model file (YAML or JSON).

A proposal is requested first (from --proposal, or the configured LLM or proposal file)
and accepted if it passes validation. Otherwise the solver computes a schedule.
The outcome is passed to every configured sink.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelFile := app.Cfg.Model
			if len(args) == 1 {
				modelFile = args[0]
			}
			if modelFile == "" {
				return fmt.Errorf("no model file given and none configured")
			}

			app.Logger.Debug("solve command",
				zap.String("model_file", modelFile),
				zap.String("proposal_file", proposalFile),
				zap.Bool("no_proposal", noProposal))

			planCfg, err := services.NewPlanConfig(app.Cfg)
			if err != nil {
				return err
			}
			if objective != "" {
				kind, err := constraints.ParseObjectiveKind(objective)
				if err != nil {
					return err
				}
				planCfg.Constraints.Objective = kind
			}
			if cmd.Flags().Changed("time-limit") {
				if timeLimit <= 0 {
					return fmt.Errorf("--time-limit must be positive, got %s", timeLimit)
				}
				planCfg.Solver.TimeLimit = timeLimit
			}
			if cmd.Flags().Changed("solution-limit") {
				if solutionLimit < 0 {
					return fmt.Errorf("--solution-limit must not be negative, got %d", solutionLimit)
				}
				planCfg.Solver.SolutionLimit = solutionLimit
			}

			m, err := services.LoadModel(modelFile, app.Cfg.RequirementOverrides, app.Logger)
			if err != nil {
				return err
			}

			var source proposal.Source
			if !noProposal {
				source, err = app.ProposalSource(proposalFile)
				if err != nil {
					return err
				}
			}

			sinks, err := app.Sinks(exportDir)
			if err != nil {
				return err
			}

			outcome, reportErr := services.PlanSchedule(app.Ctx, m, source, sinks, app.Logger, planCfg)
			if outcome == nil {
				return reportErr
			}

			if asJSON {
				if err := writeJSON(os.Stdout, outcome); err != nil {
					return err
				}
			} else {
				renderOutcome(os.Stdout, outcome)
			}

			if reportErr != nil {
				fmt.Printf("\n%s⚠️  Some sinks failed: %v%s\n", colorYellow, reportErr, colorReset)
			}

			if app.Ctx.Err() != nil {
				return fmt.Errorf("run cancelled before a final schedule for %s", modelFile)
			}
			if !outcome.Succeeded() {
				return fmt.Errorf("no feasible schedule for %s", modelFile)
			}
			if outcome.SolverStatus != "" && !outcome.Proven {
				fmt.Printf("\n%s⚠️  The solver hit its budget; this schedule is feasible but not proven optimal%s\n", colorYellow, colorReset)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&proposalFile, "proposal", "", "Proposal file to validate before solving")
	cmd.Flags().BoolVar(&noProposal, "no-proposal", false, "Skip the proposal step and solve directly")
	cmd.Flags().StringVar(&objective, "objective", "", "Objective to optimise (cost, preference, blend)")
	cmd.Flags().DurationVar(&timeLimit, "time-limit", config.DefaultSolverTimeLimit, "Solver time limit (must be positive)")
	cmd.Flags().Int64Var(&solutionLimit, "solution-limit", 0, "Stop after this many improving solutions (0 = unlimited)")
	cmd.Flags().StringVarP(&exportDir, "output", "o", "", "Directory for the JSON outcome and schedule")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")

	return cmd
}
