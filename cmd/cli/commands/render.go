package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/db"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// stateLabel returns the coloured summary line prefix for a terminal state
func stateLabel(state services.State) string {
	switch state {
	case services.StateAccepted:
		return colorGreen + "✅ Proposal accepted" + colorReset
	case services.StateSolverAccepted:
		return colorGreen + "✅ Solver schedule accepted" + colorReset
	case services.StateSchedulingFailure:
		return colorRed + "❌ No feasible schedule" + colorReset
	default:
		return colorYellow + "⚠️  " + string(state) + colorReset
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderOutcome prints a planning outcome for humans
func renderOutcome(w io.Writer, outcome *services.Outcome) {
	fmt.Fprintf(w, "\n%s\n", stateLabel(outcome.State))
	fmt.Fprintf(w, "%sRun %s%s\n", colorDim, outcome.RunID, colorReset)

	if outcome.SolverStatus != "" {
		proof := "unproven"
		if outcome.Proven {
			proof = "proven"
		}
		fmt.Fprintf(w, "Solver: %s (%s, %d solutions)\n", outcome.SolverStatus, proof, outcome.Solutions)
	}

	if outcome.Succeeded() {
		renderMetrics(w, outcome.Metrics)
		return
	}

	if len(outcome.Violations) > 0 {
		fmt.Fprintf(w, "\nProposal violations (%d):\n", len(outcome.Violations))
		for _, v := range outcome.Violations {
			fmt.Fprintf(w, "  - %s\n", v)
		}
	}

	if len(outcome.Conflicts) > 0 {
		fmt.Fprintf(w, "\nConflicts (%d):\n", len(outcome.Conflicts))
		for _, c := range outcome.Conflicts {
			fmt.Fprintf(w, "  %s✗%s %s\n", colorRed, colorReset, c)
		}
	}

	if len(outcome.Hints) > 0 {
		fmt.Fprintln(w, "\nHints:")
		for _, hint := range outcome.Hints {
			fmt.Fprintf(w, "  → %s\n", hint)
		}
	}
}

// renderMetrics prints the roster and per-worker hours of a schedule
func renderMetrics(w io.Writer, metrics *schedule.Metrics) {
	if metrics == nil {
		return
	}

	fmt.Fprintln(w, "\nRoster:")
	for _, slot := range metrics.Slots {
		marker := colorGreen + "✓" + colorReset
		if slot.Headcount < slot.Required {
			marker = colorRed + "✗" + colorReset
		}
		roster := strings.Join(slot.Roster, ", ")
		if roster == "" {
			roster = colorDim + "-" + colorReset
		}
		fmt.Fprintf(w, "  %s %-6s %-12s %d/%d  %s\n",
			marker, slot.DayID, slot.ShiftName, slot.Headcount, slot.Required, roster)
	}

	fmt.Fprintln(w, "\nWorkers:")
	fmt.Fprintf(w, "  %-12s %6s %8s %10s %6s\n", "ID", "Shifts", "Hours", "Cost", "Pref")
	for _, wm := range metrics.Workers {
		fmt.Fprintf(w, "  %-12s %6d %8.2f %10.2f %6.2f\n",
			wm.WorkerID, wm.Shifts, wm.Hours, wm.Cost, wm.PreferenceScore)
	}

	fmt.Fprintf(w, "\nTotal: %.2fh, cost %.2f, preference %.2f\n",
		metrics.TotalHours(), metrics.TotalCost, metrics.PreferenceScore)
}

// renderValidation prints a validation report
func renderValidation(w io.Writer, report *services.ValidationReport) {
	if report.Valid {
		fmt.Fprintf(w, "\n%s✅ Schedule is valid%s\n", colorGreen, colorReset)
	} else {
		fmt.Fprintf(w, "\n%s❌ Schedule has %d violations%s\n", colorRed, len(report.Violations), colorReset)
		for _, v := range report.Violations {
			fmt.Fprintf(w, "  - %s\n", v)
		}
	}
	renderMetrics(w, &report.Metrics)
}

// renderRuns prints a table of stored planning runs
func renderRuns(w io.Writer, runs []db.PlanningRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No planning runs found")
		return
	}

	fmt.Fprintf(w, "%-36s  %-16s  %-18s  %-8s  %8s  %10s\n", "ID", "Created", "State", "Source", "Hours", "Cost")
	fmt.Fprintln(w, strings.Repeat("-", 36+16+18+8+8+10+10))
	for _, run := range runs {
		state := run.State
		if run.Succeeded() {
			state = colorGreen + fmt.Sprintf("%-18s", state) + colorReset
		} else {
			state = colorRed + fmt.Sprintf("%-18s", state) + colorReset
		}
		source := run.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%-36s  %-16s  %s  %-8s  %8.2f  %10.2f\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04"), state, source, run.TotalHours, run.TotalCost)
	}
}

// renderRunDetail prints one stored run with its slots grouped by worker
func renderRunDetail(w io.Writer, detail *services.RunDetail) {
	renderRuns(w, []db.PlanningRun{detail.Run})

	if !detail.Run.Succeeded() {
		fmt.Fprintf(w, "\n%d violations, %d conflicts\n", detail.Run.Violations, detail.Run.Conflicts)
		return
	}

	fmt.Fprintln(w)
	for _, workerID := range detail.Workers {
		slots := detail.Slots[workerID]
		names := make([]string, len(slots))
		minutes := 0
		for i, slot := range slots {
			names[i] = slot.DayID + "/" + slot.Shift
			minutes += slot.Minutes
		}
		fmt.Fprintf(w, "  %-12s %6.2fh  %s\n", workerID, float64(minutes)/60, strings.Join(names, ", "))
	}
}
