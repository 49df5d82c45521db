package db

import (
	"sort"
	"time"
)

// PlanningRun is the stored summary of one planning run
type PlanningRun struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	// State is the terminal orchestrator state (accepted, solver_accepted, scheduling_failure)
	State string `json:"state"`

	// Source is "proposal" or "solver" for successful runs, empty otherwise
	Source string `json:"source,omitempty"`

	SolverStatus string `json:"solverStatus,omitempty"`
	Proven       bool   `json:"proven"`
	Objective    int64  `json:"objective"`

	// Solutions counts the improving solutions the solver found
	Solutions int64 `json:"solutions,omitempty"`

	TotalCost  float64 `json:"totalCost"`
	TotalHours float64 `json:"totalHours"`

	// Violations and Conflicts count the problems reported by a failed run
	Violations int `json:"violations"`
	Conflicts  int `json:"conflicts"`
}

// Succeeded reports whether the run produced a schedule
func (r PlanningRun) Succeeded() bool {
	return r.Source != ""
}

// AssignedSlot is one worker placed on one (day, shift) by a run
type AssignedSlot struct {
	RunID    string `json:"runId"`
	WorkerID string `json:"workerId"`
	DayID    string `json:"day"`
	Shift    string `json:"shift"`
	Minutes  int    `json:"minutes"`
}

// LatestRuns returns the newest runs first, keeping at most limit (limit <= 0 keeps all)
func LatestRuns(runs []PlanningRun, limit int) []PlanningRun {
	sorted := make([]PlanningRun, len(runs))
	copy(sorted, runs)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// SlotsByWorker groups slots by worker ID, preserving their order
func SlotsByWorker(slots []AssignedSlot) map[string][]AssignedSlot {
	grouped := make(map[string][]AssignedSlot)
	for _, s := range slots {
		grouped[s.WorkerID] = append(grouped[s.WorkerID], s)
	}
	return grouped
}
