package services

import (
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/solver"
)

// ConflictKind classifies why a model cannot be scheduled
type ConflictKind string

const (
	// ConflictCoverage means a slot needs more workers than can work it
	ConflictCoverage ConflictKind = "coverage"

	// ConflictRole means too few workers of a required role can work a slot
	ConflictRole ConflictKind = "role"

	// ConflictSkill means too few workers with a required skill can work a slot
	ConflictSkill ConflictKind = "skill"

	// ConflictCapacity means total required hours exceed what all workers can supply
	ConflictCapacity ConflictKind = "capacity"

	// ConflictLaborBudget means required hours exceed the schedule's hour budget
	ConflictLaborBudget ConflictKind = "labor_budget"

	// ConflictMinHours means a worker cannot reach their minimum hours
	ConflictMinHours ConflictKind = "min_hours"

	// ConflictPropagation names the constraint the solver found unsatisfiable up front
	ConflictPropagation ConflictKind = "propagation"
)

// Conflict explains one reason a schedule could not be built
type Conflict struct {
	Kind   ConflictKind `json:"kind"`
	Entity string       `json:"entity"`
	Detail string       `json:"detail"`
	Hint   string       `json:"hint"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("[%s] %s: %s", c.Kind, c.Entity, c.Detail)
}

// Diagnose looks for structural reasons a model has no valid schedule.
// Each check is a necessary condition, so an empty result does not prove feasibility.
func Diagnose(m *model.Model) []Conflict {
	var conflicts []Conflict
	demand := 0

	for _, req := range m.Requirements {
		shift := m.Shifts[req.ShiftIndex]
		slot := m.Days[req.DayIndex].ID + "/" + shift.Name
		eligible := eligibleWorkers(m, req.DayIndex, shift)
		demand += req.MinHeadcount * shift.Duration()

		if len(eligible) < req.MinHeadcount {
			conflicts = append(conflicts, Conflict{
				Kind:   ConflictCoverage,
				Entity: slot,
				Detail: fmt.Sprintf("needs %d workers but only %d can work it", req.MinHeadcount, len(eligible)),
				Hint: fmt.Sprintf("Lower the headcount of %s to %d or make %d more workers available",
					slot, len(eligible), req.MinHeadcount-len(eligible)),
			})
		}

		for _, role := range req.SortedRoles() {
			count := 0
			for _, w := range eligible {
				if w.Role == role {
					count++
				}
			}
			if need := req.RoleMinimums[role]; count < need {
				conflicts = append(conflicts, Conflict{
					Kind:   ConflictRole,
					Entity: slot,
					Detail: fmt.Sprintf("needs %d %s but only %d can work it", need, role, count),
					Hint:   fmt.Sprintf("Make another %s available for %s or lower its %s minimum", role, slot, role),
				})
			}
		}

		for _, skill := range req.SortedSkills() {
			count := 0
			for _, w := range eligible {
				if w.HasSkill(skill) {
					count++
				}
			}
			if need := req.SkillMinimums[skill]; count < need {
				conflicts = append(conflicts, Conflict{
					Kind:   ConflictSkill,
					Entity: slot,
					Detail: fmt.Sprintf("needs %d workers with %s but only %d can work it", need, skill, count),
					Hint:   fmt.Sprintf("Train or make available another worker with %s for %s", skill, slot),
				})
			}
		}
	}

	capacity := 0
	for _, w := range m.Workers {
		capacity += w.MaxMinutes()
	}
	if demand > capacity {
		conflicts = append(conflicts, Conflict{
			Kind:   ConflictCapacity,
			Entity: "schedule",
			Detail: fmt.Sprintf("coverage needs %s but workers can supply at most %s", hours(demand), hours(capacity)),
			Hint:   fmt.Sprintf("Raise worker maximum hours or add workers to cover %s more", hours(demand-capacity)),
		})
	}

	if budget := m.Policy.MaxTotalMinutes(); budget > 0 && demand > budget {
		conflicts = append(conflicts, Conflict{
			Kind:   ConflictLaborBudget,
			Entity: "schedule",
			Detail: fmt.Sprintf("coverage needs %s but the budget allows %s", hours(demand), hours(budget)),
			Hint:   fmt.Sprintf("Raise the labour budget to at least %s", hours(demand)),
		})
	}

	for _, w := range m.Workers {
		if w.MinMinutes() == 0 {
			continue
		}
		reachable := 0
		for d := range m.Days {
			for _, shift := range m.Shifts {
				if w.IsAvailable(d, shift) {
					reachable += shift.Duration()
				}
			}
		}
		if reachable < w.MinMinutes() {
			conflicts = append(conflicts, Conflict{
				Kind:   ConflictMinHours,
				Entity: w.ID,
				Detail: fmt.Sprintf("needs %s but is only available for %s", hours(w.MinMinutes()), hours(reachable)),
				Hint:   fmt.Sprintf("Lower the minimum hours of %s or widen their availability", w.ID),
			})
		}
	}

	return conflicts
}

// Hints lists the distinct remediation hints of the conflicts, adding a general
// hint when no structural conflict explains the failure
func Hints(conflicts []Conflict, res *solver.Result) []string {
	seen := make(map[string]bool)
	var hints []string
	structural := false

	for _, c := range conflicts {
		if c.Kind != ConflictPropagation {
			structural = true
		}
		if c.Hint == "" || seen[c.Hint] {
			continue
		}
		seen[c.Hint] = true
		hints = append(hints, c.Hint)
	}

	if structural || res == nil {
		return hints
	}

	switch res.Status {
	case solver.TimedOut:
		hints = append(hints, "No schedule was found within the search budget; raise the solver time or solution limit")
	default:
		hints = append(hints, "Each requirement can be met alone but not together; relax rest, consecutive-day or hour limits")
	}
	return hints
}

func propagationConflict(label string) Conflict {
	return Conflict{
		Kind:   ConflictPropagation,
		Entity: label,
		Detail: "cannot be satisfied by any assignment",
		Hint:   fmt.Sprintf("Relax the constraint %q", label),
	}
}

// eligibleWorkers returns the workers who could work the shift on the day at all
func eligibleWorkers(m *model.Model, day int, shift *model.ShiftType) []*model.Worker {
	var out []*model.Worker
	for _, w := range m.Workers {
		if w.IsAvailable(day, shift) && shift.Duration() <= w.MaxMinutes() {
			out = append(out, w)
		}
	}
	return out
}

func hours(minutes int) string {
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}
