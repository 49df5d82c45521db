package allocator

import (
	"slices"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// Availability keeps workers inside their availability windows
type Availability struct{}

func (c *Availability) Name() string { return model.RuleAvailability }

func (c *Availability) IsSlotValid(state *State, w *model.Worker, day, shift int) bool {
	return w.IsAvailable(day, state.Model.Shifts[shift])
}

func (c *Availability) Affinity(*State, *model.Worker, int, int) float64 { return 0 }

func (c *Availability) AffinityWeight() float64 { return 0 }

// MaxHours keeps each worker at or below their maximum hours
type MaxHours struct{}

func (c *MaxHours) Name() string { return model.RuleHourBounds }

func (c *MaxHours) IsSlotValid(state *State, w *model.Worker, _ int, shift int) bool {
	return state.Minutes[w.Index]+state.Model.Shifts[shift].Duration() <= w.MaxMinutes()
}

func (c *MaxHours) Affinity(*State, *model.Worker, int, int) float64 { return 0 }

func (c *MaxHours) AffinityWeight() float64 { return 0 }

// RestPeriod rejects slots that overlap, or sit too close to, the worker's other slots
type RestPeriod struct{}

func (c *RestPeriod) Name() string { return model.RuleRestPeriod }

func (c *RestPeriod) IsSlotValid(state *State, w *model.Worker, day, shift int) bool {
	m := state.Model
	if !m.Policy.RestRuleEnabled() {
		return true
	}

	window := m.SlotWindow(day, shift)
	// Shifts run at most two days, so only neighbouring days can clash
	for d := max(day-2, 0); d <= min(day+2, m.NumDays()-1); d++ {
		for sh := 0; sh < m.NumShifts(); sh++ {
			if !state.Holds(w.Index, d, sh) {
				continue
			}
			other := m.SlotWindow(d, sh)
			if window.Overlaps(other) {
				return false
			}
			if m.Policy.MinRestMinutes > 0 && window.Gap(other) < m.Policy.MinRestMinutes {
				return false
			}
		}
	}
	return true
}

func (c *RestPeriod) Affinity(*State, *model.Worker, int, int) float64 { return 0 }

func (c *RestPeriod) AffinityWeight() float64 { return 0 }

// ConsecutiveDays rejects slots that would make a run of worked days too long
type ConsecutiveDays struct{}

func (c *ConsecutiveDays) Name() string { return model.RuleConsecutiveDays }

func (c *ConsecutiveDays) IsSlotValid(state *State, w *model.Worker, day, _ int) bool {
	limit := state.Model.MaxConsecutiveDays(w)
	if limit <= 0 || state.WorksOn(w.Index, day) {
		return true
	}

	run := 1
	for d := day - 1; d >= 0 && state.WorksOn(w.Index, d); d-- {
		run++
	}
	for d := day + 1; d < state.Model.NumDays() && state.WorksOn(w.Index, d); d++ {
		run++
	}
	return run <= limit
}

func (c *ConsecutiveDays) Affinity(*State, *model.Worker, int, int) float64 { return 0 }

func (c *ConsecutiveDays) AffinityWeight() float64 { return 0 }

// LaborBudget keeps the schedule's total hours within the policy budget
type LaborBudget struct{}

func (c *LaborBudget) Name() string { return model.RuleLaborBudget }

func (c *LaborBudget) IsSlotValid(state *State, _ *model.Worker, _ int, shift int) bool {
	budget := state.Model.Policy.MaxTotalMinutes()
	return budget <= 0 || state.TotalMinutes+state.Model.Shifts[shift].Duration() <= budget
}

func (c *LaborBudget) Affinity(*State, *model.Worker, int, int) float64 { return 0 }

func (c *LaborBudget) AffinityWeight() float64 { return 0 }

// Cheapest prefers workers with a lower wage
type Cheapest struct {
	Weight float64
}

func (c *Cheapest) Name() string { return "Cheapest" }

func (c *Cheapest) IsSlotValid(*State, *model.Worker, int, int) bool { return true }

func (c *Cheapest) Affinity(state *State, w *model.Worker, _, _ int) float64 {
	highest := slices.MaxFunc(state.Model.Workers, func(a, b *model.Worker) int {
		return int(a.WageCents() - b.WageCents())
	}).WageCents()
	if highest <= 0 {
		return 1
	}
	return 1 - float64(w.WageCents())/float64(highest+1)
}

func (c *Cheapest) AffinityWeight() float64 { return c.Weight }

// Preferred favours slots in the worker's preferred shift categories
type Preferred struct {
	Weight float64
}

func (c *Preferred) Name() string { return "Preferred" }

func (c *Preferred) IsSlotValid(*State, *model.Worker, int, int) bool { return true }

func (c *Preferred) Affinity(state *State, w *model.Worker, _, shift int) float64 {
	if w.Prefers(state.Model.Shifts[shift].Category) {
		return 1
	}
	return 0
}

func (c *Preferred) AffinityWeight() float64 { return c.Weight }
