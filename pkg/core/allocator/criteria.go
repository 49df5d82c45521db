package allocator

import "github.com/jakechorley/shift-planner/pkg/core/model"

// Criterion decides where a worker may go and how well a slot suits them
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// IsSlotValid reports whether allocating the worker to (day, shift) keeps the rule.
	// This acts as a veto - if ANY criterion returns false, the slot cannot be allocated.
	IsSlotValid(state *State, w *model.Worker, day, shift int) bool

	// Affinity scores how well the slot suits the worker, between 0.0 and 1.0.
	// Return 0 if this criterion doesn't affect worker selection.
	Affinity(state *State, w *model.Worker, day, shift int) float64

	// AffinityWeight returns the weight applied to Affinity
	AffinityWeight() float64
}

// DefaultCriteria returns the hard rules plus a cost preference
func DefaultCriteria() []Criterion {
	return []Criterion{
		&Availability{},
		&MaxHours{},
		&RestPeriod{},
		&ConsecutiveDays{},
		&LaborBudget{},
		&Cheapest{Weight: 1},
	}
}

// IsSlotValid checks every criterion
func IsSlotValid(state *State, w *model.Worker, day, shift int, criteria []Criterion) bool {
	if state.Holds(w.Index, day, shift) {
		return false
	}
	for _, c := range criteria {
		if !c.IsSlotValid(state, w, day, shift) {
			return false
		}
	}
	return true
}

// CalculateAffinity sums the weighted affinity of every criterion
func CalculateAffinity(state *State, w *model.Worker, day, shift int, criteria []Criterion) float64 {
	total := 0.0
	for _, c := range criteria {
		if weight := c.AffinityWeight(); weight != 0 {
			total += weight * c.Affinity(state, w, day, shift)
		}
	}
	return total
}
