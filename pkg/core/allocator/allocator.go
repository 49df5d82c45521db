package allocator

import (
	"fmt"
	"slices"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/validator"
)

// Allocator fills coverage greedily under a set of criteria
type Allocator struct {
	criteria []Criterion
	state    *State
}

// Config contains the configuration for an allocation
type Config struct {
	// Criteria to apply during allocation (DefaultCriteria when empty)
	Criteria []Criterion
}

// Outcome represents the result of an allocation
type Outcome struct {
	Assignment *schedule.Assignment

	// Success indicates whether every requirement was filled and the result validates
	Success bool

	// Unfilled lists the slots whose requirement could not be met
	Unfilled []string

	// Violations contains any validation errors found in the final assignment
	Violations []validator.Violation
}

// filter restricts which workers may fill a demand
type filter func(w *model.Worker) bool

// Allocate builds a schedule by filling the scarcest requirements first, each
// with the best-scoring eligible worker, then topping up workers still below
// their minimum hours. The result is validated before it is reported as a success.
func Allocate(m *model.Model, cfg Config) (*Outcome, error) {
	if m == nil {
		return nil, &model.ModelError{Reason: "model is nil"}
	}

	criteria := cfg.Criteria
	if len(criteria) == 0 {
		criteria = DefaultCriteria()
	}
	a := &Allocator{criteria: criteria, state: newState(m)}

	var unfilled []string
	for _, req := range a.rankRequirements() {
		if !a.fillRequirement(req) {
			unfilled = append(unfilled, slotName(m, req.DayIndex, req.ShiftIndex))
		}
	}

	a.topUpMinimums()

	return a.buildOutcome(unfilled), nil
}

// rankRequirements orders requirements by slack: eligible workers minus headcount
func (a *Allocator) rankRequirements() []*model.CoverageRequirement {
	m := a.state.Model
	slack := make(map[*model.CoverageRequirement]int, len(m.Requirements))
	for _, req := range m.Requirements {
		eligible := 0
		for _, w := range m.Workers {
			if IsSlotValid(a.state, w, req.DayIndex, req.ShiftIndex, a.criteria) {
				eligible++
			}
		}
		slack[req] = eligible - req.MinHeadcount
	}

	ranked := slices.Clone(m.Requirements)
	slices.SortStableFunc(ranked, func(x, y *model.CoverageRequirement) int {
		return slack[x] - slack[y]
	})
	return ranked
}

// fillRequirement allocates role and skill holders first, then any worker for the headcount
func (a *Allocator) fillRequirement(req *model.CoverageRequirement) bool {
	d, sh := req.DayIndex, req.ShiftIndex
	ok := true

	for _, role := range req.SortedRoles() {
		have := 0
		for _, w := range a.state.Roster(d, sh) {
			if w.Role == role {
				have++
			}
		}
		byRole := func(w *model.Worker) bool { return w.Role == role }
		ok = a.fill(d, sh, req.RoleMinimums[role]-have, byRole) && ok
	}

	for _, skill := range req.SortedSkills() {
		have := 0
		for _, w := range a.state.Roster(d, sh) {
			if w.HasSkill(skill) {
				have++
			}
		}
		bySkill := func(w *model.Worker) bool { return w.HasSkill(skill) }
		ok = a.fill(d, sh, req.SkillMinimums[skill]-have, bySkill) && ok
	}

	need := req.MinHeadcount - len(a.state.Roster(d, sh))
	return a.fill(d, sh, need, nil) && ok
}

func (a *Allocator) fill(d, sh, need int, accept filter) bool {
	for ; need > 0; need-- {
		w := a.findBestWorker(d, sh, accept)
		if w == nil {
			return false
		}
		a.state.assign(w.Index, d, sh)
	}
	return true
}

// findBestWorker returns the valid worker with the highest affinity for the slot.
// Ties go to the lower worker index.
func (a *Allocator) findBestWorker(d, sh int, accept filter) *model.Worker {
	var best *model.Worker
	var bestAffinity float64

	for _, w := range a.state.Model.Workers {
		if accept != nil && !accept(w) {
			continue
		}
		if !IsSlotValid(a.state, w, d, sh, a.criteria) {
			continue
		}

		affinity := CalculateAffinity(a.state, w, d, sh, a.criteria)
		if best == nil || affinity > bestAffinity {
			best = w
			bestAffinity = affinity
		}
	}

	return best
}

// topUpMinimums gives workers below their minimum hours extra slots
func (a *Allocator) topUpMinimums() {
	m := a.state.Model
	for _, w := range m.Workers {
		for a.state.Minutes[w.Index] < w.MinMinutes() {
			d, sh, found := a.findBestSlot(w)
			if !found {
				break
			}
			a.state.assign(w.Index, d, sh)
		}
	}
}

func (a *Allocator) findBestSlot(w *model.Worker) (int, int, bool) {
	m := a.state.Model
	bestDay, bestShift := -1, -1
	var bestAffinity float64

	for d := 0; d < m.NumDays(); d++ {
		for sh := 0; sh < m.NumShifts(); sh++ {
			if !IsSlotValid(a.state, w, d, sh, a.criteria) {
				continue
			}
			affinity := CalculateAffinity(a.state, w, d, sh, a.criteria)
			if bestDay < 0 || affinity > bestAffinity {
				bestDay, bestShift, bestAffinity = d, sh, affinity
			}
		}
	}

	return bestDay, bestShift, bestDay >= 0
}

func (a *Allocator) buildOutcome(unfilled []string) *Outcome {
	assignment := a.state.Assignment()
	result := validator.Validate(a.state.Model, assignment)

	return &Outcome{
		Assignment: assignment,
		Success:    result.Valid && len(unfilled) == 0,
		Unfilled:   unfilled,
		Violations: result.Violations,
	}
}

func slotName(m *model.Model, d, sh int) string {
	return fmt.Sprintf("%s/%s", m.Days[d].ID, m.Shifts[sh].Name)
}
