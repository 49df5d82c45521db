package constraints

import (
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// AvailabilityEncoder fixes every slot outside a worker's availability window to 0
type AvailabilityEncoder struct{}

func (e *AvailabilityEncoder) Name() string { return model.RuleAvailability }

func (e *AvailabilityEncoder) Encode(m *model.Model, sys *System) {
	for _, w := range m.Workers {
		for d := range m.Days {
			for _, s := range m.Shifts {
				if !w.IsAvailable(d, s) {
					sys.Forbidden[sys.Var(w.Index, d, s.Index)] = true
				}
			}
		}
	}
}

// DayLinkEncoder ties each auxiliary day variable to the OR of that day's shift variables:
// y ≥ x_s for every shift, and y ≤ Σ x_s.
type DayLinkEncoder struct{}

func (e *DayLinkEncoder) Name() string { return "DayLink" }

func (e *DayLinkEncoder) Encode(m *model.Model, sys *System) {
	for _, w := range m.Workers {
		for d := range m.Days {
			y := sys.DayVar(w.Index, d)
			upper := Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("DayLink %s %s upper", w.ID, m.Days[d].ID),
				Terms: []Term{{Var: y, Coef: 1}},
				Sense: LessEq,
			}
			for _, s := range m.Shifts {
				x := sys.Var(w.Index, d, s.Index)
				sys.addRow(Row{
					Rule:  e.Name(),
					Label: fmt.Sprintf("DayLink %s %s", w.ID, slotLabel(m, d, s.Index)),
					Terms: []Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}},
					Sense: LessEq,
				})
				upper.Terms = append(upper.Terms, Term{Var: x, Coef: -1})
			}
			sys.addRow(upper)
		}
	}
}

// HourBoundsEncoder keeps each worker's assigned minutes within [min, max]
type HourBoundsEncoder struct{}

func (e *HourBoundsEncoder) Name() string { return model.RuleHourBounds }

func (e *HourBoundsEncoder) Encode(m *model.Model, sys *System) {
	for _, w := range m.Workers {
		terms := make([]Term, 0, sys.Days*sys.Shifts)
		for d := range m.Days {
			for _, s := range m.Shifts {
				terms = append(terms, Term{Var: sys.Var(w.Index, d, s.Index), Coef: int64(s.Duration())})
			}
		}

		sys.addRow(Row{
			Rule:  e.Name(),
			Label: fmt.Sprintf("HourBounds %s max %.2fh", w.ID, w.MaxHours),
			Terms: terms,
			Sense: LessEq,
			RHS:   int64(w.MaxMinutes()),
		})

		if w.MinMinutes() > 0 {
			sys.addRow(Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("HourBounds %s min %.2fh", w.ID, w.MinHours),
				Terms: terms,
				Sense: GreaterEq,
				RHS:   int64(w.MinMinutes()),
			})
		}
	}
}

// CoverageEncoder adds headcount, role and skill floors for every requirement
type CoverageEncoder struct{}

func (e *CoverageEncoder) Name() string { return model.RuleCoverage }

func (e *CoverageEncoder) Encode(m *model.Model, sys *System) {
	for _, req := range m.Requirements {
		slot := slotLabel(m, req.DayIndex, req.ShiftIndex)

		if req.MinHeadcount > 0 {
			sys.addRow(Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("Coverage %s headcount", slot),
				Terms: e.slotTerms(m, sys, req, func(*model.Worker) bool { return true }),
				Sense: GreaterEq,
				RHS:   int64(req.MinHeadcount),
			})
		}

		for _, role := range req.SortedRoles() {
			if req.RoleMinimums[role] <= 0 {
				continue
			}
			sys.addRow(Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("Coverage %s role %s", slot, role),
				Terms: e.slotTerms(m, sys, req, func(w *model.Worker) bool { return w.Role == role }),
				Sense: GreaterEq,
				RHS:   int64(req.RoleMinimums[role]),
			})
		}

		for _, skill := range req.SortedSkills() {
			if req.SkillMinimums[skill] <= 0 {
				continue
			}
			sys.addRow(Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("Coverage %s skill %s", slot, skill),
				Terms: e.slotTerms(m, sys, req, func(w *model.Worker) bool { return w.HasSkill(skill) }),
				Sense: GreaterEq,
				RHS:   int64(req.SkillMinimums[skill]),
			})
		}
	}
}

func (e *CoverageEncoder) slotTerms(m *model.Model, sys *System, req *model.CoverageRequirement, eligible func(*model.Worker) bool) []Term {
	terms := make([]Term, 0, len(m.Workers))
	for _, w := range m.Workers {
		if eligible(w) {
			terms = append(terms, Term{Var: sys.Var(w.Index, req.DayIndex, req.ShiftIndex), Coef: 1})
		}
	}
	return terms
}

// ConsecutiveDaysEncoder bounds every window of limit+1 days to at most limit worked days
type ConsecutiveDaysEncoder struct{}

func (e *ConsecutiveDaysEncoder) Name() string { return model.RuleConsecutiveDays }

func (e *ConsecutiveDaysEncoder) Encode(m *model.Model, sys *System) {
	for _, w := range m.Workers {
		limit := m.MaxConsecutiveDays(w)
		if limit <= 0 || limit >= m.NumDays() {
			continue
		}

		for start := 0; start+limit < m.NumDays(); start++ {
			terms := make([]Term, 0, limit+1)
			for d := start; d <= start+limit; d++ {
				terms = append(terms, Term{Var: sys.DayVar(w.Index, d), Coef: 1})
			}
			sys.addRow(Row{
				Rule:  e.Name(),
				Label: fmt.Sprintf("ConsecutiveDays %s from %s", w.ID, m.Days[start].ID),
				Terms: terms,
				Sense: LessEq,
				RHS:   int64(limit),
			})
		}
	}
}

// RestPeriodEncoder forbids pairs of slots that overlap or leave less than the minimum rest
type RestPeriodEncoder struct{}

func (e *RestPeriodEncoder) Name() string { return model.RuleRestPeriod }

func (e *RestPeriodEncoder) Encode(m *model.Model, sys *System) {
	if !m.Policy.RestRuleEnabled() {
		return
	}

	// Slots further apart than this many days can never conflict
	maxShiftLength := 0
	for _, s := range m.Shifts {
		maxShiftLength = max(maxShiftLength, s.End)
	}
	dayReach := (maxShiftLength+m.Policy.MinRestMinutes)/model.MinutesPerDay + 1

	for _, w := range m.Workers {
		for da := range m.Days {
			for sa := range m.Shifts {
				a := sys.Var(w.Index, da, sa)
				if sys.Forbidden[a] {
					continue
				}
				for db := da; db < m.NumDays() && db-da <= dayReach; db++ {
					for sb := range m.Shifts {
						b := sys.Var(w.Index, db, sb)
						if b <= a || sys.Forbidden[b] {
							continue
						}
						if !SlotsConflict(m, da, sa, db, sb) {
							continue
						}
						sys.addRow(Row{
							Rule:  e.Name(),
							Label: fmt.Sprintf("RestPeriod %s %s & %s", w.ID, slotLabel(m, da, sa), slotLabel(m, db, sb)),
							Terms: []Term{{Var: a, Coef: 1}, {Var: b, Coef: 1}},
							Sense: LessEq,
							RHS:   1,
						})
					}
				}
			}
		}
	}
}

// SlotsConflict reports whether one worker holding both slots breaks the rest policy
func SlotsConflict(m *model.Model, da, sa, db, sb int) bool {
	a := m.SlotWindow(da, sa)
	b := m.SlotWindow(db, sb)
	if a.Overlaps(b) {
		return m.Policy.ForbidOverlaps || m.Policy.MinRestMinutes > 0
	}
	return m.Policy.MinRestMinutes > 0 && a.Gap(b) < m.Policy.MinRestMinutes
}

// LaborBudgetEncoder caps the schedule's total assigned minutes
type LaborBudgetEncoder struct{}

func (e *LaborBudgetEncoder) Name() string { return model.RuleLaborBudget }

func (e *LaborBudgetEncoder) Encode(m *model.Model, sys *System) {
	budget := m.Policy.MaxTotalMinutes()
	if budget <= 0 {
		return
	}

	terms := make([]Term, 0, sys.NumDecision)
	for _, w := range m.Workers {
		for d := range m.Days {
			for _, s := range m.Shifts {
				terms = append(terms, Term{Var: sys.Var(w.Index, d, s.Index), Coef: int64(s.Duration())})
			}
		}
	}

	sys.addRow(Row{
		Rule:  e.Name(),
		Label: fmt.Sprintf("LaborBudget max %.2fh", m.Policy.MaxTotalHours),
		Terms: terms,
		Sense: LessEq,
		RHS:   int64(budget),
	})
}
