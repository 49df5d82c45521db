package validator

import (
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
)

// AvailabilityCheck rejects slots outside the worker's availability window.
//
// Violations:
//   - The worker is closed on the slot's day
//   - The shift does not fit inside the worker's window for that day
type AvailabilityCheck struct{}

func (c *AvailabilityCheck) Rule() string { return model.RuleAvailability }

func (c *AvailabilityCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	var violations []Violation

	for _, slot := range a.Slots() {
		w := m.Workers[slot.Worker]
		shift := m.Shifts[slot.Shift]
		if w.IsAvailable(slot.Day, shift) {
			continue
		}

		window := w.Availability[slot.Day]
		detail := fmt.Sprintf("assigned %s but unavailable that day", slotName(m, slot.Day, slot.Shift))
		if window != nil {
			detail = fmt.Sprintf("assigned %s (%s) outside availability %s",
				slotName(m, slot.Day, slot.Shift), shift.Window(), window)
		}

		violations = append(violations, Violation{Rule: c.Rule(), Entity: w.ID, Detail: detail})
	}

	return violations
}

// HourBoundsCheck keeps each worker's assigned minutes within [MinHours, MaxHours]
type HourBoundsCheck struct{}

func (c *HourBoundsCheck) Rule() string { return model.RuleHourBounds }

func (c *HourBoundsCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	var violations []Violation

	for _, w := range m.Workers {
		minutes := 0
		for _, slot := range a.WorkerSlots(w.Index) {
			minutes += m.Shifts[slot.Shift].Duration()
		}

		switch {
		case minutes > w.MaxMinutes():
			violations = append(violations, Violation{
				Rule:   c.Rule(),
				Entity: w.ID,
				Detail: fmt.Sprintf("assigned %.2fh exceeds maximum %.2fh", float64(minutes)/60, w.MaxHours),
			})
		case minutes < w.MinMinutes():
			violations = append(violations, Violation{
				Rule:   c.Rule(),
				Entity: w.ID,
				Detail: fmt.Sprintf("assigned %.2fh is below minimum %.2fh", float64(minutes)/60, w.MinHours),
			})
		}
	}

	return violations
}

// CoverageCheck enforces headcount, role and skill minimums per (day, shift)
type CoverageCheck struct{}

func (c *CoverageCheck) Rule() string { return model.RuleCoverage }

func (c *CoverageCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	var violations []Violation

	for _, req := range m.Requirements {
		roster := a.Roster(req.DayIndex, req.ShiftIndex)
		slot := slotName(m, req.DayIndex, req.ShiftIndex)

		if len(roster) < req.MinHeadcount {
			violations = append(violations, Violation{
				Rule:   c.Rule(),
				Entity: slot,
				Detail: fmt.Sprintf("has %d workers but needs %d", len(roster), req.MinHeadcount),
			})
		}

		for _, role := range req.SortedRoles() {
			count := 0
			for _, w := range roster {
				if m.Workers[w].Role == role {
					count++
				}
			}
			if count < req.RoleMinimums[role] {
				violations = append(violations, Violation{
					Rule:   c.Rule(),
					Entity: slot,
					Detail: fmt.Sprintf("has %d %s but needs %d", count, role, req.RoleMinimums[role]),
				})
			}
		}

		for _, skill := range req.SortedSkills() {
			count := 0
			for _, w := range roster {
				if m.Workers[w].HasSkill(skill) {
					count++
				}
			}
			if count < req.SkillMinimums[skill] {
				violations = append(violations, Violation{
					Rule:   c.Rule(),
					Entity: slot,
					Detail: fmt.Sprintf("has %d workers with %s but needs %d", count, skill, req.SkillMinimums[skill]),
				})
			}
		}
	}

	return violations
}

// ConsecutiveDaysCheck rejects runs of worked days longer than the worker's limit
type ConsecutiveDaysCheck struct{}

func (c *ConsecutiveDaysCheck) Rule() string { return model.RuleConsecutiveDays }

func (c *ConsecutiveDaysCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	var violations []Violation

	for _, w := range m.Workers {
		limit := m.MaxConsecutiveDays(w)
		if limit <= 0 {
			continue
		}

		run := 0
		for d := 0; d <= m.NumDays(); d++ {
			if d < m.NumDays() && a.WorksOn(w.Index, d) {
				run++
				continue
			}
			if run > limit {
				violations = append(violations, Violation{
					Rule:   c.Rule(),
					Entity: w.ID,
					Detail: fmt.Sprintf("works %d consecutive days from %s (limit %d)", run, m.Days[d-run].ID, limit),
				})
			}
			run = 0
		}
	}

	return violations
}

// RestPeriodCheck rejects overlapping slots and, when a minimum rest is set,
// slots closer together than the rest period. Times are compared on the
// absolute horizon timeline, so overnight shifts are handled across days.
type RestPeriodCheck struct{}

func (c *RestPeriodCheck) Rule() string { return model.RuleRestPeriod }

func (c *RestPeriodCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	if !m.Policy.RestRuleEnabled() {
		return nil
	}

	var violations []Violation

	for _, w := range m.Workers {
		slots := a.WorkerSlots(w.Index)
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				first := m.SlotWindow(slots[i].Day, slots[i].Shift)
				second := m.SlotWindow(slots[j].Day, slots[j].Shift)
				names := fmt.Sprintf("%s and %s",
					slotName(m, slots[i].Day, slots[i].Shift), slotName(m, slots[j].Day, slots[j].Shift))

				if first.Overlaps(second) {
					violations = append(violations, Violation{
						Rule:   c.Rule(),
						Entity: w.ID,
						Detail: names + " overlap",
					})
					continue
				}

				if gap := first.Gap(second); m.Policy.MinRestMinutes > 0 && gap < m.Policy.MinRestMinutes {
					violations = append(violations, Violation{
						Rule:   c.Rule(),
						Entity: w.ID,
						Detail: fmt.Sprintf("%s leave %dm rest (minimum %dm)", names, gap, m.Policy.MinRestMinutes),
					})
				}
			}
		}
	}

	return violations
}

// LaborBudgetCheck caps the total assigned hours of the schedule
type LaborBudgetCheck struct{}

func (c *LaborBudgetCheck) Rule() string { return model.RuleLaborBudget }

func (c *LaborBudgetCheck) Check(m *model.Model, a *schedule.Assignment) []Violation {
	budget := m.Policy.MaxTotalMinutes()
	if budget <= 0 {
		return nil
	}

	total := 0
	for _, slot := range a.Slots() {
		total += m.Shifts[slot.Shift].Duration()
	}

	if total <= budget {
		return nil
	}

	return []Violation{{
		Rule:   c.Rule(),
		Entity: "schedule",
		Detail: fmt.Sprintf("assigned %.2fh exceeds budget %.2fh", float64(total)/60, m.Policy.MaxTotalHours),
	}}
}
