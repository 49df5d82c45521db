package schedule

import (
	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// Metrics are the derived views of an assignment
type Metrics struct {
	Workers []WorkerMetrics `json:"workers"`
	Slots   []SlotMetrics   `json:"slots"`

	// TotalMinutes is the sum of assigned minutes across all workers
	TotalMinutes int `json:"totalMinutes"`

	// TotalCost is the wage cost of the whole schedule in currency units
	TotalCost float64 `json:"totalCost"`

	// PreferenceScore is the fraction of all assigned slots that match a preferred category
	PreferenceScore float64 `json:"preferenceScore"`
}

// WorkerMetrics summarises one worker's schedule
type WorkerMetrics struct {
	WorkerID string  `json:"workerId"`
	Minutes  int     `json:"minutes"`
	Hours    float64 `json:"hours"`
	Cost     float64 `json:"cost"`
	Shifts   int     `json:"shifts"`

	// PreferenceScore is the fraction of the worker's slots matching a preferred category
	// (0 when nothing is assigned)
	PreferenceScore float64 `json:"preferenceScore"`
}

// SlotMetrics summarises one (day, shift)
type SlotMetrics struct {
	DayID     string   `json:"day"`
	ShiftName string   `json:"shift"`
	Headcount int      `json:"headcount"`
	Required  int      `json:"required"`
	Roster    []string `json:"roster"`
}

// TotalHours returns the schedule's total assigned hours
func (m Metrics) TotalHours() float64 {
	return float64(m.TotalMinutes) / 60
}

// ComputeMetrics derives hours, cost, coverage and preference views from an assignment
func ComputeMetrics(m *model.Model, a *Assignment) Metrics {
	out := Metrics{
		Workers: make([]WorkerMetrics, 0, m.NumWorkers()),
		Slots:   make([]SlotMetrics, 0, m.NumDays()*m.NumShifts()),
	}

	preferredTotal := 0
	assignedTotal := 0

	for _, w := range m.Workers {
		wm := WorkerMetrics{WorkerID: w.ID}
		preferred := 0

		for _, slot := range a.WorkerSlots(w.Index) {
			shift := m.Shifts[slot.Shift]
			wm.Minutes += shift.Duration()
			wm.Shifts++
			if w.Prefers(shift.Category) {
				preferred++
			}
		}

		wm.Hours = float64(wm.Minutes) / 60
		wm.Cost = float64(w.WageCents()*int64(wm.Minutes)) / (100 * 60)
		if wm.Shifts > 0 {
			wm.PreferenceScore = float64(preferred) / float64(wm.Shifts)
		}

		out.Workers = append(out.Workers, wm)
		out.TotalMinutes += wm.Minutes
		out.TotalCost += wm.Cost
		preferredTotal += preferred
		assignedTotal += wm.Shifts
	}

	if assignedTotal > 0 {
		out.PreferenceScore = float64(preferredTotal) / float64(assignedTotal)
	}

	for _, day := range m.Days {
		for _, shift := range m.Shifts {
			sm := SlotMetrics{DayID: day.ID, ShiftName: shift.Name}
			for _, w := range a.Roster(day.Index, shift.Index) {
				sm.Roster = append(sm.Roster, m.Workers[w].ID)
			}
			sm.Headcount = len(sm.Roster)
			if req := m.Requirement(day.Index, shift.Index); req != nil {
				sm.Required = req.MinHeadcount
			}
			out.Slots = append(out.Slots, sm)
		}
	}

	return out
}
