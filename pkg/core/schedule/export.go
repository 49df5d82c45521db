package schedule

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// SlotRef names a (day, shift) pair in the export format
type SlotRef struct {
	Day   string `json:"day" yaml:"day"`
	Shift string `json:"shift" yaml:"shift"`

	// raw keeps the compact "DAY_SHIFT" text so names containing '_' can be resolved later
	raw string
}

func (r SlotRef) String() string {
	return r.Day + "_" + r.Shift
}

// UnmarshalJSON accepts both {"day":"Mon","shift":"Morning"} and the compact "Mon_Morning" form
func (r *SlotRef) UnmarshalJSON(data []byte) error {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		day, shift, ok := strings.Cut(compact, "_")
		if !ok {
			return fmt.Errorf("invalid slot %q: expected DAY_SHIFT", compact)
		}
		r.Day, r.Shift = day, shift
		r.raw = compact
		return nil
	}

	type plain struct {
		Day   string `json:"day"`
		Shift string `json:"shift"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid slot: %w", err)
	}
	if p.Day == "" || p.Shift == "" {
		return fmt.Errorf("invalid slot: day and shift are required")
	}
	r.Day, r.Shift = p.Day, p.Shift
	return nil
}

// Export is the persisted schedule artefact: worker ID → assigned slots
type Export map[string][]SlotRef

// ToExport converts an assignment to the export format. Workers with no slots
// are listed with an empty slice.
func ToExport(m *model.Model, a *Assignment) Export {
	out := make(Export, m.NumWorkers())
	for _, w := range m.Workers {
		refs := make([]SlotRef, 0)
		for _, slot := range a.WorkerSlots(w.Index) {
			refs = append(refs, SlotRef{
				Day:   m.Days[slot.Day].ID,
				Shift: m.Shifts[slot.Shift].Name,
			})
		}
		out[w.ID] = refs
	}
	return out
}

// FromExport resolves an export against the model. Unknown workers, days or shifts
// and slots listed twice for one worker are reported as errors.
func FromExport(m *model.Model, e Export) (*Assignment, error) {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var slots []Slot
	for _, id := range ids {
		w, ok := m.WorkerIndex(id)
		if !ok {
			return nil, fmt.Errorf("unknown worker %q", id)
		}
		seen := make(map[Slot]bool, len(e[id]))
		for _, ref := range e[id] {
			d, s, err := resolveRef(m, ref)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", id, err)
			}
			slot := Slot{Worker: w, Day: d, Shift: s}
			if seen[slot] {
				return nil, fmt.Errorf("worker %s: slot %s/%s listed more than once", id, m.Days[d].ID, m.Shifts[s].Name)
			}
			seen[slot] = true
			slots = append(slots, slot)
		}
	}

	return FromSlots(m, slots...)
}

// resolveRef finds the day and shift of a reference. Compact references are split at
// whichever underscore yields a known day and shift.
func resolveRef(m *model.Model, ref SlotRef) (int, int, error) {
	if ref.raw == "" {
		d, ok := m.DayIndex(ref.Day)
		if !ok {
			return 0, 0, fmt.Errorf("unknown day %q", ref.Day)
		}
		s, ok := m.ShiftIndex(ref.Shift)
		if !ok {
			return 0, 0, fmt.Errorf("unknown shift %q", ref.Shift)
		}
		return d, s, nil
	}

	for i := 0; i < len(ref.raw); i++ {
		if ref.raw[i] != '_' {
			continue
		}
		d, dayOK := m.DayIndex(ref.raw[:i])
		s, shiftOK := m.ShiftIndex(ref.raw[i+1:])
		if dayOK && shiftOK {
			return d, s, nil
		}
	}
	return 0, 0, fmt.Errorf("unknown slot %q", ref.raw)
}

// Hours derives the hours-only view of an export. The result cannot be turned
// back into a roster.
func (e Export) Hours(m *model.Model) map[string]float64 {
	out := make(map[string]float64, len(e))
	for id, refs := range e {
		minutes := 0
		for _, ref := range refs {
			if _, s, err := resolveRef(m, ref); err == nil {
				minutes += m.Shifts[s].Duration()
			}
		}
		out[id] = float64(minutes) / 60
	}
	return out
}

// ParseExport decodes a JSON export
func ParseExport(data []byte) (Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse schedule export: %w", err)
	}
	return e, nil
}
