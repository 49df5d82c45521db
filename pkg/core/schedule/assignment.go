package schedule

import (
	"fmt"
	"slices"

	"github.com/jakechorley/shift-planner/pkg/core/constraints"
	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// Assignment is a total function Worker × Day × Shift → bool stored densely.
// It is never mutated after construction; With returns a modified copy.
type Assignment struct {
	workers int
	days    int
	shifts  int
	slots   []bool
}

// Slot identifies one (worker, day, shift) cell by index
type Slot struct {
	Worker int
	Day    int
	Shift  int
}

// Empty returns an assignment with no slots set, sized for the model
func Empty(m *model.Model) *Assignment {
	return &Assignment{
		workers: m.NumWorkers(),
		days:    m.NumDays(),
		shifts:  m.NumShifts(),
		slots:   make([]bool, m.NumWorkers()*m.NumDays()*m.NumShifts()),
	}
}

// FromSlots builds an assignment with the given cells set
func FromSlots(m *model.Model, slots ...Slot) (*Assignment, error) {
	a := Empty(m)
	for _, s := range slots {
		if !a.inRange(s.Worker, s.Day, s.Shift) {
			return nil, fmt.Errorf("slot %+v is outside the model", s)
		}
		a.slots[a.index(s.Worker, s.Day, s.Shift)] = true
	}
	return a, nil
}

// Decode reads the decision variables of a solver result into an assignment.
// Auxiliary variables are ignored.
func Decode(m *model.Model, values []bool) (*Assignment, error) {
	a := Empty(m)
	if len(values) < len(a.slots) {
		return nil, fmt.Errorf("failed to decode solution: got %d values, need at least %d", len(values), len(a.slots))
	}
	// Decision variables share the assignment's worker-major layout
	copy(a.slots, values[:len(a.slots)])
	return a, nil
}

// Encode writes the assignment into a full variable vector of the system,
// setting the auxiliary day variables consistently
func (a *Assignment) Encode(sys *constraints.System) []bool {
	values := make([]bool, sys.NumVars)
	copy(values, a.slots)
	for w := 0; w < a.workers; w++ {
		for d := 0; d < a.days; d++ {
			values[sys.DayVar(w, d)] = a.WorksOn(w, d)
		}
	}
	return values
}

func (a *Assignment) index(w, d, s int) int {
	return (w*a.days+d)*a.shifts + s
}

func (a *Assignment) inRange(w, d, s int) bool {
	return w >= 0 && w < a.workers && d >= 0 && d < a.days && s >= 0 && s < a.shifts
}

// Has reports whether worker w holds shift s on day d
func (a *Assignment) Has(w, d, s int) bool {
	if !a.inRange(w, d, s) {
		return false
	}
	return a.slots[a.index(w, d, s)]
}

// With returns a copy of the assignment with one cell changed
func (a *Assignment) With(w, d, s int, assigned bool) *Assignment {
	out := &Assignment{
		workers: a.workers,
		days:    a.days,
		shifts:  a.shifts,
		slots:   slices.Clone(a.slots),
	}
	if out.inRange(w, d, s) {
		out.slots[out.index(w, d, s)] = assigned
	}
	return out
}

// WorksOn reports whether worker w holds any shift on day d
func (a *Assignment) WorksOn(w, d int) bool {
	for s := 0; s < a.shifts; s++ {
		if a.Has(w, d, s) {
			return true
		}
	}
	return false
}

// Slots returns every set cell in worker, day, shift order
func (a *Assignment) Slots() []Slot {
	var out []Slot
	for w := 0; w < a.workers; w++ {
		out = append(out, a.WorkerSlots(w)...)
	}
	return out
}

// WorkerSlots returns the cells held by one worker in day, shift order
func (a *Assignment) WorkerSlots(w int) []Slot {
	var out []Slot
	for d := 0; d < a.days; d++ {
		for s := 0; s < a.shifts; s++ {
			if a.Has(w, d, s) {
				out = append(out, Slot{Worker: w, Day: d, Shift: s})
			}
		}
	}
	return out
}

// Roster returns the worker indices assigned to (day, shift) in worker order
func (a *Assignment) Roster(d, s int) []int {
	var out []int
	for w := 0; w < a.workers; w++ {
		if a.Has(w, d, s) {
			out = append(out, w)
		}
	}
	return out
}

// Count returns the number of set cells
func (a *Assignment) Count() int {
	n := 0
	for _, set := range a.slots {
		if set {
			n++
		}
	}
	return n
}

// Matches reports whether the assignment is sized for the model
func (a *Assignment) Matches(m *model.Model) bool {
	return a.workers == m.NumWorkers() && a.days == m.NumDays() && a.shifts == m.NumShifts()
}

// Equal reports whether two assignments hold exactly the same cells
func (a *Assignment) Equal(b *Assignment) bool {
	return a.workers == b.workers && a.days == b.days && a.shifts == b.shifts && slices.Equal(a.slots, b.slots)
}
