package allocator

import (
	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
)

// State is the allocation in progress
type State struct {
	Model *model.Model

	held []bool

	// Minutes holds the assigned minutes per worker
	Minutes []int

	// TotalMinutes is the staff time of the whole schedule
	TotalMinutes int
}

func newState(m *model.Model) *State {
	return &State{
		Model:   m,
		held:    make([]bool, m.NumWorkers()*m.NumDays()*m.NumShifts()),
		Minutes: make([]int, m.NumWorkers()),
	}
}

func (s *State) index(w, d, sh int) int {
	return (w*s.Model.NumDays()+d)*s.Model.NumShifts() + sh
}

// Holds reports whether worker w is allocated to (d, sh)
func (s *State) Holds(w, d, sh int) bool {
	return s.held[s.index(w, d, sh)]
}

// WorksOn reports whether worker w holds any shift on day d
func (s *State) WorksOn(w, d int) bool {
	for sh := 0; sh < s.Model.NumShifts(); sh++ {
		if s.Holds(w, d, sh) {
			return true
		}
	}
	return false
}

// Roster returns the workers allocated to (d, sh)
func (s *State) Roster(d, sh int) []*model.Worker {
	var out []*model.Worker
	for _, w := range s.Model.Workers {
		if s.Holds(w.Index, d, sh) {
			out = append(out, w)
		}
	}
	return out
}

func (s *State) assign(w, d, sh int) {
	s.held[s.index(w, d, sh)] = true
	minutes := s.Model.Shifts[sh].Duration()
	s.Minutes[w] += minutes
	s.TotalMinutes += minutes
}

// Assignment returns the allocation as an immutable assignment
func (s *State) Assignment() *schedule.Assignment {
	var slots []schedule.Slot
	for _, w := range s.Model.Workers {
		for d := 0; d < s.Model.NumDays(); d++ {
			for sh := 0; sh < s.Model.NumShifts(); sh++ {
				if s.Holds(w.Index, d, sh) {
					slots = append(slots, schedule.Slot{Worker: w.Index, Day: d, Shift: sh})
				}
			}
		}
	}
	// Every slot comes from the model's own ranges
	a, _ := schedule.FromSlots(s.Model, slots...)
	return a
}
