package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the layout of day IDs on dated horizons
const DateLayout = "2006-01-02"

// DefaultMaxConsecutiveDays is applied when the input does not set a policy limit
const DefaultMaxConsecutiveDays = 5

// Model is the fully resolved, immutable planning problem.
// It is built once per run and passed explicitly into every component.
type Model struct {
	Workers []*Worker
	Shifts  []*ShiftType
	Days    []*Day

	// Requirements holds one merged requirement per (day, shift) that has any floor,
	// sorted by day then shift
	Requirements []*CoverageRequirement

	Policy Policy

	workerByID  map[string]int
	dayByKey    map[string]int
	shiftByName map[string]int
	reqBySlot   map[int]*CoverageRequirement
}

// RequirementOverride adjusts coverage for the dated days it applies to.
// Overrides replace the headcount and merge role/skill minimums by maximum.
type RequirementOverride struct {
	// AppliesTo reports whether the override covers the given date
	AppliesTo func(date time.Time) bool

	// Shift restricts the override to one shift name (empty = every shift)
	Shift string

	MinHeadcount  *int
	RoleMinimums  map[string]int
	SkillMinimums map[string]int
}

// NumWorkers returns the number of workers
func (m *Model) NumWorkers() int { return len(m.Workers) }

// NumDays returns the number of horizon days
func (m *Model) NumDays() int { return len(m.Days) }

// NumShifts returns the number of shift types
func (m *Model) NumShifts() int { return len(m.Shifts) }

// WorkerIndex looks up a worker by ID
func (m *Model) WorkerIndex(id string) (int, bool) {
	i, ok := m.workerByID[id]
	return i, ok
}

// DayIndex looks up a day by ID or display name
func (m *Model) DayIndex(key string) (int, bool) {
	i, ok := m.dayByKey[key]
	return i, ok
}

// ShiftIndex looks up a shift type by name
func (m *Model) ShiftIndex(name string) (int, bool) {
	i, ok := m.shiftByName[name]
	return i, ok
}

// Requirement returns the coverage floor of a slot, or nil when it has none
func (m *Model) Requirement(day, shift int) *CoverageRequirement {
	return m.reqBySlot[day*len(m.Shifts)+shift]
}

// SlotWindow returns the absolute time window of a slot in minutes from the horizon start
func (m *Model) SlotWindow(day, shift int) Interval {
	return m.Shifts[shift].Window().Shift(day * MinutesPerDay)
}

// MaxConsecutiveDays returns the consecutive-day limit that applies to a worker (0 = none)
func (m *Model) MaxConsecutiveDays(w *Worker) int {
	if w.MaxConsecutiveDays > 0 {
		return w.MaxConsecutiveDays
	}
	return m.Policy.MaxConsecutiveDays
}

// New validates the input and resolves it into a Model.
// Every malformed field is reported as a *ModelError.
func New(in Input, overrides ...RequirementOverride) (*Model, error) {
	if err := ValidateInput(&in); err != nil {
		return nil, err
	}

	m := &Model{
		workerByID:  make(map[string]int),
		dayByKey:    make(map[string]int),
		shiftByName: make(map[string]int),
		reqBySlot:   make(map[int]*CoverageRequirement),
	}

	if err := m.buildDays(in.Horizon); err != nil {
		return nil, err
	}
	if err := m.buildShifts(in.Shifts); err != nil {
		return nil, err
	}
	if err := m.buildWorkers(in.Workers); err != nil {
		return nil, err
	}
	if err := m.buildRequirements(in.Requirements); err != nil {
		return nil, err
	}
	if err := m.applyOverrides(overrides); err != nil {
		return nil, err
	}
	m.buildPolicy(in.Policy)

	return m, nil
}

func (m *Model) buildDays(h HorizonInput) error {
	switch {
	case len(h.DayIDs) > 0 && h.Start != "":
		return newModelError("horizon", "set either dayIds or start/days, not both")

	case len(h.DayIDs) > 0:
		for i, id := range h.DayIDs {
			if _, exists := m.dayByKey[id]; exists {
				return newModelError(fmt.Sprintf("horizon.dayIds[%d]", i), "duplicate day %q", id)
			}
			m.Days = append(m.Days, &Day{Index: i, ID: id, Name: id})
			m.dayByKey[id] = i
		}

	case h.Start != "":
		if h.Days <= 0 {
			return newModelError("horizon.days", "must be positive for a dated horizon")
		}
		start, err := time.Parse(DateLayout, h.Start)
		if err != nil {
			return newModelError("horizon.start", "invalid date %q", h.Start)
		}
		for i := 0; i < h.Days; i++ {
			date := start.AddDate(0, 0, i)
			day := &Day{
				Index: i,
				ID:    date.Format(DateLayout),
				Name:  date.Format("Mon"),
				Date:  date,
			}
			m.Days = append(m.Days, day)
			m.dayByKey[day.ID] = i
		}

		// Weekday names are only usable as keys when the horizon is at most a week long
		if h.Days <= 7 {
			for _, day := range m.Days {
				m.dayByKey[day.Name] = day.Index
			}
		}

	default:
		return newModelError("horizon", "no days defined")
	}

	return nil
}

func (m *Model) buildShifts(shifts []ShiftInput) error {
	for i, in := range shifts {
		field := fmt.Sprintf("shifts[%d]", i)

		if _, exists := m.shiftByName[in.Name]; exists {
			return newModelError(field+".name", "duplicate shift %q", in.Name)
		}

		start, err := ParseClock(in.Start)
		if err != nil {
			return newModelError(field+".start", "%v", err)
		}
		end, err := ParseClock(in.End)
		if err != nil {
			return newModelError(field+".end", "%v", err)
		}
		if start >= MinutesPerDay {
			return newModelError(field+".start", "shift must start before 24:00")
		}
		if start == end {
			return newModelError(field, "shift %q has zero length", in.Name)
		}
		// Ends at or before the start run into the next day
		if end < start {
			end += MinutesPerDay
		}

		category := in.Category
		if category == "" {
			category = in.Name
		}

		m.Shifts = append(m.Shifts, &ShiftType{
			Index:    i,
			Name:     in.Name,
			Category: category,
			Start:    start,
			End:      end,
		})
		m.shiftByName[in.Name] = i
	}
	return nil
}

func (m *Model) buildWorkers(workers []WorkerInput) error {
	for i, in := range workers {
		field := fmt.Sprintf("workers[%d]", i)

		if _, exists := m.workerByID[in.ID]; exists {
			return newModelError(field+".id", "duplicate worker %q", in.ID)
		}
		if in.MinHours > in.MaxHours {
			return newModelError(field, "minHours %.2f exceeds maxHours %.2f", in.MinHours, in.MaxHours)
		}

		availability, err := m.resolveAvailability(field, in)
		if err != nil {
			return err
		}

		name := in.Name
		if name == "" {
			name = in.ID
		}
		role := in.Role
		if role == "" {
			role = RoleStaff
		}

		m.Workers = append(m.Workers, &Worker{
			Index:               i,
			ID:                  in.ID,
			Name:                name,
			Role:                role,
			Wage:                in.Wage,
			MinHours:            in.MinHours,
			MaxHours:            in.MaxHours,
			Availability:        availability,
			PreferredCategories: slices.Clone(in.PreferredShifts),
			Skills:              slices.Clone(in.Skills),
			MaxConsecutiveDays:  in.MaxConsecutiveDays,
		})
		m.workerByID[in.ID] = i
	}
	return nil
}

// resolveAvailability turns the keyed availability map into one window per day
func (m *Model) resolveAvailability(field string, in WorkerInput) ([]*Interval, error) {
	windows := make([]*Interval, len(m.Days))

	if in.Availability == nil {
		for d := range windows {
			full := FullDay
			windows[d] = &full
		}
	} else {
		keys := make([]string, 0, len(in.Availability))
		for key := range in.Availability {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		// Day IDs and names are aliases; two keys for one day are ambiguous
		seen := make(map[int]string, len(keys))
		for _, key := range keys {
			value := in.Availability[key]
			d, ok := m.dayByKey[key]
			if !ok {
				return nil, newModelError(field+".availability."+key, "unknown day")
			}
			if other, dup := seen[d]; dup {
				return nil, newModelError(field+".availability."+key,
					"day %s is already given as %q", m.Days[d].ID, other)
			}
			seen[d] = key

			switch strings.ToLower(strings.TrimSpace(value)) {
			case "", "off", "none":
				windows[d] = nil
			case "*", "all":
				full := FullDay
				windows[d] = &full
			default:
				interval, err := ParseInterval(value)
				if err != nil {
					return nil, newModelError(field+".availability."+key, "%v", err)
				}
				windows[d] = &interval
			}
		}
	}

	for _, key := range in.UnavailableDays {
		d, ok := m.dayByKey[key]
		if !ok {
			return nil, newModelError(field+".unavailableDays", "unknown day %q", key)
		}
		windows[d] = nil
	}

	return windows, nil
}

func (m *Model) buildRequirements(reqs []RequirementInput) error {
	for i, in := range reqs {
		field := fmt.Sprintf("requirements[%d]", i)

		s, ok := m.shiftByName[in.Shift]
		if !ok {
			return newModelError(field+".shift", "unknown shift %q", in.Shift)
		}

		days := make([]int, 0, len(m.Days))
		if in.Day == "" {
			for d := range m.Days {
				days = append(days, d)
			}
		} else {
			d, ok := m.dayByKey[in.Day]
			if !ok {
				return newModelError(field+".day", "unknown day %q", in.Day)
			}
			days = append(days, d)
		}

		skills := make(map[string]int, len(in.SkillMinimums)+len(in.RequiredSkills))
		for skill, count := range in.SkillMinimums {
			skills[skill] = count
		}
		for _, skill := range in.RequiredSkills {
			skills[skill] = max(skills[skill], 1)
		}

		for _, d := range days {
			req := m.slotRequirement(d, s)
			req.MinHeadcount = max(req.MinHeadcount, in.MinHeadcount)
			mergeMinimums(req.RoleMinimums, in.RoleMinimums)
			mergeMinimums(req.SkillMinimums, skills)
		}
	}

	m.sortRequirements()
	return nil
}

func (m *Model) applyOverrides(overrides []RequirementOverride) error {
	if len(overrides) == 0 {
		return nil
	}

	for i, o := range overrides {
		field := fmt.Sprintf("requirementOverrides[%d]", i)

		if o.AppliesTo == nil {
			return newModelError(field, "override has no recurrence")
		}

		shifts := make([]int, 0, len(m.Shifts))
		if o.Shift == "" {
			for s := range m.Shifts {
				shifts = append(shifts, s)
			}
		} else {
			s, ok := m.shiftByName[o.Shift]
			if !ok {
				return newModelError(field+".shift", "unknown shift %q", o.Shift)
			}
			shifts = append(shifts, s)
		}

		for _, day := range m.Days {
			if !day.HasDate() {
				return newModelError(field, "overrides need a dated horizon")
			}
			if !o.AppliesTo(day.Date) {
				continue
			}
			for _, s := range shifts {
				req := m.slotRequirement(day.Index, s)
				if o.MinHeadcount != nil {
					req.MinHeadcount = *o.MinHeadcount
				}
				mergeMinimums(req.RoleMinimums, o.RoleMinimums)
				mergeMinimums(req.SkillMinimums, o.SkillMinimums)
			}
		}
	}

	m.sortRequirements()
	return nil
}

func (m *Model) buildPolicy(in PolicyInput) {
	m.Policy = Policy{
		MaxConsecutiveDays: in.MaxConsecutiveDays,
		ForbidOverlaps:     true,
		MinRestMinutes:     in.MinRestMinutes,
		MaxTotalHours:      in.MaxTotalHours,
	}
	if m.Policy.MaxConsecutiveDays == 0 {
		m.Policy.MaxConsecutiveDays = DefaultMaxConsecutiveDays
	}
	if in.ForbidOverlaps != nil {
		m.Policy.ForbidOverlaps = *in.ForbidOverlaps
	}
}

// slotRequirement returns the requirement for a slot, creating an empty one if needed
func (m *Model) slotRequirement(day, shift int) *CoverageRequirement {
	key := day*len(m.Shifts) + shift
	req, ok := m.reqBySlot[key]
	if !ok {
		req = &CoverageRequirement{
			DayIndex:      day,
			ShiftIndex:    shift,
			RoleMinimums:  make(map[string]int),
			SkillMinimums: make(map[string]int),
		}
		m.reqBySlot[key] = req
		m.Requirements = append(m.Requirements, req)
	}
	return req
}

func (m *Model) sortRequirements() {
	slices.SortFunc(m.Requirements, func(a, b *CoverageRequirement) int {
		if a.DayIndex != b.DayIndex {
			return a.DayIndex - b.DayIndex
		}
		return a.ShiftIndex - b.ShiftIndex
	})
}

func mergeMinimums(dst, src map[string]int) {
	for k, v := range src {
		dst[k] = max(dst[k], v)
	}
}
