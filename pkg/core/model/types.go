package model

import (
	"math"
	"slices"
	"time"
)

// Common roles. Roles are free-form strings; these are the ones used in examples and tests.
const (
	RoleManager    = "manager"
	RoleStaff      = "staff"
	RoleSpecialist = "specialist"
)

// Worker is a schedulable person
type Worker struct {
	// Index is the worker's position in Model.Workers
	Index int

	ID   string
	Name string
	Role string

	// Wage is the hourly rate in currency units
	Wage float64

	MinHours float64
	MaxHours float64

	// Availability holds one window per horizon day, indexed by day index.
	// A nil entry means the worker is unavailable that day.
	Availability []*Interval

	// PreferredCategories are the shift categories the worker would like to work
	PreferredCategories []string

	Skills []string

	// MaxConsecutiveDays overrides the policy limit for this worker when > 0
	MaxConsecutiveDays int
}

// MinMinutes returns the lower hour bound in whole minutes
func (w *Worker) MinMinutes() int {
	return int(math.Round(w.MinHours * 60))
}

// MaxMinutes returns the upper hour bound in whole minutes
func (w *Worker) MaxMinutes() int {
	return int(math.Round(w.MaxHours * 60))
}

// WageCents returns the hourly wage in cents
func (w *Worker) WageCents() int64 {
	return int64(math.Round(w.Wage * 100))
}

// HasSkill reports whether the worker holds the given skill
func (w *Worker) HasSkill(skill string) bool {
	return slices.Contains(w.Skills, skill)
}

// Prefers reports whether the category is one of the worker's preferred categories
func (w *Worker) Prefers(category string) bool {
	return slices.Contains(w.PreferredCategories, category)
}

// IsAvailable reports whether the shift window on the given day lies inside the
// worker's availability window for that day
func (w *Worker) IsAvailable(dayIndex int, shift *ShiftType) bool {
	if dayIndex < 0 || dayIndex >= len(w.Availability) {
		return false
	}
	window := w.Availability[dayIndex]
	if window == nil {
		return false
	}
	return window.Contains(shift.Window())
}

// ShiftType is a named time interval within a day
type ShiftType struct {
	Index int

	Name string

	// Category is used for preference matching (defaults to Name)
	Category string

	// Start and End are minutes after midnight. End > Start; overnight shifts have End > 24:00.
	Start int
	End   int
}

// Window returns the shift's time window relative to its day
func (s *ShiftType) Window() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Duration returns the shift length in minutes
func (s *ShiftType) Duration() int {
	return s.End - s.Start
}

// Day is one slot in the planning horizon
type Day struct {
	Index int

	// ID uniquely identifies the day (a date "2006-01-02" for dated horizons)
	ID string

	// Name is a display name, e.g. "Mon"
	Name string

	// Date is zero for undated horizons
	Date time.Time
}

// HasDate reports whether the day carries a calendar date
func (d *Day) HasDate() bool {
	return !d.Date.IsZero()
}

// CoverageRequirement is the staffing floor for one (day, shift)
type CoverageRequirement struct {
	DayIndex   int
	ShiftIndex int

	MinHeadcount int

	// RoleMinimums maps a role to the minimum number of assigned workers holding it
	RoleMinimums map[string]int

	// SkillMinimums maps a skill to the minimum number of assigned workers holding it
	SkillMinimums map[string]int
}

// SortedRoles returns the role keys in a stable order
func (r *CoverageRequirement) SortedRoles() []string {
	return sortedKeys(r.RoleMinimums)
}

// SortedSkills returns the skill keys in a stable order
func (r *CoverageRequirement) SortedSkills() []string {
	return sortedKeys(r.SkillMinimums)
}

// Policy holds the labour rules that apply to every worker
type Policy struct {
	// MaxConsecutiveDays is the longest run of worked days allowed (0 disables the rule)
	MaxConsecutiveDays int

	// ForbidOverlaps rejects assignments whose shifts overlap in time
	ForbidOverlaps bool

	// MinRestMinutes is the minimum gap between two shifts of the same worker (0 disables)
	MinRestMinutes int

	// MaxTotalHours caps the total staff-hours of the schedule (0 disables)
	MaxTotalHours float64
}

// MaxTotalMinutes returns the staff-hour budget in minutes
func (p Policy) MaxTotalMinutes() int {
	return int(math.Round(p.MaxTotalHours * 60))
}

// RestRuleEnabled reports whether shift pairs need checking at all
func (p Policy) RestRuleEnabled() bool {
	return p.ForbidOverlaps || p.MinRestMinutes > 0
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
