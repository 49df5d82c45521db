package validator

import (
	"fmt"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
)

// Violation describes one broken rule
type Violation struct {
	// Rule is the name of the rule that failed (model.Rule* constants)
	Rule string `json:"rule"`

	// Entity identifies what broke it: a worker ID or a "day/shift" slot
	Entity string `json:"entity"`

	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Rule, v.Entity, v.Detail)
}

// Result is the outcome of validating one assignment
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// ByRule returns the violations of one rule
func (r Result) ByRule(rule string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Rule == rule {
			out = append(out, v)
		}
	}
	return out
}

// Check verifies one rule of a complete assignment
type Check interface {
	// Rule returns the name of the rule this check verifies
	Rule() string

	// Check returns every violation of the rule, in entity order (empty if valid)
	Check(m *model.Model, a *schedule.Assignment) []Violation
}

// DefaultChecks returns every check in rule order
func DefaultChecks() []Check {
	return []Check{
		&AvailabilityCheck{},
		&HourBoundsCheck{},
		&CoverageCheck{},
		&ConsecutiveDaysCheck{},
		&RestPeriodCheck{},
		&LaborBudgetCheck{},
	}
}

// Validate checks an assignment against every rule of the model.
// When no checks are given the default checks run.
// It has no side effects; the same input always yields the same result.
func Validate(m *model.Model, a *schedule.Assignment, checks ...Check) Result {
	result := Result{Violations: []Violation{}}

	if a == nil || !a.Matches(m) {
		result.Violations = append(result.Violations, Violation{
			Rule:   "Shape",
			Entity: "assignment",
			Detail: "assignment does not match the model's workers, days and shifts",
		})
		return result
	}

	if len(checks) == 0 {
		checks = DefaultChecks()
	}

	for _, check := range checks {
		result.Violations = append(result.Violations, check.Check(m, a)...)
	}

	result.Valid = len(result.Violations) == 0
	return result
}

func slotName(m *model.Model, d, s int) string {
	return m.Days[d].ID + "/" + m.Shifts[s].Name
}
