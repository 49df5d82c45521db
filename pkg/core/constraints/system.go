package constraints

import (
	"fmt"
	"strings"
)

// Sense is the comparison of a linear row against its right-hand side
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Term is one coefficient-variable product of a row
type Term struct {
	Var  int
	Coef int64
}

// Row is a linear constraint Σ coef·x (sense) RHS over 0/1 variables
type Row struct {
	// Rule is the model rule this row encodes (model.Rule* constants)
	Rule string

	// Label identifies the row in conflict reports, e.g. "Coverage Mon/Morning headcount"
	Label string

	Terms []Term
	Sense Sense
	RHS   int64
}

// Satisfied reports whether the row holds under a complete assignment
func (r *Row) Satisfied(values []bool) bool {
	var lhs int64
	for _, t := range r.Terms {
		if values[t.Var] {
			lhs += t.Coef
		}
	}
	switch r.Sense {
	case LessEq:
		return lhs <= r.RHS
	case GreaterEq:
		return lhs >= r.RHS
	default:
		return lhs == r.RHS
	}
}

// IsUnitCover reports whether the row has the form Σ x ≥ k with unit coefficients
func (r *Row) IsUnitCover() bool {
	if r.Sense != GreaterEq || r.RHS <= 0 {
		return false
	}
	for _, t := range r.Terms {
		if t.Coef != 1 {
			return false
		}
	}
	return true
}

func (r *Row) String() string {
	var sb strings.Builder
	for i, t := range r.Terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%d·x%d", t.Coef, t.Var)
	}
	return fmt.Sprintf("%s: %s %s %d", r.Label, sb.String(), r.Sense, r.RHS)
}

// System is the complete 0/1 linear program for one model.
//
// Decision variables come first, one per (worker, day, shift), indexed worker-major:
// (w*Days + d)*Shifts + s. They are followed by one auxiliary "day worked" variable
// per (worker, day), indexed NumDecision + w*Days + d.
type System struct {
	Workers int
	Days    int
	Shifts  int

	NumDecision int
	NumVars     int

	// Forbidden marks variables whose upper bound is 0
	Forbidden []bool

	Rows []Row

	// Objective holds one integer coefficient per variable (minimised)
	Objective []int64

	// ObjectiveKind records which objective the coefficients encode
	ObjectiveKind ObjectiveKind
}

func newSystem(workers, days, shifts int) *System {
	numDecision := workers * days * shifts
	numVars := numDecision + workers*days
	return &System{
		Workers:     workers,
		Days:        days,
		Shifts:      shifts,
		NumDecision: numDecision,
		NumVars:     numVars,
		Forbidden:   make([]bool, numVars),
		Objective:   make([]int64, numVars),
	}
}

// Var returns the decision variable index of (worker, day, shift)
func (s *System) Var(w, d, sh int) int {
	return (w*s.Days+d)*s.Shifts + sh
}

// DayVar returns the auxiliary "worked on day d" variable of worker w
func (s *System) DayVar(w, d int) int {
	return s.NumDecision + w*s.Days + d
}

// Slot decomposes a decision variable index into (worker, day, shift)
func (s *System) Slot(v int) (w, d, sh int) {
	sh = v % s.Shifts
	rest := v / s.Shifts
	d = rest % s.Days
	w = rest / s.Days
	return w, d, sh
}

// IsDecision reports whether v is a (worker, day, shift) variable
func (s *System) IsDecision(v int) bool {
	return v < s.NumDecision
}

// Evaluate returns the objective value of a complete assignment
func (s *System) Evaluate(values []bool) int64 {
	var total int64
	for v, set := range values {
		if set {
			total += s.Objective[v]
		}
	}
	return total
}

// Feasible reports whether a complete assignment satisfies every bound and row.
// The first violated row is returned when it does not.
func (s *System) Feasible(values []bool) (bool, *Row) {
	for v, set := range values {
		if set && s.Forbidden[v] {
			return false, nil
		}
	}
	for i := range s.Rows {
		if !s.Rows[i].Satisfied(values) {
			return false, &s.Rows[i]
		}
	}
	return true, nil
}

// RowsByRule returns the number of rows per rule
func (s *System) RowsByRule() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Rows {
		counts[r.Rule]++
	}
	return counts
}

func (s *System) addRow(row Row) {
	s.Rows = append(s.Rows, row)
}
