package solver

import (
	sat "github.com/crillab/gophersat/solver"

	"github.com/jakechorley/shift-planner/pkg/core/constraints"
)

// encoding is a system rewritten as pseudo-boolean constraints over 1-based literals.
// Variable v of the system is literal v+1.
type encoding struct {
	constrs []sat.PBConstr

	// costLits and costWeights hold the objective with every weight made positive
	costLits    []int
	costWeights []int

	// offset is added to the normalised cost to get the system objective
	offset int64

	// conflict labels a row no assignment can satisfy, detected while encoding
	conflict string
}

func lit(v int) int {
	return v + 1
}

// encode normalises every row to "sum of positive weights >= bound".
// Forbidden variables are fixed false and dropped from the rows they appear in.
func encode(sys *constraints.System) *encoding {
	enc := &encoding{}

	// A sentinel literal past the last variable sizes the problem to cover every variable
	enc.constrs = append(enc.constrs, sat.PropClause(lit(sys.NumVars)))

	for v, forbidden := range sys.Forbidden {
		if forbidden {
			enc.constrs = append(enc.constrs, sat.PropClause(-lit(v)))
		}
	}

	for i := range sys.Rows {
		row := &sys.Rows[i]
		switch row.Sense {
		case constraints.GreaterEq:
			if !enc.addAtLeast(sys, row.Terms, row.RHS, 1) {
				enc.conflict = row.Label
				return enc
			}
		case constraints.LessEq:
			if !enc.addAtLeast(sys, row.Terms, -row.RHS, -1) {
				enc.conflict = row.Label
				return enc
			}
		case constraints.Equal:
			if !enc.addAtLeast(sys, row.Terms, row.RHS, 1) || !enc.addAtLeast(sys, row.Terms, -row.RHS, -1) {
				enc.conflict = row.Label
				return enc
			}
		}
	}

	for v, c := range sys.Objective {
		switch {
		case c == 0 || sys.Forbidden[v]:
		case c > 0:
			enc.costLits = append(enc.costLits, lit(v))
			enc.costWeights = append(enc.costWeights, int(c))
		default:
			enc.costLits = append(enc.costLits, -lit(v))
			enc.costWeights = append(enc.costWeights, int(-c))
			enc.offset += c
		}
	}

	return enc
}

// addAtLeast adds sign*terms >= bound. It reports false when even setting every
// literal true cannot reach the bound.
func (e *encoding) addAtLeast(sys *constraints.System, terms []constraints.Term, bound int64, sign int64) bool {
	var lits, weights []int
	var total int64

	for _, t := range terms {
		if sys.Forbidden[t.Var] {
			continue
		}
		c := sign * t.Coef
		switch {
		case c > 0:
			lits = append(lits, lit(t.Var))
			weights = append(weights, int(c))
			total += c
		case c < 0:
			// c*x == c + |c|*(not x)
			lits = append(lits, -lit(t.Var))
			weights = append(weights, int(-c))
			bound -= c
			total -= c
		}
	}

	if bound <= 0 {
		return true
	}
	if bound > total {
		return false
	}
	e.constrs = append(e.constrs, sat.GtEq(lits, weights, int(bound)))
	return true
}

func (e *encoding) hasCost() bool {
	return len(e.costLits) > 0
}

// setCost installs the objective as the problem's cost function
func (e *encoding) setCost(pb *sat.Problem) {
	if !e.hasCost() {
		return
	}
	lits := make([]sat.Lit, len(e.costLits))
	for i, l := range e.costLits {
		lits[i] = sat.IntToLit(int32(l))
	}
	pb.SetCostFunc(lits, e.costWeights)
}

// costAtMost restricts the normalised cost to at most limit.
// It reports false when the restriction is already implied.
func (e *encoding) costAtMost(limit int64) (sat.PBConstr, bool) {
	lits := make([]int, len(e.costLits))
	var total int64
	for i, l := range e.costLits {
		lits[i] = -l
		total += int64(e.costWeights[i])
	}
	if limit >= total {
		return sat.PBConstr{}, false
	}
	weights := append([]int(nil), e.costWeights...)
	return sat.GtEq(lits, weights, int(total-limit)), true
}

// normalised converts a system objective value into the encoding's cost
func (e *encoding) normalised(objective int64) int64 {
	return objective - e.offset
}

// decode turns a gophersat model into one value per system variable
func decode(sys *constraints.System, model any) []bool {
	values := make([]bool, sys.NumVars)
	switch m := model.(type) {
	case []bool:
		if len(m) < sys.NumVars {
			return nil
		}
		copy(values, m[:sys.NumVars])
	default:
		return nil
	}
	return values
}
