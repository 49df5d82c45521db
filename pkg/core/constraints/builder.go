package constraints

import (
	"fmt"
	"math"
	"strings"

	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// ObjectiveKind selects what the solver minimises
type ObjectiveKind string

const (
	// ObjectiveCost minimises total wage cost
	ObjectiveCost ObjectiveKind = "cost"

	// ObjectivePreference maximises preferred slots, breaking ties by cost
	ObjectivePreference ObjectiveKind = "preference"

	// ObjectiveBlend minimises a weighted sum of cost and missed preferences
	ObjectiveBlend ObjectiveKind = "blend"
)

// CostScale converts objective cost units (cent-minutes) back to currency units
const CostScale = 100 * 60

// ParseObjectiveKind parses an objective name, defaulting to cost when empty
func ParseObjectiveKind(s string) (ObjectiveKind, error) {
	switch ObjectiveKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", ObjectiveCost:
		return ObjectiveCost, nil
	case ObjectivePreference:
		return ObjectivePreference, nil
	case ObjectiveBlend:
		return ObjectiveBlend, nil
	default:
		return "", fmt.Errorf("unknown objective %q (expected cost, preference or blend)", s)
	}
}

// Options controls how a model is encoded
type Options struct {
	Objective ObjectiveKind

	// CostWeight scales wage cost in the blend objective
	CostWeight float64

	// PreferenceWeight is the value, in currency units, of each preferred slot in the blend objective
	PreferenceWeight float64

	// Encoders overrides the default rule encoders (mainly for tests)
	Encoders []Encoder
}

// Encoder adds the rows of one rule to the system
type Encoder interface {
	// Name returns the rule this encoder implements
	Name() string

	// Encode appends bounds and rows for the rule
	Encode(m *model.Model, sys *System)
}

// DefaultEncoders returns every rule encoder in rule order
func DefaultEncoders() []Encoder {
	return []Encoder{
		&AvailabilityEncoder{},
		&DayLinkEncoder{},
		&HourBoundsEncoder{},
		&CoverageEncoder{},
		&ConsecutiveDaysEncoder{},
		&RestPeriodEncoder{},
		&LaborBudgetEncoder{},
	}
}

// Build translates a model into a 0/1 linear system with the requested objective
func Build(m *model.Model, opts Options) (*System, error) {
	if m == nil {
		return nil, &model.ModelError{Reason: "model is nil"}
	}
	if err := checkConsistency(m); err != nil {
		return nil, err
	}

	kind := opts.Objective
	if kind == "" {
		kind = ObjectiveCost
	}
	if kind == ObjectiveBlend && (opts.CostWeight < 0 || opts.PreferenceWeight < 0) {
		return nil, fmt.Errorf("blend weights must be non-negative")
	}

	sys := newSystem(m.NumWorkers(), m.NumDays(), m.NumShifts())

	encoders := opts.Encoders
	if encoders == nil {
		encoders = DefaultEncoders()
	}
	for _, enc := range encoders {
		enc.Encode(m, sys)
	}

	if err := setObjective(m, sys, kind, opts); err != nil {
		return nil, err
	}

	return sys, nil
}

// checkConsistency re-checks the references a model built outside model.New could get wrong
func checkConsistency(m *model.Model) error {
	if m.NumWorkers() == 0 || m.NumDays() == 0 || m.NumShifts() == 0 {
		return &model.ModelError{Reason: "model needs at least one worker, day and shift"}
	}
	for i, req := range m.Requirements {
		if req.DayIndex < 0 || req.DayIndex >= m.NumDays() {
			return &model.ModelError{Field: fmt.Sprintf("requirements[%d]", i), Reason: "unknown day"}
		}
		if req.ShiftIndex < 0 || req.ShiftIndex >= m.NumShifts() {
			return &model.ModelError{Field: fmt.Sprintf("requirements[%d]", i), Reason: "unknown shift"}
		}
	}
	for _, w := range m.Workers {
		if len(w.Availability) != m.NumDays() {
			return &model.ModelError{Field: "workers." + w.ID + ".availability", Reason: "does not cover the horizon"}
		}
		for d, window := range w.Availability {
			if window != nil && window.Start >= window.End {
				return &model.ModelError{
					Field:  fmt.Sprintf("workers.%s.availability.%s", w.ID, m.Days[d].ID),
					Reason: "interval is unordered",
				}
			}
		}
	}
	return nil
}

func setObjective(m *model.Model, sys *System, kind ObjectiveKind, opts Options) error {
	sys.ObjectiveKind = kind

	costs := make([]int64, sys.NumDecision)
	var totalCost int64
	for _, w := range m.Workers {
		wage := w.WageCents()
		for d := range m.Days {
			for _, s := range m.Shifts {
				v := sys.Var(w.Index, d, s.Index)
				costs[v] = wage * int64(s.Duration())
				totalCost += costs[v]
			}
		}
	}

	switch kind {
	case ObjectiveCost:
		copy(sys.Objective, costs)

	case ObjectivePreference:
		// Every preferred slot outweighs the whole cost range
		bigM := totalCost + 1
		for v := range costs {
			sys.Objective[v] = costs[v]
			if prefersSlot(m, sys, v) {
				sys.Objective[v] -= bigM
			}
		}

	case ObjectiveBlend:
		bonus := int64(math.Round(opts.PreferenceWeight * CostScale))
		for v := range costs {
			sys.Objective[v] = int64(math.Round(opts.CostWeight * float64(costs[v])))
			if prefersSlot(m, sys, v) {
				sys.Objective[v] -= bonus
			}
		}

	default:
		return fmt.Errorf("unknown objective %q", kind)
	}

	return nil
}

func prefersSlot(m *model.Model, sys *System, v int) bool {
	w, _, s := sys.Slot(v)
	return m.Workers[w].Prefers(m.Shifts[s].Category)
}

// slotLabel renders a (day, shift) pair for row labels
func slotLabel(m *model.Model, d, s int) string {
	return m.Days[d].ID + "/" + m.Shifts[s].Name
}
