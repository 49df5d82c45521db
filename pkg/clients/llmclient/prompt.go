package llmclient

import (
	"fmt"
	"strings"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

// BuildPrompt describes the planning problem and the expected reply format.
// The same model always yields the same prompt.
func BuildPrompt(m *model.Model) string {
	var b strings.Builder

	b.WriteString("Create a shift schedule for the planning problem below.\n\n")

	b.WriteString("Days: ")
	dayIDs := make([]string, len(m.Days))
	for i, d := range m.Days {
		dayIDs[i] = d.ID
	}
	b.WriteString(strings.Join(dayIDs, ", "))
	b.WriteString("\n\nShifts:\n")
	for _, s := range m.Shifts {
		fmt.Fprintf(&b, "- %s: %s (%d minutes, category %s)\n", s.Name, s.Window(), s.Duration(), s.Category)
	}

	b.WriteString("\nWorkers:\n")
	for _, w := range m.Workers {
		fmt.Fprintf(&b, "- %s role=%s wage=%.2f/h hours=%.1f-%.1f", w.ID, w.Role, w.Wage, w.MinHours, w.MaxHours)
		if len(w.Skills) > 0 {
			fmt.Fprintf(&b, " skills=%s", strings.Join(w.Skills, ","))
		}
		if len(w.PreferredCategories) > 0 {
			fmt.Fprintf(&b, " prefers=%s", strings.Join(w.PreferredCategories, ","))
		}
		if limit := m.MaxConsecutiveDays(w); limit > 0 {
			fmt.Fprintf(&b, " maxConsecutiveDays=%d", limit)
		}
		fmt.Fprintf(&b, " available=%s\n", availability(m, w))
	}

	if len(m.Requirements) > 0 {
		b.WriteString("\nCoverage:\n")
		for _, r := range m.Requirements {
			fmt.Fprintf(&b, "- %s_%s: at least %d workers", m.Days[r.DayIndex].ID, m.Shifts[r.ShiftIndex].Name, r.MinHeadcount)
			for _, role := range r.SortedRoles() {
				fmt.Fprintf(&b, ", %d %s", r.RoleMinimums[role], role)
			}
			for _, skill := range r.SortedSkills() {
				fmt.Fprintf(&b, ", %d with %s", r.SkillMinimums[skill], skill)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRules:\n")
	if m.Policy.ForbidOverlaps {
		b.WriteString("- A worker cannot work overlapping shifts\n")
	}
	if m.Policy.MinRestMinutes > 0 {
		fmt.Fprintf(&b, "- At least %d minutes rest between a worker's shifts\n", m.Policy.MinRestMinutes)
	}
	if m.Policy.MaxTotalHours > 0 {
		fmt.Fprintf(&b, "- Total scheduled hours must not exceed %.1f\n", m.Policy.MaxTotalHours)
	}
	b.WriteString("- Keep every worker within their hour range and availability\n")

	fmt.Fprintf(&b, "\nReply with a JSON object mapping each worker ID to a list of \"DAY_SHIFT\" slots, "+
		"for example {\"%s\": [\"%s\"]}, then the line %s.\n", exampleWorker(m), exampleSlot(m), proposal.FinalMarker)

	return b.String()
}

func availability(m *model.Model, w *model.Worker) string {
	var parts []string
	for _, d := range m.Days {
		if d.Index < len(w.Availability) && w.Availability[d.Index] != nil {
			parts = append(parts, d.ID+" "+w.Availability[d.Index].String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

func exampleWorker(m *model.Model) string {
	if len(m.Workers) == 0 {
		return "EMP_001"
	}
	return m.Workers[0].ID
}

func exampleSlot(m *model.Model) string {
	if len(m.Days) == 0 || len(m.Shifts) == 0 {
		return "Mon_Morning"
	}
	return m.Days[0].ID + "_" + m.Shifts[0].Name
}
