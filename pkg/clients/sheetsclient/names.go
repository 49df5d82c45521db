package sheetsclient

import (
	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// DisplayNames maps worker IDs to the names shown on published sheets:
//   - The worker's name when it is unique
//   - "Name (ID)" when several workers share the name
//   - The ID when the worker has no name
func DisplayNames(workers []*model.Worker) map[string]string {
	nameCounts := make(map[string]int)
	for _, w := range workers {
		if w.Name != "" {
			nameCounts[w.Name]++
		}
	}

	names := make(map[string]string, len(workers))
	for _, w := range workers {
		switch {
		case w.Name == "":
			names[w.ID] = w.ID
		case nameCounts[w.Name] == 1:
			names[w.ID] = w.Name
		default:
			names[w.ID] = w.Name + " (" + w.ID + ")"
		}
	}
	return names
}
