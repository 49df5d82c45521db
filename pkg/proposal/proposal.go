package proposal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
)

// FinalMarker may prefix or suffix a proposal to signal the schedule is final
const FinalMarker = "FINAL_SCHEDULE"

// ErrNoSchedule is returned when the proposal text holds no JSON object
var ErrNoSchedule = errors.New("no schedule found in proposal")

// Source produces a candidate schedule as raw text.
// The text is untrusted: it is parsed and validated before anything uses it.
type Source interface {
	Propose(ctx context.Context, m *model.Model) (string, error)
}

// Parse extracts a schedule export from proposal text.
// The FINAL_SCHEDULE marker, code fences and any prose around the JSON object are ignored.
func Parse(text string) (schedule.Export, error) {
	cleaned := strings.ReplaceAll(text, FinalMarker, "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return nil, ErrNoSchedule
	}

	export, err := schedule.ParseExport([]byte(cleaned[start : end+1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse proposal: %w", err)
	}
	return export, nil
}

// Resolve parses proposal text and maps it onto the model's workers, days and shifts
func Resolve(m *model.Model, text string) (*schedule.Assignment, error) {
	export, err := Parse(text)
	if err != nil {
		return nil, err
	}

	a, err := schedule.FromExport(m, export)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve proposal: %w", err)
	}
	return a, nil
}

// FileSource reads a proposal from a file on disk
type FileSource struct {
	Path string
}

// Propose returns the file contents
func (s *FileSource) Propose(ctx context.Context, m *model.Model) (string, error) {
	if s.Path == "" {
		return "", fmt.Errorf("proposal file path is empty")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read proposal file: %w", err)
	}
	return string(data), nil
}

// Text is a proposal that is already in memory, e.g. from an HTTP request body
type Text string

// Propose returns the text unchanged
func (t Text) Propose(ctx context.Context, m *model.Model) (string, error) {
	return string(t), nil
}
