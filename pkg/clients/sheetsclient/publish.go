package sheetsclient

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/schedule"
	"github.com/jakechorley/shift-planner/pkg/core/services"
)

const dayLabelLayout = "Mon Jan 02 2006"

// SheetWriter replaces the contents of one spreadsheet tab. *Client implements it.
type SheetWriter interface {
	ReplaceSheet(ctx context.Context, spreadsheetID, sheetTitle string, values [][]interface{}) error
}

// Sink publishes accepted schedules to a spreadsheet: a roster tab (days × shifts)
// and an hours tab (one row per worker plus a total row)
type Sink struct {
	writer        SheetWriter
	spreadsheetID string
	rosterTab     string
	hoursTab      string
	logger        *zap.Logger
}

// NewSink creates a sink writing to the configured spreadsheet
func NewSink(writer SheetWriter, cfg *config.SheetsConfig, logger *zap.Logger) *Sink {
	return &Sink{
		writer:        writer,
		spreadsheetID: cfg.SpreadsheetID,
		rosterTab:     cfg.RosterTab,
		hoursTab:      cfg.HoursTab,
		logger:        logger,
	}
}

// Report implements services.ReportingSink. Failed runs have nothing to publish and are skipped.
func (s *Sink) Report(ctx context.Context, outcome *services.Outcome) error {
	if !outcome.Succeeded() {
		s.logger.Info("Skipping sheets publish for failed run", zap.String("run_id", outcome.RunID))
		return nil
	}
	if outcome.Model == nil || outcome.Metrics == nil {
		return fmt.Errorf("outcome %s has no schedule to publish", outcome.RunID)
	}

	m := outcome.Model
	names := DisplayNames(m.Workers)

	rosterTitle := TabTitle(s.rosterTab, m)
	s.logger.Debug("Publishing roster tab",
		zap.String("run_id", outcome.RunID),
		zap.String("tab", rosterTitle))
	if err := s.writer.ReplaceSheet(ctx, s.spreadsheetID, rosterTitle, RosterRows(m, outcome.Metrics, names)); err != nil {
		return fmt.Errorf("failed to publish roster: %w", err)
	}

	hoursTitle := TabTitle(s.hoursTab, m)
	s.logger.Debug("Publishing hours tab",
		zap.String("run_id", outcome.RunID),
		zap.String("tab", hoursTitle))
	if err := s.writer.ReplaceSheet(ctx, s.spreadsheetID, hoursTitle, HoursRows(m, outcome.Metrics, names)); err != nil {
		return fmt.Errorf("failed to publish hours: %w", err)
	}

	s.logger.Info("Published schedule to sheets",
		zap.String("run_id", outcome.RunID),
		zap.String("roster_tab", rosterTitle),
		zap.String("hours_tab", hoursTitle))
	return nil
}

// TabTitle names a tab after the horizon, e.g. "Roster Mon Jan 08 2024 - Sun Jan 14 2024".
// Undated horizons use their first and last day IDs.
func TabTitle(base string, m *model.Model) string {
	if len(m.Days) == 0 {
		return base
	}
	first, last := m.Days[0], m.Days[len(m.Days)-1]
	return fmt.Sprintf("%s %s - %s", base, dayLabel(first), dayLabel(last))
}

func dayLabel(d *model.Day) string {
	if d.HasDate() {
		return d.Date.Format(dayLabelLayout)
	}
	return d.ID
}

// RosterRows lays the schedule out with one row per day and one column per shift.
// Cells list the workers on that slot; understaffed slots are marked with the shortfall.
func RosterRows(m *model.Model, metrics *schedule.Metrics, names map[string]string) [][]interface{} {
	header := []interface{}{"Day"}
	for _, shift := range m.Shifts {
		header = append(header, shift.Name)
	}

	rows := [][]interface{}{header}
	for _, day := range m.Days {
		row := []interface{}{dayLabel(day)}
		for _, shift := range m.Shifts {
			row = append(row, rosterCell(metrics.Slots[day.Index*m.NumShifts()+shift.Index], names))
		}
		rows = append(rows, row)
	}
	return rows
}

func rosterCell(slot schedule.SlotMetrics, names map[string]string) string {
	workers := make([]string, 0, len(slot.Roster))
	for _, id := range slot.Roster {
		workers = append(workers, names[id])
	}
	cell := strings.Join(workers, ", ")
	if slot.Headcount < slot.Required {
		cell += fmt.Sprintf(" [short %d]", slot.Required-slot.Headcount)
	}
	return strings.TrimSpace(cell)
}

// HoursRows lists each worker's shifts, hours, cost and preference score, followed by totals
func HoursRows(m *model.Model, metrics *schedule.Metrics, names map[string]string) [][]interface{} {
	rows := [][]interface{}{
		{"Worker ID", "Name", "Role", "Shifts", "Hours", "Cost", "Preference"},
	}

	totalShifts := 0
	for i, wm := range metrics.Workers {
		w := m.Workers[i]
		rows = append(rows, []interface{}{
			wm.WorkerID,
			names[wm.WorkerID],
			w.Role,
			wm.Shifts,
			round2(wm.Hours),
			round2(wm.Cost),
			round2(wm.PreferenceScore),
		})
		totalShifts += wm.Shifts
	}

	rows = append(rows, []interface{}{
		"Total", "", "",
		totalShifts,
		round2(metrics.TotalHours()),
		round2(metrics.TotalCost),
		round2(metrics.PreferenceScore),
	})
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
