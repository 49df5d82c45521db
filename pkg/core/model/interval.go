package model

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the length of one horizon day
	MinutesPerDay = 24 * 60

	// maxClockMinutes allows intervals to run past midnight into the next day (up to 48:00)
	maxClockMinutes = 2 * MinutesPerDay
)

// Interval is a half-open time window [Start, End) in minutes from the start of a day.
// End may exceed MinutesPerDay for windows that run past midnight.
type Interval struct {
	Start int
	End   int
}

// FullDay is the availability window used when a worker has no explicit restriction.
// It spans into the following day so that overnight shifts fit inside it.
var FullDay = Interval{Start: 0, End: maxClockMinutes}

// ParseClock parses "HH:MM" into minutes after midnight. Hours up to 48 are accepted.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}

	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	total := hours*60 + minutes
	if total > maxClockMinutes {
		return 0, fmt.Errorf("clock time %q is beyond 48:00", s)
	}

	return total, nil
}

// ParseInterval parses "HH:MM-HH:MM". The start must be strictly before the end.
func ParseInterval(s string) (Interval, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("invalid interval %q: expected HH:MM-HH:MM", s)
	}

	start, err := ParseClock(parts[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Interval{}, err
	}

	if start >= end {
		return Interval{}, fmt.Errorf("interval %q is unordered: start must be before end", s)
	}

	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length in minutes
func (i Interval) Duration() int {
	return i.End - i.Start
}

// Contains reports whether o lies entirely inside i
func (i Interval) Contains(o Interval) bool {
	return i.Start <= o.Start && o.End <= i.End
}

// Overlaps reports whether the two intervals share any time
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Gap returns the minutes between the end of the earlier interval and the start of
// the later one. Overlapping intervals have a negative gap.
func (i Interval) Gap(o Interval) int {
	if i.Start <= o.Start {
		return o.Start - i.End
	}
	return i.Start - o.End
}

// Shift moves the interval by the given number of minutes
func (i Interval) Shift(minutes int) Interval {
	return Interval{Start: i.Start + minutes, End: i.End + minutes}
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", formatClock(i.Start), formatClock(i.End))
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
