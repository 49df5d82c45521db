package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekInput() Input {
	return Input{
		Horizon: HorizonInput{DayIDs: []string{"Mon", "Tue", "Wed"}},
		Shifts: []ShiftInput{
			{Name: "Morning", Start: "06:00", End: "14:00"},
			{Name: "Night", Start: "22:00", End: "06:00", Category: "Late"},
		},
		Workers: []WorkerInput{
			{ID: "EMP_001", Wage: 15, MinHours: 0, MaxHours: 40},
			{
				ID:       "EMP_002",
				Role:     RoleManager,
				Wage:     22.5,
				MaxHours: 24,
				Availability: map[string]string{
					"Mon": "06:00-14:00",
					"Tue": "off",
					"Wed": "all",
				},
				Skills: []string{"first_aid"},
			},
		},
		Requirements: []RequirementInput{
			{Shift: "Morning", MinHeadcount: 1},
			{Day: "Mon", Shift: "Morning", MinHeadcount: 2, RoleMinimums: map[string]int{RoleManager: 1}},
		},
	}
}

func TestNew_ResolvesModel(t *testing.T) {
	m, err := New(weekInput())
	require.NoError(t, err)

	assert.Equal(t, 2, m.NumWorkers())
	assert.Equal(t, 3, m.NumDays())
	assert.Equal(t, 2, m.NumShifts())

	// Defaults
	assert.Equal(t, "EMP_001", m.Workers[0].Name)
	assert.Equal(t, RoleStaff, m.Workers[0].Role)
	assert.Equal(t, DefaultMaxConsecutiveDays, m.Policy.MaxConsecutiveDays)
	assert.True(t, m.Policy.ForbidOverlaps)

	// Night shift runs past midnight
	night := m.Shifts[1]
	assert.Equal(t, 22*60, night.Start)
	assert.Equal(t, 30*60, night.End)
	assert.Equal(t, 8*60, night.Duration())
	assert.Equal(t, "Late", night.Category)
	assert.Equal(t, "Morning", m.Shifts[0].Category)
}

func TestNew_MergesRequirementsByMaximum(t *testing.T) {
	m, err := New(weekInput())
	require.NoError(t, err)

	require.Len(t, m.Requirements, 3)

	mon := m.Requirement(0, 0)
	require.NotNil(t, mon)
	assert.Equal(t, 2, mon.MinHeadcount)
	assert.Equal(t, 1, mon.RoleMinimums[RoleManager])

	tue := m.Requirement(1, 0)
	require.NotNil(t, tue)
	assert.Equal(t, 1, tue.MinHeadcount)
	assert.Empty(t, tue.RoleMinimums)

	assert.Nil(t, m.Requirement(0, 1))
}

func TestNew_ResolvesAvailability(t *testing.T) {
	m, err := New(weekInput())
	require.NoError(t, err)

	morning := m.Shifts[0]
	night := m.Shifts[1]

	// No availability map means available all day, including overnight
	open := m.Workers[0]
	for d := range m.Days {
		assert.True(t, open.IsAvailable(d, morning))
		assert.True(t, open.IsAvailable(d, night))
	}

	restricted := m.Workers[1]
	assert.True(t, restricted.IsAvailable(0, morning))
	assert.False(t, restricted.IsAvailable(0, night))
	assert.False(t, restricted.IsAvailable(1, morning))
	assert.True(t, restricted.IsAvailable(2, night))
}

func TestNew_UnavailableDays(t *testing.T) {
	in := weekInput()
	in.Workers[0].UnavailableDays = []string{"Wed"}

	m, err := New(in)
	require.NoError(t, err)

	assert.True(t, m.Workers[0].IsAvailable(1, m.Shifts[0]))
	assert.False(t, m.Workers[0].IsAvailable(2, m.Shifts[0]))
}

func TestNew_RequiredSkillsShortcut(t *testing.T) {
	in := weekInput()
	in.Requirements = append(in.Requirements, RequirementInput{
		Day:            "Tue",
		Shift:          "Night",
		RequiredSkills: []string{"first_aid"},
	})

	m, err := New(in)
	require.NoError(t, err)

	req := m.Requirement(1, 1)
	require.NotNil(t, req)
	assert.Equal(t, 1, req.SkillMinimums["first_aid"])
	assert.Equal(t, 0, req.MinHeadcount)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		field  string
	}{
		{
			name:   "unknown shift in requirement",
			mutate: func(in *Input) { in.Requirements[0].Shift = "Evening" },
			field:  "requirements[0].shift",
		},
		{
			name:   "unknown day in requirement",
			mutate: func(in *Input) { in.Requirements[1].Day = "Sun" },
			field:  "requirements[1].day",
		},
		{
			name:   "unordered availability interval",
			mutate: func(in *Input) { in.Workers[1].Availability["Mon"] = "14:00-06:00" },
			field:  "workers[1].availability.Mon",
		},
		{
			name:   "unparsable availability interval",
			mutate: func(in *Input) { in.Workers[1].Availability["Mon"] = "morning" },
			field:  "workers[1].availability.Mon",
		},
		{
			name:   "unknown availability day",
			mutate: func(in *Input) { in.Workers[1].Availability["Sun"] = "all" },
			field:  "workers[1].availability.Sun",
		},
		{
			name:   "duplicate worker",
			mutate: func(in *Input) { in.Workers[1].ID = "EMP_001" },
			field:  "workers[1].id",
		},
		{
			name:   "duplicate shift",
			mutate: func(in *Input) { in.Shifts[1].Name = "Morning" },
			field:  "shifts[1].name",
		},
		{
			name:   "zero length shift",
			mutate: func(in *Input) { in.Shifts[0].End = "06:00" },
			field:  "shifts[0]",
		},
		{
			name:   "bad clock",
			mutate: func(in *Input) { in.Shifts[0].Start = "25:99" },
			field:  "shifts[0].start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := weekInput()
			tt.mutate(&in)

			_, err := New(in)
			require.Error(t, err)

			var me *ModelError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.field, me.Field)
		})
	}
}

func TestNew_StructValidation(t *testing.T) {
	in := weekInput()
	in.Workers[0].MinHours = 50

	_, err := New(in)
	require.Error(t, err)
	assert.True(t, IsModelError(err))
	assert.Contains(t, err.Error(), "MaxHours")
}

func TestNew_NoWorkers(t *testing.T) {
	in := weekInput()
	in.Workers = nil

	_, err := New(in)
	require.Error(t, err)
	assert.True(t, IsModelError(err))
}

func TestNew_DatedHorizon(t *testing.T) {
	in := weekInput()
	in.Horizon = HorizonInput{Start: "2025-06-02", Days: 7}
	in.Workers[1].Availability = map[string]string{"Sat": "off", "2025-06-08": "off"}
	in.Requirements = []RequirementInput{{Shift: "Morning", MinHeadcount: 1}}

	m, err := New(in)
	require.NoError(t, err)

	require.Len(t, m.Days, 7)
	assert.Equal(t, "2025-06-02", m.Days[0].ID)
	assert.Equal(t, "Mon", m.Days[0].Name)
	assert.True(t, m.Days[0].HasDate())

	d, ok := m.DayIndex("Sat")
	require.True(t, ok)
	assert.Equal(t, 5, d)

	assert.False(t, m.Workers[1].IsAvailable(5, m.Shifts[0]))
	assert.False(t, m.Workers[1].IsAvailable(6, m.Shifts[0]))
	assert.True(t, m.Workers[1].IsAvailable(4, m.Shifts[0]))
}

func TestNew_AvailabilityAliasesSameDay(t *testing.T) {
	in := weekInput()
	in.Horizon = HorizonInput{Start: "2025-06-02", Days: 7}
	in.Requirements = []RequirementInput{{Shift: "Morning", MinHeadcount: 1}}
	// 2025-06-02 is a Monday
	in.Workers[1].Availability = map[string]string{"Mon": "09:00-17:00", "2025-06-02": "off"}

	for i := 0; i < 5; i++ {
		_, err := New(in)
		require.Error(t, err)

		var me *ModelError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, "workers[1].availability.Mon", me.Field)
		assert.Contains(t, me.Reason, `already given as "2025-06-02"`)
	}
}

func TestNew_RequirementOverrides(t *testing.T) {
	in := weekInput()
	in.Horizon = HorizonInput{Start: "2025-06-02", Days: 7}
	in.Workers[1].Availability = nil
	in.Requirements = []RequirementInput{{Shift: "Morning", MinHeadcount: 1}}

	three := 3
	weekend := RequirementOverride{
		AppliesTo: func(date time.Time) bool {
			return date.Weekday() == time.Saturday || date.Weekday() == time.Sunday
		},
		Shift:        "Morning",
		MinHeadcount: &three,
		RoleMinimums: map[string]int{RoleManager: 1},
	}

	m, err := New(in, weekend)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Requirement(0, 0).MinHeadcount)
	assert.Equal(t, 3, m.Requirement(5, 0).MinHeadcount)
	assert.Equal(t, 3, m.Requirement(6, 0).MinHeadcount)
	assert.Equal(t, 1, m.Requirement(6, 0).RoleMinimums[RoleManager])
	assert.Nil(t, m.Requirement(6, 1))
}

func TestNew_OverrideNeedsDatedHorizon(t *testing.T) {
	one := 1
	_, err := New(weekInput(), RequirementOverride{
		AppliesTo:    func(time.Time) bool { return true },
		MinHeadcount: &one,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dated horizon")
}

func TestSlotWindow(t *testing.T) {
	m, err := New(weekInput())
	require.NoError(t, err)

	assert.Equal(t, Interval{Start: 1440 + 360, End: 1440 + 840}, m.SlotWindow(1, 0))
	assert.Equal(t, Interval{Start: 2880 + 1320, End: 2880 + 1800}, m.SlotWindow(2, 1))
}

func TestLoad_YAML(t *testing.T) {
	content := `
horizon:
  dayIds: [Mon, Tue]
shifts:
  - name: Morning
    start: "06:00"
    end: "14:00"
workers:
  - id: EMP_001
    wage: 10
    maxHours: 16
    preferredShifts: [Morning]
requirements:
  - shift: Morning
    minHeadcount: 1
policy:
  maxConsecutiveDays: 2
  minRestMinutes: 720
`
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, m.NumDays())
	assert.True(t, m.Workers[0].Prefers("Morning"))
	assert.Equal(t, 2, m.Policy.MaxConsecutiveDays)
	assert.Equal(t, 720, m.Policy.MinRestMinutes)
	assert.Equal(t, 16*60, m.Workers[0].MaxMinutes())
}

func TestLoad_JSON(t *testing.T) {
	content := `{
  "horizon": {"dayIds": ["Mon"]},
  "shifts": [{"name": "Morning", "start": "06:00", "end": "14:00"}],
  "workers": [{"id": "EMP_001", "wage": 12.5, "maxHours": 8}],
  "policy": {"forbidOverlaps": false}
}`
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1250), m.Workers[0].WageCents())
	assert.False(t, m.Policy.ForbidOverlaps)
	assert.Empty(t, m.Requirements)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsModelError(err))
}

func TestParseInterval(t *testing.T) {
	i, err := ParseInterval("09:30-17:00")
	require.NoError(t, err)
	assert.Equal(t, 570, i.Start)
	assert.Equal(t, 1020, i.End)
	assert.Equal(t, "09:30-17:00", i.String())

	_, err = ParseInterval("17:00-09:30")
	assert.ErrorContains(t, err, "unordered")

	_, err = ParseInterval("09:30")
	assert.Error(t, err)

	i, err = ParseInterval("22:00-30:00")
	require.NoError(t, err)
	assert.Equal(t, 480, i.Duration())
}

func TestInterval_GapAndOverlap(t *testing.T) {
	a := Interval{Start: 360, End: 840}
	b := Interval{Start: 840, End: 1320}
	c := Interval{Start: 600, End: 900}

	assert.False(t, a.Overlaps(b))
	assert.Equal(t, 0, a.Gap(b))
	assert.Equal(t, 0, b.Gap(a))
	assert.True(t, a.Overlaps(c))
	assert.Negative(t, a.Gap(c))
	assert.True(t, FullDay.Contains(b.Shift(MinutesPerDay/2)))
}
