package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Input is the raw, serialisable description of a planning run.
// It is turned into an immutable Model by New.
type Input struct {
	Horizon      HorizonInput       `yaml:"horizon" json:"horizon"`
	Shifts       []ShiftInput       `yaml:"shifts" json:"shifts" validate:"required,min=1,dive"`
	Workers      []WorkerInput      `yaml:"workers" json:"workers" validate:"required,min=1,dive"`
	Requirements []RequirementInput `yaml:"requirements" json:"requirements" validate:"dive"`
	Policy       PolicyInput        `yaml:"policy" json:"policy"`
}

// HorizonInput defines the planning days, either as explicit IDs or as a dated range
type HorizonInput struct {
	// Start is the first date of a dated horizon ("2006-01-02")
	Start string `yaml:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`

	// Days is the number of days in a dated horizon
	Days int `yaml:"days" json:"days" validate:"omitempty,min=1"`

	// DayIDs lists the days of an undated horizon in order, e.g. [Mon, Tue, Wed]
	DayIDs []string `yaml:"dayIds" json:"dayIds" validate:"omitempty,dive,required"`
}

// ShiftInput describes one shift type
type ShiftInput struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Start    string `yaml:"start" json:"start" validate:"required"`
	End      string `yaml:"end" json:"end" validate:"required"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// WorkerInput describes one worker
type WorkerInput struct {
	ID       string  `yaml:"id" json:"id" validate:"required"`
	Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
	Role     string  `yaml:"role,omitempty" json:"role,omitempty"`
	Wage     float64 `yaml:"wage" json:"wage" validate:"gte=0"`
	MinHours float64 `yaml:"minHours" json:"minHours" validate:"gte=0"`
	MaxHours float64 `yaml:"maxHours" json:"maxHours" validate:"gte=0,gtefield=MinHours"`

	// Availability maps a day ID or day name to "HH:MM-HH:MM", "off" or "all".
	// When omitted the worker is available all day on every day; when present,
	// days missing from the map are closed.
	Availability map[string]string `yaml:"availability,omitempty" json:"availability,omitempty"`

	// UnavailableDays closes the listed days (IDs or names)
	UnavailableDays []string `yaml:"unavailableDays,omitempty" json:"unavailableDays,omitempty"`

	PreferredShifts    []string `yaml:"preferredShifts,omitempty" json:"preferredShifts,omitempty"`
	Skills             []string `yaml:"skills,omitempty" json:"skills,omitempty"`
	MaxConsecutiveDays int      `yaml:"maxConsecutiveDays,omitempty" json:"maxConsecutiveDays,omitempty" validate:"gte=0"`
}

// RequirementInput describes a coverage floor. An empty Day applies to every day.
type RequirementInput struct {
	Day            string         `yaml:"day,omitempty" json:"day,omitempty"`
	Shift          string         `yaml:"shift" json:"shift" validate:"required"`
	MinHeadcount   int            `yaml:"minHeadcount" json:"minHeadcount" validate:"gte=0"`
	RoleMinimums   map[string]int `yaml:"roleMinimums,omitempty" json:"roleMinimums,omitempty" validate:"dive,gte=0"`
	SkillMinimums  map[string]int `yaml:"skillMinimums,omitempty" json:"skillMinimums,omitempty" validate:"dive,gte=0"`
	RequiredSkills []string       `yaml:"requiredSkills,omitempty" json:"requiredSkills,omitempty"`
}

// PolicyInput holds the labour rules
type PolicyInput struct {
	MaxConsecutiveDays int     `yaml:"maxConsecutiveDays" json:"maxConsecutiveDays" validate:"gte=0"`
	ForbidOverlaps     *bool   `yaml:"forbidOverlaps,omitempty" json:"forbidOverlaps,omitempty"`
	MinRestMinutes     int     `yaml:"minRestMinutes" json:"minRestMinutes" validate:"gte=0"`
	MaxTotalHours      float64 `yaml:"maxTotalHours" json:"maxTotalHours" validate:"gte=0"`
}

var validate = validator.New()

// Load reads a model input file (YAML or JSON, chosen by extension) and builds the Model
func Load(path string, overrides ...RequirementOverride) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	in, err := ParseInput(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	return New(*in, overrides...)
}

// ParseInput decodes raw model input. ext selects the format (".json" or YAML otherwise).
func ParseInput(data []byte, ext string) (*Input, error) {
	var in Input
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, &ModelError{Reason: fmt.Sprintf("failed to parse model JSON: %v", err)}
		}
	default:
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, &ModelError{Reason: fmt.Sprintf("failed to parse model YAML: %v", err)}
		}
	}
	return &in, nil
}

// ValidateInput runs struct-level validation of the raw input
func ValidateInput(in *Input) error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return newModelError(first.Namespace(), "failed on '%s' validation", first.Tag())
		}
		return &ModelError{Reason: fmt.Sprintf("input validation failed: %v", err)}
	}
	return nil
}
