package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultProposalTimeout bounds a proposal source call when the config sets none
	DefaultProposalTimeout = 30 * time.Second

	// DefaultSolverTimeLimit bounds the search when the config sets none
	DefaultSolverTimeLimit = 30 * time.Second

	DefaultServerAddr = ":8080"
	DefaultRosterTab  = "Roster"
	DefaultHoursTab   = "Hours"

	DefaultTelemetryExporter = "none"
	DefaultOTLPEndpoint      = "localhost:4317"
)

// RequirementOverride raises coverage on the dated days matched by a recurrence rule,
// e.g. more staff at weekends
type RequirementOverride struct {
	RRule string `yaml:"rrule" validate:"required"`

	// Shift limits the override to one shift type (empty = every shift)
	Shift string `yaml:"shift,omitempty"`

	MinHeadcount  *int           `yaml:"minHeadcount,omitempty" validate:"omitempty,min=0"`
	RoleMinimums  map[string]int `yaml:"roleMinimums,omitempty" validate:"dive,gte=0"`
	SkillMinimums map[string]int `yaml:"skillMinimums,omitempty" validate:"dive,gte=0"`
}

// ObjectiveConfig selects what the solver optimises
type ObjectiveConfig struct {
	Kind             string  `yaml:"kind,omitempty" validate:"omitempty,oneof=cost preference blend"`
	CostWeight       float64 `yaml:"costWeight,omitempty" validate:"gte=0"`
	PreferenceWeight float64 `yaml:"preferenceWeight,omitempty" validate:"gte=0"`
}

// SolverConfig bounds the fallback search. A zero time limit means DefaultSolverTimeLimit.
type SolverConfig struct {
	TimeLimit     time.Duration `yaml:"timeLimit,omitempty"`
	SolutionLimit int64         `yaml:"solutionLimit,omitempty" validate:"gte=0"`
}

// LLMConfig points the proposal source at an OpenAI-compatible endpoint.
// The API key is read from OPENAI_API_KEY.
type LLMConfig struct {
	BaseURL     string  `yaml:"baseURL,omitempty" validate:"omitempty,url"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float32 `yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"maxTokens,omitempty" validate:"gte=0"`
}

// ProposalConfig configures where candidate schedules come from
type ProposalConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// File is a proposal file used when no LLM is configured
	File string `yaml:"file,omitempty"`

	LLM *LLMConfig `yaml:"llm,omitempty"`
}

// ExportConfig enables the JSON file sink
type ExportConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// DatabaseConfig enables the Postgres sink. DATABASE_URL overrides URL.
type DatabaseConfig struct {
	URL     string `yaml:"url,omitempty"`
	Migrate bool   `yaml:"migrate,omitempty"`
}

// SheetsConfig enables the Google Sheets sink.
// GOOGLE_APPLICATION_CREDENTIALS overrides CredentialsFile.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheetID" validate:"required"`
	RosterTab       string `yaml:"rosterTab,omitempty"`
	HoursTab        string `yaml:"hoursTab,omitempty"`
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// TelemetryConfig selects where traces and metrics are exported.
// OTEL_TRACES_EXPORTER and OTEL_EXPORTER_OTLP_ENDPOINT override the file.
type TelemetryConfig struct {
	// Exporter is "none", "stdout" or "otlp"
	Exporter     string `yaml:"exporter,omitempty" validate:"omitempty,oneof=none stdout otlp"`
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
	OTLPInsecure bool   `yaml:"otlpInsecure,omitempty"`
}

// Config represents the application configuration
type Config struct {
	// Model is the default planning input file (YAML or JSON)
	Model string `yaml:"model,omitempty"`

	Objective            ObjectiveConfig       `yaml:"objective,omitempty"`
	Solver               SolverConfig          `yaml:"solver,omitempty"`
	Proposal             ProposalConfig        `yaml:"proposal,omitempty"`
	RequirementOverrides []RequirementOverride `yaml:"requirementOverrides,omitempty" validate:"dive"`

	Export   *ExportConfig   `yaml:"export,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Sheets   *SheetsConfig   `yaml:"sheets,omitempty"`
	Server   ServerConfig    `yaml:"server,omitempty"`

	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// DatabaseURL returns the Postgres connection string, preferring DATABASE_URL
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if c.Database == nil {
		return ""
	}
	return c.Database.URL
}

// SheetsCredentialsFile returns the service account key path, preferring GOOGLE_APPLICATION_CREDENTIALS
func (c *Config) SheetsCredentialsFile() string {
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		return path
	}
	if c.Sheets == nil {
		return ""
	}
	return c.Sheets.CredentialsFile
}

// TelemetrySettings returns the telemetry config with environment overrides applied
func (c *Config) TelemetrySettings() TelemetryConfig {
	t := c.Telemetry
	if exporter := os.Getenv("OTEL_TRACES_EXPORTER"); exporter != "" {
		t.Exporter = exporter
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		t.OTLPEndpoint = endpoint
	}
	if t.Exporter == "" {
		t.Exporter = DefaultTelemetryExporter
	}
	if t.OTLPEndpoint == "" {
		t.OTLPEndpoint = DefaultOTLPEndpoint
	}
	return t
}

// ErrConfigNotFound is returned by LoadWithEnv when no config file exists
var ErrConfigNotFound = errors.New("config file not found")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from planner_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" will look for "planner_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Validate rrule syntax for each override
	for i, override := range cfg.RequirementOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in requirementOverrides[%d]: %w", i, err)
		}
	}

	if cfg.Proposal.Timeout < 0 {
		return fmt.Errorf("config validation failed: proposal.timeout must not be negative")
	}
	if cfg.Solver.TimeLimit < 0 {
		return fmt.Errorf("config validation failed: solver.timeLimit must not be negative")
	}

	return nil
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Proposal.Timeout == 0 {
		cfg.Proposal.Timeout = DefaultProposalTimeout
	}
	if cfg.Solver.TimeLimit == 0 {
		cfg.Solver.TimeLimit = DefaultSolverTimeLimit
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Objective.Kind == "" {
		cfg.Objective.Kind = "cost"
	}
	if cfg.Objective.Kind == "blend" && cfg.Objective.CostWeight == 0 && cfg.Objective.PreferenceWeight == 0 {
		cfg.Objective.CostWeight = 1
	}
	if cfg.Sheets != nil {
		if cfg.Sheets.RosterTab == "" {
			cfg.Sheets.RosterTab = DefaultRosterTab
		}
		if cfg.Sheets.HoursTab == "" {
			cfg.Sheets.HoursTab = DefaultHoursTab
		}
	}
}

// findConfigFile searches for planner_config.yaml in current directory and home directory
// If env is provided, it adds it as an extension (e.g., "planner_config.test.yaml")
func findConfigFile(env string) (string, error) {
	configFileName := "planner_config.yaml"
	if env != "" {
		configFileName = "planner_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%w: %s not in current directory or home directory", ErrConfigNotFound, configFileName)
}
