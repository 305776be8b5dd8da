// =============================================================================
// Budget Workbook Extractor - Configuration Module
// =============================================================================
//
// This module loads and validates the application configuration. One YAML
// file covers the whole pipeline: directory layout, logging, processing
// limits, the optional SQLite sink, and the per-source-kind settings
// (file-matching patterns, tolerance overrides).
//
// Every option has a working default, so the binary runs without a config
// file at all.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/armbudget/extractor/internal/types"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the global application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for source workbooks (.xlsx).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where extracted record tables are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ReportDir is the directory where validation reports are written.
	// Default: "./reports"
	ReportDir string `yaml:"report_dir"`

	// ArchiveDir is the directory where processed workbooks are moved.
	// Files are only moved after successful processing. Empty disables
	// archiving.
	// Default: "" (disabled)
	ArchiveDir string `yaml:"archive_dir"`

	// =========================================================================
	// DATABASE SETTINGS
	// =========================================================================

	// DatabasePath is the SQLite database the extractions accumulate into.
	// Empty disables the database sink.
	// Default: "" (disabled)
	DatabasePath string `yaml:"database_path"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls verbosity: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of workbooks processed in
	// parallel. Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// Strict makes validation warnings count as failures.
	// Default: false
	Strict bool `yaml:"strict"`

	// =========================================================================
	// SOURCE KIND SETTINGS
	// =========================================================================

	// Sources holds the per-kind settings, keyed by source kind name
	// ("budget_law", "spending_year", "spending_quarter", "mtef_plan").
	Sources map[string]SourceConfig `yaml:"sources"`
}

// SourceConfig holds the settings of one source kind.
type SourceConfig struct {
	// Patterns are glob patterns (matched against the base file name) that
	// assign an input workbook to this kind.
	Patterns []string `yaml:"patterns"`

	// Tolerance overrides the kind's default absolute tolerance for the
	// cross-level total checks. Zero keeps the default.
	Tolerance float64 `yaml:"tolerance"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from a YAML file, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration used when no config file is
// given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = "./reports"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]SourceConfig)
	}
	for kind, patterns := range defaultPatterns {
		sc := cfg.Sources[kind]
		if len(sc.Patterns) == 0 {
			sc.Patterns = patterns
		}
		cfg.Sources[kind] = sc
	}
}

// defaultPatterns match the conventional file naming of the published
// workbooks.
var defaultPatterns = map[string][]string{
	string(types.BudgetLaw):       {"*budget_law*.xlsx", "*law*.xlsx"},
	string(types.SpendingYear):    {"*spending_year*.xlsx", "*annual*.xlsx"},
	string(types.SpendingQuarter): {"*spending_q*.xlsx", "*quarter*.xlsx"},
	string(types.MTEFPlan):        {"*mtef*.xlsx", "*plan*.xlsx"},
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if cfg.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", cfg.MaxConcurrency)
	}

	for kind := range cfg.Sources {
		if _, err := types.ParseSourceKind(kind); err != nil {
			return fmt.Errorf("sources: %w", err)
		}
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// Tolerances returns the per-kind tolerance overrides configured under
// sources. Kinds without an override are absent from the map.
func (cfg *Config) Tolerances() map[types.SourceKind]float64 {
	out := make(map[types.SourceKind]float64)
	for name, sc := range cfg.Sources {
		if sc.Tolerance <= 0 {
			continue
		}
		kind, err := types.ParseSourceKind(name)
		if err != nil {
			continue
		}
		out[kind] = sc.Tolerance
	}
	return out
}

// PatternsFor returns the file-matching patterns of one kind.
func (cfg *Config) PatternsFor(kind types.SourceKind) []string {
	return cfg.Sources[string(kind)].Patterns
}
