// Package config loads the settings of a tabprep run.
//
// Settings are resolved in this order, later sources winning:
// built-in defaults, the YAML file, then TABPREP_* environment variables
// (a .env file next to the YAML file or in the working directory is loaded
// first and never overrides variables that are already set).
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// EnvPrefix is the prefix of environment overrides, e.g. TABPREP_INPUT_PATH.
const EnvPrefix = "TABPREP"

// Config is the full configuration of a fit or transform run.
type Config struct {
	Input             InputConfig               `yaml:"input" split_words:"true"`
	Output            OutputConfig              `yaml:"output" split_words:"true"`
	Target            string                    `yaml:"target" split_words:"true"`
	Cleaning          CleaningConfig            `yaml:"cleaning" split_words:"true"`
	Features          preprocessing.FeatureSpec `yaml:"features" split_words:"true"`
	ParallelThreshold int                       `yaml:"parallel_threshold" split_words:"true" validate:"gte=0"`
	LogLevel          string                    `yaml:"log_level" split_words:"true" validate:"omitempty,oneof=debug info warn warning error"`
}

// InputConfig describes where the raw dataset comes from.
type InputConfig struct {
	Path   string `yaml:"path" split_words:"true" validate:"required"`
	Format string `yaml:"format" split_words:"true" validate:"omitempty,oneof=csv xlsx sqlite"`
	Sheet  string `yaml:"sheet" split_words:"true"`
	Query  string `yaml:"query" split_words:"true" validate:"required_if=Format sqlite"`
	// MissingValues are the cell texts read as missing; nil means dataset.DefaultMissingValues.
	MissingValues []string `yaml:"missing_values" split_words:"true"`
}

// OutputConfig describes where results are written.
type OutputConfig struct {
	Dir       string `yaml:"dir" split_words:"true" validate:"required"`
	DataFile  string `yaml:"data_file" split_words:"true" validate:"required"`
	StateFile string `yaml:"state_file" split_words:"true" validate:"required"`
	// Registry is an optional bbolt file that also receives every fitted state.
	Registry string `yaml:"registry" split_words:"true"`
	Name     string `yaml:"name" split_words:"true" validate:"required_with=Registry"`
	// Report is a directory (relative to Dir) for histograms; empty disables the report.
	Report     string `yaml:"report" split_words:"true"`
	ReportBins int    `yaml:"report_bins" split_words:"true" validate:"gte=0"`
}

// CleaningConfig lists the cleaning steps applied before fitting.
type CleaningConfig struct {
	DropColumns    []string `yaml:"drop_columns" split_words:"true"`
	DropDuplicates bool     `yaml:"drop_duplicates" split_words:"true"`
	DropMissing    bool     `yaml:"drop_missing" split_words:"true"`
	FillMedian     []string `yaml:"fill_median" split_words:"true"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Output: OutputConfig{
			Dir:        "out",
			DataFile:   "transformed.csv",
			StateFile:  "fitted_state.json",
			ReportBins: 20,
		},
		Features:          preprocessing.FeatureSpec{OnUnlisted: preprocessing.UnlistedDrop},
		ParallelThreshold: 8,
		LogLevel:          "info",
	}
}

// Load reads the YAML file at path (optional when empty), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config from env")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	seen := make(map[string]bool)
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return errors.Wrapf(err, "failed to load %s", abs)
		}
	}
	return nil
}

// normalize fills values derived from other fields.
func (c *Config) normalize() {
	if c.Input.Format == "" {
		c.Input.Format = FormatFromPath(c.Input.Path)
	}
	c.Input.Format = strings.ToLower(c.Input.Format)
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.Features.OnUnlisted == "" {
		c.Features.OnUnlisted = preprocessing.UnlistedDrop
	}
}

// FormatFromPath infers the input format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return "csv"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the feature spec.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(strings.TrimPrefix(fe.Namespace(), "Config."), "failed on '"+fe.Tag()+"'", fe.Value())
		}
		return errors.Wrap(err, "config validation failed")
	}
	if _, err := preprocessing.ParseUnlistedPolicy(string(c.Features.OnUnlisted)); err != nil {
		return err
	}
	if c.Features.OnUnlisted != preprocessing.UnlistedPassthrough &&
		len(c.Features.Numeric)+len(c.Features.Categorical)+len(c.Features.Passthrough) == 0 {
		return errors.NewValidationError("features", "no column has a role", c.Features)
	}
	return nil
}

// ReadOptions returns the dataset reader options of the input.
func (in InputConfig) ReadOptions() dataset.ReadOptions {
	return dataset.ReadOptions{MissingValues: in.MissingValues}
}

// DataPath is the output CSV path.
func (c *Config) DataPath() string { return filepath.Join(c.Output.Dir, c.Output.DataFile) }

// StatePath is the fitted state path.
func (c *Config) StatePath() string { return filepath.Join(c.Output.Dir, c.Output.StateFile) }

// ReportDir is the histogram directory, or "" when the report is disabled.
func (c *Config) ReportDir() string {
	if c.Output.Report == "" {
		return ""
	}
	return filepath.Join(c.Output.Dir, c.Output.Report)
}
