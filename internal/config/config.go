// Package config provides configuration loading and parsing for loadtime reports.
package config

import (
	"fmt"
	"strings"

	"github.com/torosent/loadtime/internal/budget"
)

// DefaultThreshold hides load calls under 1% of the total time.
const DefaultThreshold = 0.01

// Format selects how the exit report is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// Config holds report options collected from defaults, a config file,
// environment variables and flags.
type Config struct {
	Verbose    bool     `mapstructure:"verbose"`
	Threshold  float64  `mapstructure:"threshold"`
	MaxRows    int      `mapstructure:"max"`
	Sorted     bool     `mapstructure:"sorted"`
	Remove     string   `mapstructure:"remove"`
	Width      int      `mapstructure:"width"`
	NoColor    bool     `mapstructure:"no_color"`
	Format     Format   `mapstructure:"format"`
	Quiet      bool     `mapstructure:"quiet"`
	Budgets    []string `mapstructure:"budgets"`
	ConfigFile string   `mapstructure:"-"`

	thresholdSet bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Threshold: DefaultThreshold,
		Format:    FormatText,
	}
}

// EffectiveThreshold is the share below which rows are hidden.
// Verbose drops it to zero unless a threshold was given explicitly.
func (c Config) EffectiveThreshold() float64 {
	if c.Verbose && !c.thresholdSet {
		return 0
	}
	return c.Threshold
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Threshold < 0 || c.Threshold > 1 {
		issues = append(issues, fmt.Sprintf("threshold must be between 0 and 1, got %g", c.Threshold))
	}
	if c.MaxRows < 0 {
		issues = append(issues, "max must be non-negative")
	}
	if c.Width < 0 {
		issues = append(issues, "width must be non-negative")
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatYAML, FormatHTML:
	default:
		issues = append(issues, fmt.Sprintf("unsupported format %q (use text, json, yaml or html)", c.Format))
	}

	if _, err := budget.ParseMultiple(c.Budgets); err != nil {
		issues = append(issues, err.Error())
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
