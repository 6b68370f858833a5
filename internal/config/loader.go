package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LOADTIME_THRESHOLD.
const EnvPrefix = "LOADTIME"

// settingKeys are the keys read from config files and the environment.
var settingKeys = []string{"verbose", "threshold", "max", "sorted", "remove", "width", "no_color", "format", "quiet", "budgets"}

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct {
	// Embedded ignores flags it does not know and never prints help, so the
	// arguments of a host program can be passed through unchanged.
	Embedded bool
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	flagSet := cmd.Flags()
	if l.Embedded {
		flagSet.ParseErrorsWhitelist.UnknownFlags = true
		flagSet.BoolP("help", "h", false, "")
		_ = flagSet.MarkHidden("help")
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}
	return Resolve(flagSet)
}

// Resolve builds a Config from an already parsed flag set, layering the
// config file named by --config and LOADTIME_* variables underneath the
// flags that were set explicitly.
func Resolve(flagSet *pflag.FlagSet) (*Config, error) {
	configPath := ""
	if f := flagSet.Lookup("config"); f != nil {
		configPath = f.Value.String()
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfgViper.AutomaticEnv()
	for _, key := range settingKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := Default()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyConfigSettings copies values from merged file and environment settings.
func applyConfigSettings(cfg *Config, raw map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	s := settings(raw)

	return errors.Join(
		apply(s, toBool, func(v bool) { cfg.Verbose = v }, "verbose"),
		apply(s, toFloat, func(v float64) {
			cfg.Threshold = v
			cfg.thresholdSet = true
		}, "threshold"),
		apply(s, toInt, func(v int) { cfg.MaxRows = v }, "max", "maxRows", "max_rows"),
		apply(s, toBool, func(v bool) { cfg.Sorted = v }, "sorted"),
		apply(s, toString, func(v string) { cfg.Remove = v }, "remove"),
		apply(s, toInt, func(v int) { cfg.Width = v }, "width"),
		apply(s, toBool, func(v bool) { cfg.NoColor = v }, "no_color", "no-color", "noColor"),
		apply(s, toString, func(v string) {
			cfg.Format = Format(strings.ToLower(strings.TrimSpace(v)))
		}, "format"),
		apply(s, toBool, func(v bool) { cfg.Quiet = v }, "quiet"),
		apply(s, toStrings, func(v []string) { cfg.Budgets = v }, "budgets", "budget"),
	)
}
