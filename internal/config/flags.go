package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all report flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loadtime",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all report flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Filtering
	flags.BoolP("verbose", "v", false, "Show every load call (threshold 0)")
	flags.Float64P("threshold", "t", DefaultThreshold, "Hide load calls below this share of total time (0.05 = 5%)")
	flags.IntP("max", "m", 0, "Maximum number of rows to show (0 means unlimited)")
	flags.BoolP("sorted", "s", false, "Sort rows by duration, slowest first")
	flags.StringP("remove", "r", "", "Path prefix removed from displayed file names")

	// Output
	flags.Int("width", 0, "Report width in columns (0 detects the terminal)")
	flags.Bool("no-color", false, "Disable ANSI styling")
	flags.String("format", string(FormatText), "Report format: text, json, yaml or html")
	flags.Bool("quiet", false, "Omit the flag summary under the report")
	flags.StringSlice("budget", nil, "Fail when a load-time budget is exceeded (repeatable, e.g. 'load_duration:p99 < 200')")
	flags.String("config", "", "Path to configuration file (YAML, JSON or TOML)")
}

// Usage returns the short flag summary printed under the text report.
func Usage() string {
	fs := pflag.NewFlagSet("loadtime", pflag.ContinueOnError)
	configureFlags(fs)
	return strings.TrimRight(fs.FlagUsages(), "\n")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetFloat64("threshold")
		if err != nil {
			return err
		}
		cfg.Threshold = val
		cfg.thresholdSet = true
	}
	if fs.Changed("max") {
		val, err := fs.GetInt("max")
		if err != nil {
			return err
		}
		cfg.MaxRows = val
	}
	if fs.Changed("sorted") {
		val, err := fs.GetBool("sorted")
		if err != nil {
			return err
		}
		cfg.Sorted = val
	}
	if fs.Changed("remove") {
		val, err := fs.GetString("remove")
		if err != nil {
			return err
		}
		cfg.Remove = val
	}
	if fs.Changed("width") {
		val, err := fs.GetInt("width")
		if err != nil {
			return err
		}
		cfg.Width = val
	}
	if fs.Changed("no-color") {
		val, err := fs.GetBool("no-color")
		if err != nil {
			return err
		}
		cfg.NoColor = val
	}
	if fs.Changed("format") {
		val, err := fs.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = Format(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("quiet") {
		val, err := fs.GetBool("quiet")
		if err != nil {
			return err
		}
		cfg.Quiet = val
	}
	if fs.Changed("budget") {
		val, err := fs.GetStringSlice("budget")
		if err != nil {
			return err
		}
		cfg.Budgets = val
	}
	return nil
}
