// Package main provides the loadtime CLI, which replays a manifest of
// synthetic units under instrumentation and prints the load-time report.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/loadtime"
	"github.com/torosent/loadtime/internal/config"
	"github.com/torosent/loadtime/internal/loader"
	"github.com/torosent/loadtime/internal/manifest"
)

// Version information set via ldflags at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd := newRootCmd(out, time.Sleep)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(out io.Writer, sleep func(time.Duration)) *cobra.Command {
	root := &cobra.Command{
		Use:           "loadtime",
		Short:         "Report where a program spends its dependency load time",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.AddCommand(newRunCmd(sleep))
	return root
}

func newRunCmd(sleep func(time.Duration)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <manifest.yaml>",
		Short: "Load the units of a manifest and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			return runManifest(cmd.OutOrStdout(), args[0], m, *cfg, sleep)
		},
	}
	config.RegisterFlags(cmd)
	return cmd
}

// runManifest loads every entry of m under instrumentation and prints the
// report. Load failures are reported and then returned together.
func runManifest(out io.Writer, path string, m *manifest.Manifest, cfg config.Config, sleep func(time.Duration)) error {
	reg := loader.NewRegistry()
	seam := loader.NewSeam(reg.Load)
	reg.Bind(seam)
	if err := m.Compile(reg, manifest.WithSleep(sleep)); err != nil {
		return err
	}

	prof, err := loadtime.Start(nil,
		loadtime.WithSeam(seam),
		loadtime.WithOutput(out),
		loadtime.WithConfig(cfg),
	)
	if err != nil {
		return err
	}

	prog := &loader.Module{Name: "main", Filename: path, Loaded: true}
	var loadErrs []error
	for _, entry := range m.Entries() {
		if _, err := seam.Load(entry, prog); err != nil {
			loadErrs = append(loadErrs, fmt.Errorf("load %s: %w", entry, err))
		}
	}

	if err := prof.Stop(); err != nil {
		return err
	}
	return errors.Join(loadErrs...)
}
