// Package loadtime measures how long a program spends loading its
// dependencies and prints a report of the slowest loads when it ends.
//
// Units are registered with Register and loaded with Require. Start
// instruments the default seam so every Require, including nested ones made
// from init functions, is timed:
//
//	func main() {
//		prof, err := loadtime.Start(os.Args[1:])
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer prof.Stop()
//		...
//	}
package loadtime

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/loadtime/internal/config"
	"github.com/torosent/loadtime/internal/debug"
	"github.com/torosent/loadtime/internal/hook"
	"github.com/torosent/loadtime/internal/loader"
	"github.com/torosent/loadtime/internal/metrics"
	"github.com/torosent/loadtime/internal/reporter"
	"github.com/torosent/loadtime/internal/tracing"
)

type (
	// Definition describes a loadable unit.
	Definition = loader.Definition
	// InitContext is passed to a unit's init function.
	InitContext = loader.InitContext
	// Module is a loaded unit.
	Module = loader.Module
	// Seam holds the load function that instrumentation wraps.
	Seam = loader.Seam
	// Registry resolves and caches units.
	Registry = loader.Registry
	// Timing is one recorded load.
	Timing = metrics.Timing
	// Config holds report options.
	Config = config.Config
)

var (
	defaultRegistry = loader.NewRegistry()
	defaultSeam     = loader.NewSeam(defaultRegistry.Load)
	mainModule      = &loader.Module{Name: "main", Filename: executable(), Loaded: true}
)

func init() {
	defaultRegistry.Bind(defaultSeam)
}

func executable() string {
	if path, err := os.Executable(); err == nil {
		return path
	}
	return "main"
}

// Register adds a unit to the default registry.
func Register(def Definition) error {
	return defaultRegistry.Register(def)
}

// Require loads name through the default seam on behalf of the main program.
func Require(name string) (any, error) {
	return defaultSeam.Load(name, mainModule)
}

// DefaultSeam returns the seam used by Register and Require.
func DefaultSeam() *Seam {
	return defaultSeam
}

// Option configures Start.
type Option func(*options)

type options struct {
	seam   *loader.Seam
	out    io.Writer
	tp     trace.TracerProvider
	cfg    *config.Config
	report []reporter.Option
}

// WithSeam instruments seam instead of the default one.
func WithSeam(seam *Seam) Option {
	return func(o *options) {
		if seam != nil {
			o.seam = seam
		}
	}
}

// WithOutput writes the report to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithTracerProvider also records every load as a span on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithConfig uses cfg instead of parsing the arguments passed to Start.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithProjectRoot sets the directory shown as "./" in the report.
func WithProjectRoot(dir string) Option {
	return func(o *options) { o.report = append(o.report, reporter.WithProjectRoot(dir)) }
}

// Profile is an active instrumentation session.
type Profile struct {
	cfg      config.Config
	session  *hook.Session
	recorder *metrics.Recorder
	reporter *reporter.Reporter
}

// Start reads report options from args, ignoring flags it does not know, and
// begins timing loads. Call Stop to print the report.
func Start(args []string, opts ...Option) (*Profile, error) {
	o := options{seam: defaultSeam, out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		if cfg, err = (config.Loader{Embedded: true}).Load(args); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	session := hook.NewSession(o.seam)
	listeners := []hook.Listener{recorder.Listener()}
	if provider := tracing.New(o.tp); provider.Enabled() {
		listeners = append(listeners, provider.Listener(context.Background(), session.ID()))
	}
	if debug.Enabled() {
		listeners = append(listeners, logLoad)
	}
	if err := session.Install(hook.Multi(listeners...)); err != nil {
		return nil, err
	}
	debug.Logf("session %s installed (threshold=%g sorted=%t)", session.ID(), cfg.EffectiveThreshold(), cfg.Sorted)

	return &Profile{
		cfg:      *cfg,
		session:  session,
		recorder: recorder,
		reporter: reporter.New(session, recorder, *cfg, o.out, o.report...),
	}, nil
}

func logLoad(ev hook.Event) {
	if ev.Err != nil {
		debug.Logf("load %s (%s) failed after %s: %v", ev.Name, ev.Filename, ev.Duration, ev.Err)
		return
	}
	debug.Logf("load %s (%s) took %s", ev.Name, ev.Filename, ev.Duration)
}

// Stop restores the seam and prints the report. Only the first call reports.
func (p *Profile) Stop() error {
	return p.reporter.Report()
}

// Timings returns the loads recorded so far, in completion order.
func (p *Profile) Timings() []Timing {
	return p.recorder.All()
}

// ID identifies the session in reports and spans.
func (p *Profile) ID() string {
	return p.session.ID()
}

// Config returns the options the profile reports with.
func (p *Profile) Config() Config {
	return p.cfg
}
