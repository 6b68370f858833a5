// Package reporter prints the load-time report once the instrumented run ends.
package reporter

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/torosent/loadtime/internal/budget"
	"github.com/torosent/loadtime/internal/config"
	"github.com/torosent/loadtime/internal/debug"
	"github.com/torosent/loadtime/internal/hook"
	"github.com/torosent/loadtime/internal/metrics"
	"github.com/torosent/loadtime/internal/output"
)

// Reporter writes the report for one session exactly once.
type Reporter struct {
	once     sync.Once
	err      error
	session  *hook.Session
	recorder *metrics.Recorder
	cfg      config.Config
	w        io.Writer

	projectRoot string
	homeDir     string
	color       *bool
	getenv      func(string) string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithProjectRoot sets the directory shown as "./" in file names.
func WithProjectRoot(dir string) Option {
	return func(r *Reporter) { r.projectRoot = dir }
}

// WithHomeDir sets the directory shown as "~/" in file names.
func WithHomeDir(dir string) Option {
	return func(r *Reporter) { r.homeDir = dir }
}

// WithColor forces styling on or off regardless of the output's terminal state.
func WithColor(on bool) Option {
	return func(r *Reporter) { r.color = &on }
}

// New creates a Reporter for session writing to w. The working and home
// directories of the process are used for name shortening unless overridden.
func New(session *hook.Session, recorder *metrics.Recorder, cfg config.Config, w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{
		session:  session,
		recorder: recorder,
		cfg:      cfg,
		w:        w,
		getenv:   os.Getenv,
	}
	if wd, err := os.Getwd(); err == nil {
		r.projectRoot = wd
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.homeDir = home
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report restores the session and writes the report. Only the first call
// does anything; later calls return the first call's error.
func (r *Reporter) Report() error {
	r.once.Do(func() {
		r.err = r.report()
	})
	return r.err
}

func (r *Reporter) report() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("loadtime: report failed: %v", p)
			fmt.Fprintln(r.w, err.Error())
		}
	}()

	started, installed := r.session.InstalledAt()
	end := r.session.Now()
	r.session.Restore()

	var total time.Duration
	if installed {
		total = end.Sub(started)
	}

	timings := r.recorder.All()
	stats := r.recorder.Stats()
	opts := output.Options{
		Threshold:    r.cfg.EffectiveThreshold(),
		MaxRows:      r.cfg.MaxRows,
		Sorted:       r.cfg.Sorted,
		RemovePrefix: r.cfg.Remove,
		Width:        r.width(),
		ProjectRoot:  r.projectRoot,
		HomeDir:      r.homeDir,
		Styled:       r.styled(),
	}
	table := output.Build(timings, total, opts)
	debug.Logf("session %s: %d of %d load calls over %s", r.session.ID(), len(table.Rows), len(timings), total)

	budgets, err := budget.ParseMultiple(r.cfg.Budgets)
	if err != nil {
		return err
	}
	results := budget.Evaluate(budgets, stats)

	if err := r.write(table, started, stats, results); err != nil {
		return err
	}
	return budget.Check(results)
}

func (r *Reporter) write(table output.Table, started time.Time, stats metrics.Stats, results []budget.Result) error {
	if r.cfg.Format != config.FormatText && r.cfg.Format != "" {
		report := output.NewReport(table, r.session.ID(), started, stats)
		report.Budgets = results
		switch r.cfg.Format {
		case config.FormatJSON:
			return output.WriteJSON(r.w, report)
		case config.FormatYAML:
			return output.WriteYAML(r.w, report)
		case config.FormatHTML:
			return output.GenerateHTMLReport(r.w, report)
		default:
			return fmt.Errorf("unsupported format %q", r.cfg.Format)
		}
	}

	header := output.Header{StartedAt: started, Threshold: r.cfg.EffectiveThreshold(), Sorted: r.cfg.Sorted}
	output.PrintReport(r.w, header, table, stats)
	output.PrintBudgets(r.w, results)
	if !r.cfg.Quiet {
		output.PrintUsage(r.w, output.RuleWidth(table.String()), config.Usage(), table.Styled())
	}
	return nil
}

// width picks the configured width, then the terminal size, then $COLUMNS.
func (r *Reporter) width() int {
	if r.cfg.Width > 0 {
		return r.cfg.Width
	}
	if f, ok := r.w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			return cols
		}
	}
	if cols, err := strconv.Atoi(r.getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return output.DefaultWidth
}

func (r *Reporter) styled() bool {
	if r.cfg.NoColor {
		return false
	}
	if r.color != nil {
		return *r.color
	}
	if r.getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := r.w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
