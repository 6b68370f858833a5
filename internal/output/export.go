package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/loadtime/internal/budget"
	"github.com/torosent/loadtime/internal/metrics"
)

// Report is the machine-readable form of a Table plus run metadata.
type Report struct {
	Session   string        `json:"session" yaml:"session"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	TotalMs   float64       `json:"total_ms" yaml:"total_ms"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Sorted    bool          `json:"sorted" yaml:"sorted"`
	Shown     int           `json:"shown" yaml:"shown"`
	Matched   int           `json:"matched" yaml:"matched"`
	Recorded  int           `json:"recorded" yaml:"recorded"`
	Rows      []ReportRow   `json:"rows" yaml:"rows"`
	Stats     metrics.Stats `json:"stats" yaml:"stats"`

	Budgets []budget.Result `json:"budgets,omitempty" yaml:"budgets,omitempty"`
}

// ReportRow is one displayed timing.
type ReportRow struct {
	Rank       int     `json:"rank" yaml:"rank"`
	Index      int     `json:"index" yaml:"index"`
	Name       string  `json:"name" yaml:"name"`
	Filename   string  `json:"filename" yaml:"filename"`
	Display    string  `json:"display" yaml:"display"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`
	Share      float64 `json:"share" yaml:"share"`
	Tier       string  `json:"tier" yaml:"tier"`
	Failed     bool    `json:"failed,omitempty" yaml:"failed,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport converts a built table into a Report.
func NewReport(t Table, session string, startedAt time.Time, stats metrics.Stats) Report {
	rows := make([]ReportRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = ReportRow{
			Rank:       r.Rank,
			Index:      r.Timing.Index,
			Name:       r.Timing.Name,
			Filename:   r.Timing.Filename,
			Display:    r.Name,
			DurationMs: r.Timing.Millis(),
			Share:      r.Share,
			Tier:       r.Tier.String(),
			Failed:     r.Timing.Failed,
		}
		if r.Timing.Err != nil {
			rows[i].Error = r.Timing.Err.Error()
		}
	}
	return Report{
		Session:   session,
		StartedAt: startedAt,
		TotalMs:   float64(t.Total) / float64(time.Millisecond),
		Threshold: t.opts.Threshold,
		Sorted:    t.opts.Sorted,
		Shown:     len(t.Rows),
		Matched:   t.Matched,
		Recorded:  t.Recorded,
		Rows:      rows,
		Stats:     stats,
	}
}

// WriteJSON outputs report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteYAML outputs report as YAML.
func WriteYAML(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}
