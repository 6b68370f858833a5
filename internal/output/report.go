package output

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/loadtime/internal/budget"
	"github.com/torosent/loadtime/internal/metrics"
)

// Header describes the line printed above the table.
type Header struct {
	StartedAt time.Time
	Threshold float64
	Sorted    bool
}

func (h Header) String() string {
	var b strings.Builder
	b.WriteString("Start time: (")
	b.WriteString(h.StartedAt.Format(time.RFC3339))
	b.WriteString(") [threshold=")
	b.WriteString(strconv.FormatFloat(h.Threshold*100, 'f', -1, 64))
	b.WriteString("%")
	if h.Sorted {
		b.WriteString(",sorted")
	}
	b.WriteString("]")
	return b.String()
}

// RuleWidth is the mean display width of the lines of text, rounded up.
func RuleWidth(text string) int {
	lines := strings.Split(text, "\n")
	total := 0
	for _, l := range lines {
		total += Width(l)
	}
	return int(math.Ceil(float64(total) / float64(len(lines))))
}

// PrintReport outputs the table followed by a human-readable summary.
func PrintReport(w io.Writer, h Header, t Table, stats metrics.Stats) {
	st := newStyles(t.opts.Styled)
	body := t.String()
	rule := st.sep.Render(strings.Repeat("─", RuleWidth(body)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, h.String())
	fmt.Fprintln(w, body)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, st.header.Render(fmt.Sprintf("Showing the slowest %s of %s load calls",
		st.tiers[TierHigh].Render(strconv.Itoa(len(t.Rows))),
		st.project.Render(strconv.Itoa(t.Recorded)))))
	fmt.Fprintln(w, st.header.Render("Total time: ")+st.tiers[TierMedium].Render(FormatDuration(t.Total)))
	PrintSummary(w, stats)
}

// PrintSummary outputs load latency percentiles and failures.
func PrintSummary(w io.Writer, stats metrics.Stats) {
	if stats.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Latency:  min=%s  mean=%s  p50=%s  p90=%s  p99=%s  max=%s\n",
		FormatDuration(stats.MinDuration),
		FormatDuration(stats.Mean),
		FormatDuration(stats.P50),
		FormatDuration(stats.P90),
		FormatDuration(stats.P99),
		FormatDuration(stats.MaxDuration),
	)
	if stats.Failures == 0 {
		return
	}
	fmt.Fprintf(w, "Failed:   %d\n", stats.Failures)
	names := make([]string, 0, len(stats.Errors))
	for name := range stats.Errors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats.Errors[names[i]] != stats.Errors[names[j]] {
			return stats.Errors[names[i]] > stats.Errors[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "  - %s: %d\n", name, stats.Errors[name])
	}
}

// PrintBudgets outputs one line per evaluated budget.
func PrintBudgets(w io.Writer, results []budget.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}
	fmt.Fprintf(w, "\nBudgets (%d/%d passed):\n", passed, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
}

// PrintUsage outputs the flag summary under a rule of the given width.
func PrintUsage(w io.Writer, ruleWidth int, usage string, styled bool) {
	st := newStyles(styled)
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.sep.Render(strings.Repeat("─", ruleWidth)))
	fmt.Fprintln(w, usage)
	fmt.Fprintln(w)
}
