package output

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/loadtime/internal/metrics"
)

const (
	// DefaultWidth is used when the terminal width is unknown.
	DefaultWidth = 80

	// BarChar fills the proportional bar.
	BarChar = "▇"

	// Columns reserved for the rank, time and percentage text.
	overheadColumns       = 20
	sortedOverheadColumns = 24

	ellipsis    = "..."
	failedMark  = " [failed]"
	zeroPercent = "0"
	columnGap   = "  "
)

// Options controls which timings are shown and how.
type Options struct {
	Threshold    float64 // minimum share of total time for a row to show
	MaxRows      int     // 0 means unbounded
	Sorted       bool    // order by duration instead of load order
	RemovePrefix string  // stripped from filenames before shortening
	Width        int     // terminal width; DefaultWidth when <= 0
	ProjectRoot  string  // files under it are shown as ./rel
	HomeDir      string  // files under it are shown as ~/rel
	Styled       bool    // emit ANSI styling
}

type nameKind int

const (
	kindExternal nameKind = iota
	kindProject
	kindHome
)

// Row is one displayed timing.
type Row struct {
	Rank    int
	Timing  metrics.Timing
	Share   float64
	Tier    Tier
	Name    string // shortened display name without styling
	Percent string // truncated percentage text, without the % sign
	BarLen  int    // 0 when the percentage rounds to zero

	kind   nameKind
	marker string
	body   string
}

// Table is the laid-out report for a set of timings.
type Table struct {
	Rows     []Row
	Matched  int           // timings at or above the threshold, before MaxRows
	Recorded int           // timings considered
	Total    time.Duration // total used for shares
	Budget   int           // bar-width budget
	Width    int

	opts   Options
	digits int
}

// Build filters, orders, caps and shortens timings into a Table.
// It is a pure function of its arguments.
func Build(timings []metrics.Timing, total time.Duration, opts Options) Table {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	total = effectiveTotal(timings, total)

	rows := make([]Row, 0, len(timings))
	for _, t := range timings {
		share := shareOf(t.Duration, total)
		if share < opts.Threshold {
			continue
		}
		rows = append(rows, Row{Timing: t, Share: share, Tier: TierFor(share)})
	}
	matched := len(rows)

	if opts.Sorted {
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].Timing, rows[j].Timing
			if a.Duration != b.Duration {
				return a.Duration > b.Duration
			}
			return a.Index < b.Index
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Timing.Index < rows[j].Timing.Index
		})
	}

	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		rows = rows[:opts.MaxRows]
	}

	for i := range rows {
		rows[i].Rank = i + 1
		name := normalize(rows[i].Timing.Filename, opts.RemovePrefix)
		rows[i].kind, rows[i].marker, rows[i].body = classify(name, opts.ProjectRoot, opts.HomeDir)
	}

	overhead := overheadColumns
	if opts.Sorted {
		overhead = sortedOverheadColumns
	}
	avail := max(0, width-overhead)
	limit := avail / 2

	longest := 0
	for _, r := range rows {
		longest = max(longest, nameWidth(r))
	}
	if longest > limit {
		for i := range rows {
			if nameWidth(rows[i]) <= limit {
				continue
			}
			bodyLimit := limit - Width(rows[i].marker)
			if rows[i].Timing.Failed {
				bodyLimit -= Width(failedMark)
			}
			rows[i].body = compress(rows[i].body, bodyLimit)
		}
		longest = 0
		for _, r := range rows {
			longest = max(longest, nameWidth(r))
		}
	}
	longest = min(longest, width)
	budget := max(0, width-longest-overhead)

	for i := range rows {
		rows[i].Name = rows[i].marker + rows[i].body
		rows[i].Percent = percentText(rows[i].Share)
		rows[i].BarLen = barLength(budget, rows[i].Share, rows[i].Percent)
	}

	return Table{
		Rows:     rows,
		Matched:  matched,
		Recorded: len(timings),
		Total:    total,
		Budget:   budget,
		Width:    width,
		opts:     opts,
		digits:   len(strconv.Itoa(len(timings))),
	}
}

// Render formats timings as a text table.
func Render(timings []metrics.Timing, total time.Duration, opts Options) string {
	return Build(timings, total, opts).String()
}

// String renders the table: header, separator and one line per row.
func (t Table) String() string {
	st := newStyles(t.opts.Styled)

	orderHeader := "#"
	if t.opts.Sorted {
		orderHeader = "# [i]"
	}
	header := []string{orderHeader, "module", "time", "%"}
	for i, h := range header {
		header[i] = st.header.Render(strings.ToUpper(h))
	}

	cells := make([][]string, 0, len(t.Rows)+2)
	cells = append(cells, header, make([]string, len(header)))
	for _, r := range t.Rows {
		cells = append(cells, []string{
			st.rank.Render(t.orderLabel(r)),
			styledName(st, r),
			st.duration.Render(FormatDuration(r.Timing.Duration)),
			st.tiers[r.Tier].Render(barText(r)),
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], Width(c))
		}
	}
	sep := cells[1]
	for i := range sep {
		sep[i] = st.sep.Render(strings.Repeat("─", widths[i]))
	}

	aligns := []alignment{alignRight, alignLeft, alignRight, alignLeft}
	lines := make([]string, len(cells))
	for i, row := range cells {
		lines[i] = joinRow(row, widths, aligns)
	}
	return strings.Join(lines, "\n")
}

// Styled reports whether the table renders with ANSI styling.
func (t Table) Styled() bool {
	return t.opts.Styled
}

func (t Table) orderLabel(r Row) string {
	if !t.opts.Sorted {
		return strconv.Itoa(r.Rank)
	}
	return fmt.Sprintf("%d %*s", r.Rank, t.digits+2, "["+strconv.Itoa(r.Timing.Index)+"]")
}

type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

func joinRow(row []string, widths []int, aligns []alignment) string {
	parts := make([]string, len(row))
	for i, c := range row {
		pad := strings.Repeat(" ", max(0, widths[i]-Width(c)))
		if aligns[i] == alignRight {
			parts[i] = pad + c
		} else {
			parts[i] = c + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, columnGap), " ")
}

func styledName(st styles, r Row) string {
	var s string
	switch r.kind {
	case kindProject:
		s = st.marker.Render(r.marker) + st.project.Render(r.body)
	case kindHome:
		s = st.marker.Render(r.marker) + st.home.Render(r.body)
	default:
		s = st.external.Render(r.body)
	}
	if r.Timing.Failed {
		s += st.failed.Render(failedMark)
	}
	return s
}

func barText(r Row) string {
	if r.BarLen == 0 {
		return zeroPercent
	}
	return strings.Repeat(BarChar, r.BarLen) + " " + r.Percent + "%"
}

func nameWidth(r Row) int {
	w := Width(r.marker) + Width(r.body)
	if r.Timing.Failed {
		w += Width(failedMark)
	}
	return w
}

// effectiveTotal falls back to the sum of durations when total is not positive.
func effectiveTotal(timings []metrics.Timing, total time.Duration) time.Duration {
	if total > 0 {
		return total
	}
	var sum time.Duration
	for _, t := range timings {
		sum += t.Duration
	}
	return sum
}

func shareOf(d, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(d) / float64(total)
}

// normalize strips prefix from filename and then exactly one leading
// separator if the strip left one behind.
func normalize(filename, prefix string) string {
	if prefix == "" || !strings.HasPrefix(filename, prefix) {
		return filename
	}
	name := strings.TrimPrefix(filename, prefix)
	if name != "" && (name[0] == '/' || name[0] == filepath.Separator) {
		name = name[1:]
	}
	return name
}

func classify(name, root, home string) (nameKind, string, string) {
	if rel, ok := under(name, root); ok {
		return kindProject, "./", rel
	}
	if rel, ok := under(name, home); ok {
		return kindHome, "~/", rel
	}
	return kindExternal, "", name
}

func under(name, dir string) (string, bool) {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return "", false
	}
	if !strings.HasPrefix(name, dir+"/") {
		return "", false
	}
	return name[len(dir)+1:], true
}

// compress shortens s to exactly limit runes: a head of
// floor((limit-3)/2)+1 runes, an ellipsis and whatever tail still fits.
// Limits too small to hold the ellipsis leave s as is.
func compress(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit || limit <= len(ellipsis) {
		return s
	}
	head := (limit-len(ellipsis))/2 + 1
	tail := limit - len(ellipsis) - head
	return string(r[:head]) + ellipsis + string(r[len(r)-tail:])
}

// percentText renders share*100 in its shortest form cut to four characters.
func percentText(share float64) string {
	s := strconv.FormatFloat(share*100, 'f', -1, 64)
	if len(s) > 4 {
		s = s[:4]
	}
	return strings.TrimSuffix(s, ".")
}

func barLength(budget int, share float64, percent string) int {
	if v, err := strconv.ParseFloat(percent, 64); err != nil || v == 0 {
		return 0
	}
	share = math.Min(math.Max(share, 0), 1)
	return int(math.Floor(float64(budget)*share)) + 1
}

// FormatDuration renders d in whole milliseconds, or microseconds below 1ms.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Millisecond:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d > 0:
		return strconv.FormatInt(d.Microseconds(), 10) + "µs"
	default:
		return "0ms"
	}
}
