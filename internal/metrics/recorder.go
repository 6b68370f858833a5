package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/loadtime/internal/hook"
)

// Timing is one recorded load. It is never modified after Append returns it.
type Timing struct {
	Index    int           `json:"index" yaml:"index"`
	Name     string        `json:"name" yaml:"name"`
	Filename string        `json:"filename" yaml:"filename"`
	Label    string        `json:"label" yaml:"label"`
	Duration time.Duration `json:"-" yaml:"-"`
	Failed   bool          `json:"failed,omitempty" yaml:"failed,omitempty"`
	Err      error         `json:"-" yaml:"-"`
}

// Millis returns the duration in fractional milliseconds.
func (t Timing) Millis() float64 {
	return float64(t.Duration) / float64(time.Millisecond)
}

// Recorder keeps timings in append order.
type Recorder struct {
	mu           sync.Mutex
	timings      []Timing
	hist         *hdrhistogram.Histogram
	failures     int64
	minDuration  time.Duration
	maxDuration  time.Duration
	sumDuration  time.Duration
	errorsByType map[string]int64
}

// Stats summarizes recorded load durations.
type Stats struct {
	Count       int64         `json:"count" yaml:"count"`
	Failures    int64         `json:"failures" yaml:"failures"`
	MinDuration time.Duration `json:"-" yaml:"-"`
	MaxDuration time.Duration `json:"-" yaml:"-"`
	SumDuration time.Duration `json:"-" yaml:"-"`
	Mean        time.Duration `json:"-" yaml:"-"`
	P50         time.Duration `json:"-" yaml:"-"`
	P90         time.Duration `json:"-" yaml:"-"`
	P99         time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinMs  float64        `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64        `json:"max_ms" yaml:"max_ms"`
	SumMs  float64        `json:"sum_ms" yaml:"sum_ms"`
	MeanMs float64        `json:"mean_ms" yaml:"mean_ms"`
	P50Ms  float64        `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64        `json:"p90_ms" yaml:"p90_ms"`
	P99Ms  float64        `json:"p99_ms" yaml:"p99_ms"`
	Errors map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	// Track load durations from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Recorder{
		hist:         h,
		errorsByType: make(map[string]int64),
	}
}

// Append records ev as the next timing. Repeated loads of the same unit are
// kept as separate entries.
func (r *Recorder) Append(ev hook.Event) Timing {
	r.mu.Lock()
	defer r.mu.Unlock()

	filename := ev.Filename
	if filename == "" {
		filename = ev.Name
	}
	t := Timing{
		Index:    len(r.timings),
		Name:     ev.Name,
		Filename: filename,
		Label:    label(ev.Name, filename),
		Duration: ev.Duration,
		Failed:   ev.Err != nil,
		Err:      ev.Err,
	}
	r.timings = append(r.timings, t)

	// Cache hits can take no measurable time; they still count as samples.
	us := ev.Duration.Microseconds()
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)
	r.sumDuration += ev.Duration
	if len(r.timings) == 1 || ev.Duration < r.minDuration {
		r.minDuration = ev.Duration
	}
	if ev.Duration > r.maxDuration {
		r.maxDuration = ev.Duration
	}
	if ev.Err != nil {
		r.failures++
		r.errorsByType[ErrorName(ev.Err)]++
	}
	return t
}

// Listener adapts the recorder into a hook listener.
func (r *Recorder) Listener() hook.Listener {
	return func(ev hook.Event) {
		r.Append(ev)
	}
}

// All returns a copy of every timing in append order.
func (r *Recorder) All() []Timing {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Timing, len(r.timings))
	copy(out, r.timings)
	return out
}

// Len returns the number of recorded timings.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timings)
}

// Stats computes aggregate statistics over all timings.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := int64(len(r.timings))
	stats := Stats{
		Count:       count,
		Failures:    r.failures,
		MinDuration: r.minDuration,
		MaxDuration: r.maxDuration,
		SumDuration: r.sumDuration,
	}
	if count > 0 {
		stats.Mean = time.Duration(int64(r.sumDuration) / count)
	}
	if r.hist.TotalCount() > 0 {
		stats.P50 = time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90 = time.Duration(r.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99 = time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinMs = toMillis(stats.MinDuration)
	stats.MaxMs = toMillis(stats.MaxDuration)
	stats.SumMs = toMillis(stats.SumDuration)
	stats.MeanMs = toMillis(stats.Mean)
	stats.P50Ms = toMillis(stats.P50)
	stats.P90Ms = toMillis(stats.P90)
	stats.P99Ms = toMillis(stats.P99)

	if len(r.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(r.errorsByType))
		for k, v := range r.errorsByType {
			stats.Errors[k] = int(v)
		}
	}
	return stats
}

func label(name, filename string) string {
	if name == filename {
		return name
	}
	return name + " (" + filename + ")"
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
