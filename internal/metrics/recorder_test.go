package metrics_test

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"testing"
	"time"

	"github.com/torosent/loadtime/internal/hook"
	"github.com/torosent/loadtime/internal/loader"
	"github.com/torosent/loadtime/internal/metrics"
)

func TestRecorderAssignsContiguousIndices(t *testing.T) {
	r := metrics.NewRecorder()
	const n = 25
	for i := 0; i < n; i++ {
		r.Append(hook.Event{Name: fmt.Sprintf("m%d", i), Duration: time.Duration(i) * time.Millisecond})
	}

	all := r.All()
	if len(all) != n {
		t.Fatalf("expected %d timings, got %d", n, len(all))
	}
	for i, tm := range all {
		if tm.Index != i {
			t.Errorf("timing %d has index %d", i, tm.Index)
		}
		if tm.Name != fmt.Sprintf("m%d", i) {
			t.Errorf("timing %d has name %q", i, tm.Name)
		}
	}
	if r.Len() != n {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRecorderKeepsDuplicatesAndZeroDurations(t *testing.T) {
	r := metrics.NewRecorder()
	r.Append(hook.Event{Name: "db", Filename: "/app/db.go", Duration: 30 * time.Millisecond})
	r.Append(hook.Event{Name: "db", Filename: "/app/db.go"})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 timings, got %d", len(all))
	}
	if all[1].Duration != 0 {
		t.Errorf("cache-hit duration = %s, want 0", all[1].Duration)
	}
}

func TestRecorderLabelAndFilenameFallback(t *testing.T) {
	r := metrics.NewRecorder()
	a := r.Append(hook.Event{Name: "db", Filename: "/app/db.go"})
	b := r.Append(hook.Event{Name: "fmt"})

	if a.Label != "db (/app/db.go)" {
		t.Errorf("label = %q", a.Label)
	}
	if b.Filename != "fmt" || b.Label != "fmt" {
		t.Errorf("fallback timing = %+v", b)
	}
}

func TestRecorderAllReturnsCopy(t *testing.T) {
	r := metrics.NewRecorder()
	r.Append(hook.Event{Name: "a"})
	all := r.All()
	all[0].Name = "mutated"
	if r.All()[0].Name != "a" {
		t.Error("All must not expose internal storage")
	}
}

func TestRecorderStats(t *testing.T) {
	r := metrics.NewRecorder()
	for i := 1; i <= 100; i++ {
		r.Append(hook.Event{Name: "m", Duration: time.Duration(i) * time.Millisecond})
	}
	r.Append(hook.Event{Name: "missing", Err: &loader.NotFoundError{Name: "missing"}})
	r.Append(hook.Event{Name: "broken", Err: errors.New("boom")})

	stats := r.Stats()
	if stats.Count != 102 {
		t.Errorf("count = %d", stats.Count)
	}
	if stats.Failures != 2 {
		t.Errorf("failures = %d", stats.Failures)
	}
	if stats.MinDuration != 0 {
		t.Errorf("min = %s, want 0", stats.MinDuration)
	}
	if stats.MaxDuration != 100*time.Millisecond {
		t.Errorf("max = %s", stats.MaxDuration)
	}
	if stats.SumDuration != 5050*time.Millisecond {
		t.Errorf("sum = %s", stats.SumDuration)
	}
	if stats.P50 < 49*time.Millisecond || stats.P50 > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50)
	}
	if stats.P99 < 98*time.Millisecond || stats.P99 > 101*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99)
	}
	if stats.Errors["Unit not found"] != 1 {
		t.Errorf("errors = %v", stats.Errors)
	}
	if stats.Errors["Init error"] != 1 {
		t.Errorf("errors = %v", stats.Errors)
	}
}

func TestRecorderPercentilesIncludeZeroDurations(t *testing.T) {
	r := metrics.NewRecorder()
	for i := 0; i < 3; i++ {
		r.Append(hook.Event{Name: "cached"})
	}
	r.Append(hook.Event{Name: "slow", Duration: 10 * time.Millisecond})

	stats := r.Stats()
	if stats.Count != 4 {
		t.Fatalf("count = %d, want 4", stats.Count)
	}
	if stats.P50 >= time.Millisecond {
		t.Errorf("P50 = %s, want the cache hits to pull it below 1ms", stats.P50)
	}
	if stats.P99 < 9*time.Millisecond || stats.P99 > 11*time.Millisecond {
		t.Errorf("P99 = %s, want ~10ms", stats.P99)
	}
}

func TestRecorderEmptyStats(t *testing.T) {
	stats := metrics.NewRecorder().Stats()
	if stats.Count != 0 || stats.Mean != 0 || stats.P50 != 0 || stats.Errors != nil {
		t.Errorf("unexpected stats for empty recorder: %+v", stats)
	}
}

func TestRecorderListener(t *testing.T) {
	r := metrics.NewRecorder()
	l := r.Listener()
	l(hook.Event{Name: "a", Err: errors.New("x")})
	all := r.All()
	if len(all) != 1 || !all[0].Failed {
		t.Errorf("listener did not record failed event: %+v", all)
	}
}

type quotaError struct{}

func (quotaError) Error() string { return "quota" }
func (quotaError) Label() string { return "Quota exceeded" }

func TestErrorName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &loader.NotFoundError{Name: "x"}, "Unit not found"},
		{"wrapped not found", fmt.Errorf("top: %w", &loader.NotFoundError{Name: "x"}), "Unit not found"},
		{"plain", errors.New("boom"), "Init error"},
		{"wrapped plain", fmt.Errorf("mid: %w", errors.New("boom")), "Init error"},
		{"labeled", fmt.Errorf("mid: %w", quotaError{}), "Quota exceeded"},
		{"path", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, "File error"},
		{"typed", &net.OpError{Op: "dial", Err: errors.New("refused")}, "Op Error (net)"},
		{"nil", nil, "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metrics.ErrorName(tt.err); got != tt.want {
				t.Errorf("ErrorName() = %q, want %q", got, tt.want)
			}
		})
	}
}
