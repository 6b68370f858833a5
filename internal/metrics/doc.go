// Package metrics records per-load timings and aggregates them.
//
// The [Recorder] is the ordered store the interceptor reports into. Each
// appended [Timing] gets the next index, starting at 0, so indices reflect
// the order in which loads completed:
//
//	rec := metrics.NewRecorder()
//	session.Install(rec.Listener())
//
//	// ... program loads its dependencies ...
//
//	for _, t := range rec.All() {
//		fmt.Println(t.Index, t.Label, t.Duration)
//	}
//
// Nothing is deduplicated. A cached load shows up as its own entry with a
// near-zero duration; deciding what is worth showing is left to the report.
//
// # Statistics
//
// [Recorder.Stats] summarizes all durations: count, failures, min, max, sum,
// mean and P50/P90/P99 percentiles computed from an HDR histogram. Failed
// loads are grouped by a readable error name (see [ErrorName]).
package metrics
