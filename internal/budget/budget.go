// Package budget checks load statistics against user-supplied limits such as
// "load_duration:p99 < 200".
package budget

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/loadtime/internal/metrics"
)

// ErrExceeded is returned by Check when at least one budget fails.
var ErrExceeded = errors.New("load-time budget exceeded")

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Budget is a limit on one aggregate of the recorded loads.
type Budget struct {
	Metric    string  `json:"metric" yaml:"metric"`       // load_duration, load_failed or load_calls
	Aggregate string  `json:"aggregate" yaml:"aggregate"` // p50, p90, p99, avg, min, max, sum, count or rate
	Operator  string  `json:"operator" yaml:"operator"`   // <, <=, >, >= or ==
	Value     float64 `json:"value" yaml:"value"`
	Raw       string  `json:"raw" yaml:"raw"`
}

// Result is the outcome of evaluating a budget.
type Result struct {
	Budget  Budget  `json:"budget" yaml:"budget"`
	Actual  float64 `json:"actual" yaml:"actual"`
	Pass    bool    `json:"pass" yaml:"pass"`
	Message string  `json:"message" yaml:"message"`
}

// Parse parses a budget string.
// Supported formats:
// - "load_duration:p99 < 200"   (per-load percentile in ms)
// - "load_duration:sum < 1500"  (summed load time in ms)
// - "load_failed:count == 0"    (failed loads)
// - "load_failed:rate < 0.1"    (failed share of loads)
// - "load_calls:count <= 300"   (recorded loads)
func Parse(s string) (Budget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Budget{}, fmt.Errorf("empty budget string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Budget{}, fmt.Errorf("invalid budget format: %q (expected metric:aggregate operator value, e.g. 'load_duration:p99 < 200')", s)
	}
	metric, aggregate, operator := matches[1], matches[2], matches[3]

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Budget{}, fmt.Errorf("invalid budget value %q: %v", matches[4], err)
	}

	aggregates, ok := supported[metric]
	if !ok {
		return Budget{}, fmt.Errorf("unsupported metric: %q (supported: load_duration, load_failed, load_calls)", metric)
	}
	if !contains(aggregates, aggregate) {
		return Budget{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggregates, ", "))
	}
	if !contains([]string{"<", "<=", ">", ">=", "=="}, operator) {
		return Budget{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Budget{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every budget string, reporting all failures at once.
func ParseMultiple(budgets []string) ([]Budget, error) {
	if len(budgets) == 0 {
		return nil, nil
	}

	result := make([]Budget, 0, len(budgets))
	var issues []string
	for i, s := range budgets {
		b, err := Parse(s)
		if err != nil {
			issues = append(issues, fmt.Sprintf("budget[%d]: %v", i, err))
			continue
		}
		result = append(result, b)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("budget parsing errors: %s", strings.Join(issues, "; "))
	}
	return result, nil
}

// Evaluate checks every budget against stats, in order.
func Evaluate(budgets []Budget, stats metrics.Stats) []Result {
	if len(budgets) == 0 {
		return nil
	}
	results := make([]Result, 0, len(budgets))
	for _, b := range budgets {
		actual := extract(b, stats)
		pass := compare(actual, b.Operator, b.Value)
		status := "✓"
		if !pass {
			status = "✗"
		}
		results = append(results, Result{
			Budget:  b,
			Actual:  actual,
			Pass:    pass,
			Message: fmt.Sprintf("%s %s: %.2f %s %.2f", status, b.Raw, actual, b.Operator, b.Value),
		})
	}
	return results
}

// Check returns ErrExceeded, naming the failed budgets, if any result failed.
func Check(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Pass {
			failed = append(failed, r.Budget.Raw)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrExceeded, strings.Join(failed, "; "))
}

var supported = map[string][]string{
	"load_duration": {"p50", "p90", "p99", "avg", "min", "max", "sum"},
	"load_failed":   {"count", "rate"},
	"load_calls":    {"count"},
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func extract(b Budget, stats metrics.Stats) float64 {
	switch b.Metric {
	case "load_duration":
		switch b.Aggregate {
		case "p50":
			return stats.P50Ms
		case "p90":
			return stats.P90Ms
		case "p99":
			return stats.P99Ms
		case "avg":
			return stats.MeanMs
		case "min":
			return stats.MinMs
		case "max":
			return stats.MaxMs
		case "sum":
			return stats.SumMs
		}
	case "load_failed":
		if b.Aggregate == "count" {
			return float64(stats.Failures)
		}
		if stats.Count == 0 {
			return 0
		}
		return float64(stats.Failures) / float64(stats.Count)
	case "load_calls":
		return float64(stats.Count)
	}
	return 0
}

func compare(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
