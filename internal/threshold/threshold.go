package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/medusa/internal/metrics"
)

// Threshold represents a pass/fail assertion over the run summary.
type Threshold struct {
	Metric    string  // e.g., "response_time", "requests_failed"
	Aggregate string  // e.g., "median", "p99", "count", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

var errNoLatencyData = errors.New("no successful requests to measure")

type extractor func(metrics.Stats) (float64, error)

func latency(pick func(metrics.Stats) int64) extractor {
	return func(s metrics.Stats) (float64, error) {
		if !s.HasData() {
			return 0, errNoLatencyData
		}
		return float64(pick(s)), nil
	}
}

func plain(pick func(metrics.Stats) float64) extractor {
	return func(s metrics.Stats) (float64, error) {
		return pick(s), nil
	}
}

// catalog lists every metric:aggregate pair a threshold may reference.
// Latencies are in milliseconds.
var catalog = map[string]map[string]extractor{
	"response_time": {
		"avg":    latency(func(s metrics.Stats) int64 { return s.AvgTimeMs }),
		"median": latency(func(s metrics.Stats) int64 { return s.MedianTimeMs }),
		"min":    latency(func(s metrics.Stats) int64 { return s.MinTimeMs }),
		"max":    latency(func(s metrics.Stats) int64 { return s.MaxTimeMs }),
		"p90":    latency(func(s metrics.Stats) int64 { return s.P90TimeMs }),
		"p99":    latency(func(s metrics.Stats) int64 { return s.P99TimeMs }),
	},
	"requests_failed": {
		"count": plain(func(s metrics.Stats) float64 { return float64(s.FailureCount) }),
		"rate":  plain(metrics.Stats.FailureRate),
	},
	"requests": {
		"count": plain(func(s metrics.Stats) float64 { return float64(s.Total) }),
	},
	"requests_succeeded": {
		"count": plain(func(s metrics.Stats) float64 { return float64(s.SuccessCount) }),
	},
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Evaluator evaluates thresholds against the run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// CountFailed returns how many results did not pass.
func CountFailed(results []Result) int {
	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	return failed
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := catalog[t.Metric][t.Aggregate](stats)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string of the form "metric:aggregate operator value",
// for example:
//   - "response_time:median < 200"
//   - "response_time:p99 <= 1000"
//   - "requests_failed:rate < 0.01"
//   - "requests_failed:count == 0"
//   - "requests:count >= 10"
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'response_time:median < 200')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := catalog[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(sortedKeys(catalog), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(sortedKeys(aggregates), ", "))
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, reporting every invalid one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
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
