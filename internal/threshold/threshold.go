// Package threshold checks a finished run against pass/fail assertions such
// as "latency:p95 < 500", so that headless runs can gate a CI pipeline.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pepe-http/pepe/internal/output"
)

// ErrFailed is returned by Check when at least one threshold does not hold.
var ErrFailed = errors.New("thresholds failed")

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9_]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var (
	operators  = []string{"<", "<=", ">", ">=", "=="}
	aggregates = map[string][]string{
		"latency":  {"p0", "p10", "p25", "p50", "p75", "p90", "p95", "p99", "p100", "avg", "min", "max", "stddev"},
		"failed":   {"count", "rate"},
		"timeouts": {"count", "rate"},
		"requests": {"count", "rate"},
		"cache":    {"hit_rate"},
	}
)

// Threshold is one assertion on the final summary of a run.
type Threshold struct {
	Metric    string  // latency, failed, timeouts, requests or cache
	Aggregate string  // p95, avg, count, rate, hit_rate...
	Operator  string  // <, <=, >, >=, ==
	Value     float64 // compared against the measured value
	Raw       string  // as written, for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against sum, in order.
func (e *Evaluator) Evaluate(sum output.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, sum))
	}
	return results
}

// Check evaluates and returns ErrFailed, wrapped with a count, when any
// threshold does not hold.
func (e *Evaluator) Check(sum output.Summary) ([]Result, error) {
	results := e.Evaluate(sum)
	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrFailed, failed, len(results))
	}
	return results, nil
}

func evaluateOne(t Threshold, sum output.Summary) Result {
	actual, err := measure(t, sum)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("✗ %s: %v", t.Raw, err)}
	}

	pass := compare(actual, t.Operator, t.Value)
	mark := "✓"
	if !pass {
		mark = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", mark, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse reads "metric:aggregate operator value". Latency values are in
// milliseconds, failure and timeout rates are fractions of completed
// requests, request rate is per second and cache hit rate is a percentage.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold")
	}
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}
	metric, aggregate, op := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}
	allowed, ok := aggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric %q (supported: cache, failed, latency, requests, timeouts)", metric)
	}
	if !slices.Contains(allowed, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(allowed, ", "))
	}
	if !slices.Contains(operators, op) {
		return Threshold{}, fmt.Errorf("unsupported operator %q (supported: %s)", op, strings.Join(operators, " "))
	}

	return Threshold{Metric: metric, Aggregate: aggregate, Operator: op, Value: value, Raw: s}, nil
}

// ParseMultiple parses every entry and reports all malformed ones at once.
func ParseMultiple(raw []string) ([]Threshold, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Threshold, 0, len(raw))
	var problems []string
	for i, s := range raw {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return out, nil
}

func measure(t Threshold, sum output.Summary) (float64, error) {
	switch t.Metric {
	case "latency":
		return latency(t.Aggregate, sum)
	case "failed":
		return countOrRate(t.Aggregate, sum.Failed, sum.Count), nil
	case "timeouts":
		return countOrRate(t.Aggregate, sum.Timeouts, sum.Count), nil
	case "requests":
		if t.Aggregate == "rate" {
			return sum.RequestsPerSec, nil
		}
		return float64(sum.Count), nil
	case "cache":
		return sum.Cache.HitRate, nil
	default:
		return 0, fmt.Errorf("unknown metric %s", t.Metric)
	}
}

func latency(aggregate string, sum output.Summary) (float64, error) {
	switch aggregate {
	case "avg":
		return sum.Latency.AvgMs, nil
	case "min":
		return sum.Latency.MinMs, nil
	case "max":
		return sum.Latency.MaxMs, nil
	case "stddev":
		return sum.Latency.StdDevMs, nil
	}
	p, err := strconv.Atoi(strings.TrimPrefix(aggregate, "p"))
	if err != nil {
		return 0, fmt.Errorf("unsupported latency aggregate %q", aggregate)
	}
	v, ok := sum.Percentile(p)
	if !ok {
		return 0, errors.New("no latency samples")
	}
	return v, nil
}

func countOrRate(aggregate string, n, total int) float64 {
	if aggregate == "count" {
		return float64(n)
	}
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func compare(actual float64, op string, expected float64) bool {
	const epsilon = 1e-9

	switch op {
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
