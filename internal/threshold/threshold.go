// Package threshold evaluates pass/fail assertions against run statistics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/torosent/benchboard/internal/metrics"
)

// Threshold is a single assertion of the form "metric:aggregate op value".
type Threshold struct {
	Metric    string  // duration, roundtrip, failed, throughput, requests
	Aggregate string  // avg, p95, count, rate, total, ...
	Operator  string  // <, <=, >, >=, ==
	Value     float64
	Raw       string
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold `json:"-" yaml:"-"`
	Expr      string    `json:"threshold" yaml:"threshold"`
	Actual    float64   `json:"actual" yaml:"actual"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

// supported maps each metric to its valid aggregates.
var supported = map[string][]string{
	"duration":   {"avg", "p95", "min", "max", "stddev"},
	"roundtrip":  {"avg", "p50", "p90", "p95", "p99"},
	"failed":     {"count", "rate"},
	"throughput": {"total"},
	"requests":   {"count", "rate"},
}

var operators = []string{"<", "<=", ">", ">=", "=="}

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Evaluator evaluates a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	return lo.Map(e.thresholds, func(t Threshold, _ int) Result {
		return evaluateOne(t, stats)
	})
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	return lo.EveryBy(results, func(r Result) bool { return r.Pass })
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := metricValue(t, stats)
	if err != nil {
		return Result{Threshold: t, Expr: t.Raw, Message: fmt.Sprintf("error: %v", err)}
	}
	pass := compare(actual, t.Operator, t.Value)
	mark := "✓"
	if !pass {
		mark = "✗"
	}
	return Result{
		Threshold: t,
		Expr:      t.Raw,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", mark, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses one threshold expression, for example:
//   - "duration:p95 < 500"     (server-reported duration, ms)
//   - "roundtrip:p99 < 800"    (client round trip, ms)
//   - "failed:rate < 0.01"     (failed fraction of the run)
//   - "throughput:total > 1000"
//   - "requests:count >= 10"
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'duration:p95 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}
	aggs, ok := supported[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(metricNames(), ", "))
	}
	if !lo.Contains(aggs, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggs, ", "))
	}
	if !lo.Contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: %s)", operator, strings.Join(operators, ", "))
	}
	return Threshold{Metric: metric, Aggregate: aggregate, Operator: operator, Value: value, Raw: s}, nil
}

// ParseMultiple parses every expression and reports all failures together.
func ParseMultiple(exprs []string) ([]Threshold, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]Threshold, 0, len(exprs))
	var errs []string
	for i, s := range exprs {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return out, nil
}

func metricNames() []string {
	names := lo.Keys(supported)
	sort.Strings(names)
	return names
}

func metricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "duration":
		switch t.Aggregate {
		case "avg":
			return stats.AvgDurationMs, nil
		case "p95":
			return stats.P95DurationMs, nil
		case "min":
			return stats.MinDurationMs, nil
		case "max":
			return stats.MaxDurationMs, nil
		case "stddev":
			return stats.StdDevDurationMs, nil
		}
	case "roundtrip":
		switch t.Aggregate {
		case "avg":
			return stats.MeanRoundTripMs, nil
		case "p50":
			return stats.P50RoundTripMs, nil
		case "p90":
			return stats.P90RoundTripMs, nil
		case "p95":
			return stats.P95RoundTripMs, nil
		case "p99":
			return stats.P99RoundTripMs, nil
		}
	case "failed":
		switch t.Aggregate {
		case "count":
			return float64(stats.ErrorCount), nil
		case "rate":
			if stats.TotalRequests == 0 {
				return 0, nil
			}
			return float64(stats.ErrorCount) / float64(stats.TotalRequests), nil
		}
	case "throughput":
		if t.Aggregate == "total" {
			return stats.TotalThroughput, nil
		}
	case "requests":
		switch t.Aggregate {
		case "count":
			return float64(stats.TotalRequests), nil
		case "rate":
			return stats.RequestsPerSec, nil
		}
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
}

func compare(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9
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
