package metrics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/torosent/benchboard/internal/benchmark"
)

// p95Quantile is applied as a sorted-index lookup: index floor(0.95 * n).
const p95Quantile = 0.95

// Stats is the aggregate view of one completed run.
type Stats struct {
	TotalRequests   int     `json:"total_requests" yaml:"total_requests"`
	SuccessCount    int     `json:"success_count" yaml:"success_count"`
	ErrorCount      int     `json:"error_count" yaml:"error_count"`
	AvgDurationMs   float64 `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	P95DurationMs   float64 `json:"p95_duration_ms" yaml:"p95_duration_ms"`
	TotalThroughput float64 `json:"total_throughput" yaml:"total_throughput"`

	// Server-reported duration spread.
	MinDurationMs    float64 `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs    float64 `json:"max_duration_ms" yaml:"max_duration_ms"`
	StdDevDurationMs float64 `json:"stddev_duration_ms" yaml:"stddev_duration_ms"`

	// Client-observed round trip, successes only.
	MeanRoundTrip time.Duration `json:"-" yaml:"-"`
	P50RoundTrip  time.Duration `json:"-" yaml:"-"`
	P90RoundTrip  time.Duration `json:"-" yaml:"-"`
	P95RoundTrip  time.Duration `json:"-" yaml:"-"`
	P99RoundTrip  time.Duration `json:"-" yaml:"-"`

	MeanRoundTripMs float64 `json:"mean_round_trip_ms" yaml:"mean_round_trip_ms"`
	P50RoundTripMs  float64 `json:"p50_round_trip_ms" yaml:"p50_round_trip_ms"`
	P90RoundTripMs  float64 `json:"p90_round_trip_ms" yaml:"p90_round_trip_ms"`
	P95RoundTripMs  float64 `json:"p95_round_trip_ms" yaml:"p95_round_trip_ms"`
	P99RoundTripMs  float64 `json:"p99_round_trip_ms" yaml:"p99_round_trip_ms"`

	Elapsed        time.Duration `json:"-" yaml:"-"`
	ElapsedMs      float64       `json:"elapsed_ms" yaml:"elapsed_ms"`
	RequestsPerSec float64       `json:"requests_per_sec" yaml:"requests_per_sec"`

	// StatusBuckets maps failure kind -> status code -> count.
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
}

// Compute derives the headline statistics from the successful results of a
// run that issued total requests. It never mutates results.
func Compute(total int, results []benchmark.Result) Stats {
	n := len(results)
	if total < n {
		total = n
	}
	stats := Stats{
		TotalRequests: total,
		SuccessCount:  n,
		ErrorCount:    total - n,
	}
	if n == 0 {
		return stats
	}

	durations := make([]float64, n)
	throughputs := make([]float64, n)
	for i, r := range results {
		durations[i] = r.DurationMs
		throughputs[i] = r.Throughput
	}

	stats.AvgDurationMs = math.Round(stat.Mean(durations, nil))
	stats.TotalThroughput = math.Round(floats.Sum(throughputs))

	sort.Float64s(durations)
	stats.P95DurationMs = durations[P95Index(n)]
	stats.MinDurationMs = durations[0]
	stats.MaxDurationMs = durations[n-1]
	if n > 1 {
		stats.StdDevDurationMs = stat.StdDev(durations, nil)
	}
	return stats
}

// P95Index returns the sorted index used for the p95 lookup over n samples.
func P95Index(n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(math.Floor(p95Quantile * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}
