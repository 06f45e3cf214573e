// Package metrics aggregates the outcome of a benchmark run.
//
// Two entry points exist:
//
//   - [Compute] derives the headline statistics (success/error counts, rounded
//     mean duration, sorted-index p95, rounded total throughput) from a slice of
//     successful results. It is pure and is what the display layer commits.
//   - [Collector] records settled requests while a run is in flight. It feeds
//     progress output through [Collector.Snapshot] and, once the barrier is
//     reached, produces the same statistics plus client round-trip percentiles
//     from an HDR histogram and failure buckets grouped by kind.
//
// # Statistics
//
// Average and p95 only consider successful requests:
//
//	stats := metrics.Compute(concurrency, results)
//	// stats.SuccessCount + stats.ErrorCount == concurrency
//
// The p95 is the value at index floor(0.95 * n) of the ascending durations,
// see [P95Index].
//
// # Thread Safety
//
// Collector methods may be called from any goroutine. A Collector is meant to
// live for exactly one run.
package metrics
