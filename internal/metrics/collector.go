package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/benchboard/internal/benchmark"
)

// Collector records per-request outcomes of a single run in a thread-safe manner.
type Collector struct {
	mu            sync.Mutex
	hist          *hdrhistogram.Histogram
	sumRoundTrip  time.Duration
	results       []benchmark.Result
	failures      int64
	statusBuckets map[string]map[string]int
	start         time.Time
}

// Snapshot is a cheap progress view taken while a run is still in flight.
type Snapshot struct {
	Completed int64
	Successes int64
	Failures  int64
	Elapsed   time.Duration
}

func NewCollector() *Collector {
	// Track round trips from 1µs up to 5m with 3 significant figures.
	h := hdrhistogram.New(1, 300_000_000, 3)
	return &Collector{
		hist:          h,
		statusBuckets: make(map[string]map[string]int),
		start:         time.Now(),
	}
}

// Start resets the clock used for elapsed time and request rate.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordRequest records one settled request. Results are kept in the order
// this method is called, which is the order requests settle.
func (c *Collector) RecordRequest(latency time.Duration, res benchmark.Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.failures++
		kind := string(benchmark.Classify(err))
		codes, ok := c.statusBuckets[kind]
		if !ok {
			codes = make(map[string]int)
			c.statusBuckets[kind] = codes
		}
		codes[StatusCode(err)]++
		return
	}

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumRoundTrip += latency
	if res.RoundTrip == 0 {
		res.RoundTrip = latency
	}
	c.results = append(c.results, res)
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	successes := int64(len(c.results))
	return Snapshot{
		Completed: successes + c.failures,
		Successes: successes,
		Failures:  c.failures,
		Elapsed:   time.Since(c.start),
	}
}

// Results returns a copy of the successful results in settlement order.
func (c *Collector) Results() []benchmark.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]benchmark.Result(nil), c.results...)
}

// Stats computes the full aggregate for a run that issued total requests.
// Slots that were never recorded count as errors.
func (c *Collector) Stats(total int, elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := len(c.results) + int(c.failures)
	if total < recorded {
		total = recorded
	}
	stats := Compute(total, c.results)

	if n := len(c.results); n > 0 {
		stats.MeanRoundTrip = c.sumRoundTrip / time.Duration(n)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50RoundTrip = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90RoundTrip = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95RoundTrip = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99RoundTrip = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	stats.MeanRoundTripMs = toMs(stats.MeanRoundTrip)
	stats.P50RoundTripMs = toMs(stats.P50RoundTrip)
	stats.P90RoundTripMs = toMs(stats.P90RoundTrip)
	stats.P95RoundTripMs = toMs(stats.P95RoundTrip)
	stats.P99RoundTripMs = toMs(stats.P99RoundTrip)

	stats.Elapsed = elapsed
	stats.ElapsedMs = toMs(elapsed)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.statusBuckets) > 0 {
		stats.StatusBuckets = make(map[string]map[string]int, len(c.statusBuckets))
		for kind, codes := range c.statusBuckets {
			copied := make(map[string]int, len(codes))
			for code, count := range codes {
				copied[code] = count
			}
			stats.StatusBuckets[kind] = copied
		}
	}

	return stats
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
