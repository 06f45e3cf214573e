package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/runner"
)

// fakeRequester simulates a benchmark request with fixed latency.
type fakeRequester struct {
	latency  time.Duration
	calls    int64
	inFlight int64
	peak     int64
	failEven bool
}

func (f *fakeRequester) Do(ctx context.Context) (benchmark.Result, error) {
	n := atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt64(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt64(&f.peak, peak, cur) {
			break
		}
	}

	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return benchmark.Result{}, ctx.Err()
	}
	if f.failEven && n%2 == 0 {
		return benchmark.Result{}, &benchmark.StatusError{StatusCode: 503, Body: "busy"}
	}
	return benchmark.Result{DurationMs: 100, Throughput: 1000}, nil
}

func TestRunnerIssuesEverySlot(t *testing.T) {
	req := &fakeRequester{latency: 5 * time.Millisecond}
	r := runner.New(runner.Options{
		Requests:  25,
		Requester: req,
	})
	res := r.Run(context.Background())
	if res.Total != 25 {
		t.Fatalf("expected total 25, got %d", res.Total)
	}
	if req.calls != 25 {
		t.Fatalf("expected requester called 25 times, got %d", req.calls)
	}
	if len(res.Outcomes) != 25 {
		t.Fatalf("expected 25 outcomes, got %d", len(res.Outcomes))
	}
	if res.Successes != 25 || res.Errors != 0 {
		t.Fatalf("expected 25 successes, got %d/%d", res.Successes, res.Errors)
	}
}

func TestRunnerRequestsAreConcurrent(t *testing.T) {
	req := &fakeRequester{latency: 50 * time.Millisecond}
	r := runner.New(runner.Options{Requests: 10, Requester: req})

	start := time.Now()
	r.Run(context.Background())
	elapsed := time.Since(start)

	if elapsed > 400*time.Millisecond {
		t.Fatalf("requests appear serialized: took %s", elapsed)
	}
	if req.peak < 2 {
		t.Fatalf("expected parallel requests, peak in flight = %d", req.peak)
	}
}

func TestRunnerMaxInFlight(t *testing.T) {
	req := &fakeRequester{latency: 10 * time.Millisecond}
	r := runner.New(runner.Options{Requests: 12, MaxInFlight: 3, Requester: req})
	res := r.Run(context.Background())

	if res.Successes != 12 {
		t.Fatalf("expected 12 successes, got %d", res.Successes)
	}
	if req.peak > 3 {
		t.Fatalf("peak in flight = %d, want <= 3", req.peak)
	}
}

func TestRunnerFailuresDoNotCancelSiblings(t *testing.T) {
	req := &fakeRequester{latency: time.Millisecond, failEven: true}
	collector := metrics.NewCollector()
	r := runner.New(runner.Options{Requests: 10, Requester: req, Recorder: collector})
	res := r.Run(context.Background())

	if res.Successes != 5 || res.Errors != 5 {
		t.Fatalf("expected 5/5, got %d successes %d errors", res.Successes, res.Errors)
	}
	snap := collector.Snapshot()
	if snap.Completed != 10 || snap.Successes != 5 || snap.Failures != 5 {
		t.Fatalf("collector snapshot = %+v", snap)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	var calls int64
	req := runner.RequesterFunc(func(ctx context.Context) (benchmark.Result, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			panic("boom")
		}
		return benchmark.Result{DurationMs: 1}, nil
	})
	res := runner.New(runner.Options{Requests: 3, Requester: req}).Run(context.Background())
	if res.Errors != 1 || res.Successes != 2 {
		t.Fatalf("expected 1 error 2 successes, got %d/%d", res.Errors, res.Successes)
	}
}

func TestRunnerCancelledBeforeLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := &fakeRequester{latency: time.Millisecond}
	collector := metrics.NewCollector()
	res := runner.New(runner.Options{Requests: 4, Requester: req, Recorder: collector}).Run(ctx)

	if req.calls != 0 {
		t.Fatalf("expected no requests issued, got %d", req.calls)
	}
	if res.Errors != 4 || len(res.Outcomes) != 4 {
		t.Fatalf("expected 4 aborted outcomes, got %d errors %d outcomes", res.Errors, len(res.Outcomes))
	}
	for _, out := range res.Outcomes {
		if !errors.Is(out.Err, benchmark.ErrAborted) {
			t.Errorf("expected ErrAborted, got %v", out.Err)
		}
	}
	if got := collector.Snapshot().Failures; got != 4 {
		t.Fatalf("collector failures = %d, want 4", got)
	}
}

func TestRunnerTimeoutSettlesSlowSlots(t *testing.T) {
	req := &fakeRequester{latency: time.Second}
	r := runner.New(runner.Options{Requests: 3, Timeout: 30 * time.Millisecond, Requester: req})

	start := time.Now()
	res := r.Run(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("run did not honor timeout")
	}
	if res.Errors != 3 {
		t.Fatalf("expected 3 errors, got %d", res.Errors)
	}
	for _, out := range res.Outcomes {
		if k := benchmark.Classify(out.Err); k != benchmark.FailureTimeout {
			t.Errorf("expected timeout kind, got %q (%v)", k, out.Err)
		}
	}
}

func TestRunnerOutcomesMatchRecorderOrder(t *testing.T) {
	var mu sync.Mutex
	var recorded []float64
	rec := recorderFunc(func(_ time.Duration, res benchmark.Result, _ error) {
		mu.Lock()
		recorded = append(recorded, res.DurationMs)
		mu.Unlock()
	})

	delays := []time.Duration{40 * time.Millisecond, 5 * time.Millisecond, 20 * time.Millisecond}
	var idx int64
	req := runner.RequesterFunc(func(ctx context.Context) (benchmark.Result, error) {
		i := atomic.AddInt64(&idx, 1) - 1
		time.Sleep(delays[i])
		return benchmark.Result{DurationMs: float64(delays[i].Milliseconds())}, nil
	})

	res := runner.New(runner.Options{Requests: 3, Requester: req, Recorder: rec}).Run(context.Background())
	for i, out := range res.Outcomes {
		if out.Result.DurationMs != recorded[i] {
			t.Fatalf("outcome %d = %v, recorder saw %v", i, out.Result.DurationMs, recorded[i])
		}
	}
	if res.Outcomes[0].Result.DurationMs != 5 {
		t.Fatalf("expected fastest request to settle first, got %v", res.Outcomes[0].Result.DurationMs)
	}
}

func TestRateLimiterPacesLaunches(t *testing.T) {
	req := &fakeRequester{latency: 0}
	limiterCalls := 0
	r := runner.New(runner.Options{
		Requests:      5,
		RatePerSecond: 50,
		Requester:     req,
		LimiterFactory: func(rps int) *rate.Limiter {
			limiterCalls++
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	})

	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)

	if limiterCalls != 1 {
		t.Fatalf("expected limiter factory to be used once, got %d", limiterCalls)
	}
	if res.Successes != 5 {
		t.Fatalf("expected 5 successes, got %d", res.Successes)
	}
	// Four gaps of 20ms after the initial token.
	if elapsed < 60*time.Millisecond {
		t.Fatalf("launches were not paced: %s", elapsed)
	}
}

type recorderFunc func(time.Duration, benchmark.Result, error)

func (f recorderFunc) RecordRequest(latency time.Duration, res benchmark.Result, err error) {
	f(latency, res, err)
}
