// Package session runs complete benchmarks: it fans out one request per
// concurrency slot, waits for all of them, aggregates the results and
// commits them to the display state unless a newer run has started.
package session

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/httpclient"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/runner"
	"github.com/torosent/benchboard/internal/state"
	"github.com/torosent/benchboard/internal/tracing"
)

// RequesterFactory builds the per-request executor for a run.
type RequesterFactory func(spec benchmark.Spec) (runner.Requester, error)

// Options configure a Session. Zero values give unpaced full fan-out with the
// default 60s per-request ceiling.
type Options struct {
	Client        *http.Client
	Headers       map[string]string
	RatePerSecond int
	MaxInFlight   int
	RunTimeout    time.Duration
	Retry         runner.RetryPolicy
	FailureLogger runner.FailureLogger
	Tracing       *tracing.Provider
	Store         *state.Store

	// NewRequester overrides the HTTP requester, mainly for tests.
	NewRequester RequesterFactory
	// OnStart is called once a run's collector exists, before any request
	// is issued. Progress displays hook in here.
	OnStart func(runID uint64, collector *metrics.Collector)
}

// Outcome is what one Run produced. Committed is false when a newer run
// began before this one settled; its stats were then not displayed.
type Outcome struct {
	RunID     uint64
	Label     string
	Spec      benchmark.Spec
	Stats     metrics.Stats
	Results   []benchmark.Result
	Committed bool
}

// Session is safe for concurrent use. Overlapping runs are allowed; only
// the latest one begun commits.
type Session struct {
	opt Options
}

func New(opt Options) *Session {
	if opt.Client == nil {
		opt.Client = httpclient.NewClient(60 * time.Second)
	}
	if opt.Store == nil {
		opt.Store = state.NewStore()
	}
	if opt.NewRequester == nil {
		client, headers, tp := opt.Client, opt.Headers, opt.Tracing
		opt.NewRequester = func(spec benchmark.Spec) (runner.Requester, error) {
			var reqOpts []httpclient.RequesterOption
			if tp != nil {
				reqOpts = append(reqOpts, httpclient.WithTracing(tp))
			}
			return httpclient.NewBenchmarkRequester(client, spec, headers, reqOpts...)
		}
	}
	return &Session{opt: opt}
}

// Store exposes the display state the session commits to.
func (s *Session) Store() *state.Store {
	return s.opt.Store
}

// Run executes spec to completion. The error is non-nil only when the spec
// is invalid; request failures are reported through Stats.ErrorCount.
func (s *Session) Run(ctx context.Context, spec benchmark.Spec) (Outcome, error) {
	if err := spec.Validate(); err != nil {
		return Outcome{}, err
	}
	base, _ := benchmark.NormalizeBaseURL(spec.BaseURL)
	spec.BaseURL = base

	requester, err := s.opt.NewRequester(spec)
	if err != nil {
		return Outcome{}, err
	}
	requester = runner.WithRetry(requester, s.opt.Retry)
	requester = runner.WithLogging(requester, s.opt.FailureLogger)

	runID, label := s.opt.Store.Begin(spec)

	ctx, span := tracing.StartRunSpan(ctx, s.opt.Tracing.Tracer(), runID, label, spec.Concurrency, spec.WorkUnits)

	collector := metrics.NewCollector()
	if s.opt.OnStart != nil {
		s.opt.OnStart(runID, collector)
	}
	collector.Start()

	res := runner.New(runner.Options{
		Requests:      spec.Concurrency,
		MaxInFlight:   s.opt.MaxInFlight,
		RatePerSecond: s.opt.RatePerSecond,
		Timeout:       s.opt.RunTimeout,
		Requester:     requester,
		Recorder:      collector,
	}).Run(ctx)

	stats := collector.Stats(spec.Concurrency, res.Duration)
	results := collector.Results()
	committed := s.opt.Store.Commit(runID, stats, results)

	tracing.EndSpan(span, nil,
		attribute.Int("benchboard.success_count", stats.SuccessCount),
		attribute.Int("benchboard.error_count", stats.ErrorCount),
		attribute.Bool("benchboard.committed", committed),
	)

	return Outcome{
		RunID:     runID,
		Label:     label,
		Spec:      spec,
		Stats:     stats,
		Results:   results,
		Committed: committed,
	}, nil
}
