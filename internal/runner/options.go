package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/benchboard/internal/benchmark"
)

// Requester performs one benchmark request.
type Requester interface {
	Do(ctx context.Context) (benchmark.Result, error)
}

// RequesterFunc adapts a plain function to Requester.
type RequesterFunc func(ctx context.Context) (benchmark.Result, error)

func (f RequesterFunc) Do(ctx context.Context) (benchmark.Result, error) { return f(ctx) }

// Recorder receives every settled slot exactly once. *metrics.Collector
// satisfies it.
type Recorder interface {
	RecordRequest(latency time.Duration, res benchmark.Result, err error)
}

// Options configure the Runner.
type Options struct {
	Requests       int                         // number of parallel requests to issue
	MaxInFlight    int                         // cap on outstanding requests (0 means all at once)
	RatePerSecond  int                         // launch pacing (0 means unpaced)
	Timeout        time.Duration               // ceiling for the whole run (0 means none)
	Requester      Requester                   // request executor (required)
	Recorder       Recorder                    // optional sink for settled slots
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Requests <= 0 {
		o.Requests = 1
	}
	if o.MaxInFlight < 0 {
		o.MaxInFlight = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one spreads launches evenly instead of front-loading them.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
