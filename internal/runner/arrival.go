package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// launchPacer spaces out request launches. A nil pacer launches immediately.
type launchPacer struct {
	limiter *rate.Limiter
}

func newLaunchPacer(opt Options) *launchPacer {
	if opt.RatePerSecond <= 0 {
		return nil
	}
	return &launchPacer{limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

func (p *launchPacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
