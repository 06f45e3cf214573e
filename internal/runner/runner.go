package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/torosent/benchboard/internal/benchmark"
)

// Outcome is the settled state of one request slot.
type Outcome struct {
	Slot    int
	Result  benchmark.Result
	Err     error
	Latency time.Duration
}

// Result captures execution summary. Outcomes are in settlement order and
// always hold exactly Total entries.
type Result struct {
	Total     int64
	Successes int64
	Errors    int64
	Duration  time.Duration
	Outcomes  []Outcome
}

// Runner fans out a fixed number of requests and waits for all of them.
type Runner struct {
	opt   Options
	pacer *launchPacer

	// settleMu keeps the recorder and Outcomes in the same order.
	settleMu sync.Mutex
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, pacer: newLaunchPacer(opt)}
}

// Run issues every slot and returns once each has settled. A failing slot
// never stops the others. Slots that could not be launched before ctx ended
// settle with benchmark.ErrAborted.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	total := r.opt.Requests

	if r.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opt.Timeout)
		defer cancel()
	}

	settled := make(chan Outcome, total)
	settle := func(out Outcome) {
		r.settleMu.Lock()
		defer r.settleMu.Unlock()
		if r.opt.Recorder != nil {
			r.opt.Recorder.RecordRequest(out.Latency, out.Result, out.Err)
		}
		settled <- out
	}
	var g errgroup.Group
	if r.opt.MaxInFlight > 0 {
		g.SetLimit(r.opt.MaxInFlight)
	}

	for slot := 0; slot < total; slot++ {
		if err := r.pacer.Wait(ctx); err != nil {
			for rest := slot; rest < total; rest++ {
				settle(Outcome{Slot: rest, Err: fmt.Errorf("%w: %v", benchmark.ErrAborted, err)})
			}
			break
		}
		slot := slot
		g.Go(func() error {
			settle(r.execute(ctx, slot))
			return nil
		})
	}
	_ = g.Wait()
	close(settled)

	res := Result{
		Total:    int64(total),
		Outcomes: make([]Outcome, 0, total),
	}
	for out := range settled {
		if out.Err != nil {
			res.Errors++
		} else {
			res.Successes++
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) execute(ctx context.Context, slot int) (out Outcome) {
	out.Slot = slot
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Result = benchmark.Result{}
			out.Err = fmt.Errorf("requester panic: %v", p)
		}
		out.Latency = time.Since(start)
	}()

	if r.opt.Requester == nil {
		out.Err = fmt.Errorf("requester is not configured")
		return out
	}
	out.Result, out.Err = r.opt.Requester.Do(ctx)
	if out.Err != nil {
		out.Result = benchmark.Result{}
	}
	return out
}
