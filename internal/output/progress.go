package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/benchboard/internal/metrics"
)

// ProgressReporter prints a live progress line for one run.
type ProgressReporter struct {
	collector *metrics.Collector
	total     int
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a reporter that redraws at the given interval.
func NewProgressReporter(collector *metrics.Collector, total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{
		collector: collector,
		total:     total,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts updates, draws the final line and ends it with a newline.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprint(p.writer, p.line(), "\n")
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	return FormatProgress(p.collector.Snapshot(), p.total)
}

// FormatProgress renders a snapshot as a carriage-return progress line.
func FormatProgress(s metrics.Snapshot, total int) string {
	rps := 0.0
	if s.Elapsed > 0 {
		rps = float64(s.Completed) / s.Elapsed.Seconds()
	}
	return fmt.Sprintf("\rSettled: %d/%d | Successes: %d | Failures: %d | RPS: %.1f",
		s.Completed, total, s.Successes, s.Failures, rps)
}
