package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher returns one health reading.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Update is delivered to the poller callback after every fetch.
type Update struct {
	Snapshot Snapshot
	Err      error
}

// Poller fetches health on a fixed interval until stopped. The first fetch
// happens immediately on Start.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	onUpdate func(Update)

	mu     sync.RWMutex
	latest Update
	seen   bool

	active   int32
	cancel   context.CancelFunc
	finished chan struct{}
}

func NewPoller(fetcher Fetcher, interval time.Duration, onUpdate func(Update)) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		onUpdate: onUpdate,
		finished: make(chan struct{}),
	}
}

// Start begins polling in a background goroutine. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop halts polling and waits for an in-flight fetch to return.
func (p *Poller) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 2) {
		p.cancel()
		<-p.finished
	}
}

// Latest returns the most recent update and whether any fetch has completed.
func (p *Poller) Latest() (Update, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.seen
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.interval)
	snap, err := p.fetcher.Fetch(fetchCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	u := Update{Snapshot: snap, Err: err}
	p.mu.Lock()
	if err == nil {
		p.latest = u
	} else {
		// Keep the last good reading visible alongside the error.
		p.latest = Update{Snapshot: p.latest.Snapshot, Err: err}
	}
	p.seen = true
	current := p.latest
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(current)
	}
}
