// Package state holds the display state of the most recently initiated
// benchmark run.
package state

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/metrics"
)

// Phase is the lifecycle position of the displayed run.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseSettled  Phase = "settled"
	PhaseIdleData Phase = "idle-with-data"
)

// RunState is what a display renders. Readers always get a private copy.
type RunState struct {
	RunID     uint64
	Label     string
	Spec      benchmark.Spec
	Phase     Phase
	Loading   bool
	Stats     metrics.Stats
	Results   []benchmark.Result
	StartedAt time.Time
	SettledAt time.Time
}

// Store is the single writer-guarded RunState. Begin and Commit are the only
// transitions; a run may commit only while it is still the latest one begun.
type Store struct {
	mu      sync.Mutex
	latest  uint64
	current RunState
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	subs    map[int]chan RunState
	nextSub int
}

func NewStore() *Store {
	return &Store{
		current: RunState{Phase: PhaseIdle},
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		subs:    make(map[int]chan RunState),
	}
}

// Begin starts a new run, clearing prior stats and results, and returns its
// ID and a sortable label. Any run begun earlier becomes stale.
func (s *Store) Begin(spec benchmark.Spec) (uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest++
	now := s.now()
	label := ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
	s.current = RunState{
		RunID:     s.latest,
		Label:     label,
		Spec:      spec,
		Phase:     PhaseRunning,
		Loading:   true,
		StartedAt: now,
	}
	s.publishLocked()
	return s.latest, label
}

// Commit replaces stats and results wholesale. It returns false and changes
// nothing when id is not the latest run.
func (s *Store) Commit(id uint64, stats metrics.Stats, results []benchmark.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.latest || s.current.Phase != PhaseRunning {
		return false
	}
	s.current.Phase = PhaseSettled
	s.current.Loading = false
	s.current.Stats = copyStats(stats)
	s.current.Results = append([]benchmark.Result(nil), results...)
	s.current.SettledAt = s.now()
	s.publishLocked()

	s.current.Phase = PhaseIdleData
	return true
}

// Latest returns the ID of the most recently begun run, or 0.
func (s *Store) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.current)
}

// Subscribe returns a channel that receives a copy of the state after every
// transition. Slow subscribers miss intermediate states rather than block
// writers. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan RunState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan RunState, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publishLocked() {
	for _, ch := range s.subs {
		snap := cloneState(s.current)
		select {
		case ch <- snap:
		default:
			// Drop the stale pending value so the newest state wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func cloneState(st RunState) RunState {
	st.Stats = copyStats(st.Stats)
	if st.Results != nil {
		st.Results = append([]benchmark.Result(nil), st.Results...)
	}
	return st
}

func copyStats(stats metrics.Stats) metrics.Stats {
	if stats.StatusBuckets == nil {
		return stats
	}
	buckets := make(map[string]map[string]int, len(stats.StatusBuckets))
	for kind, codes := range stats.StatusBuckets {
		copied := make(map[string]int, len(codes))
		for code, n := range codes {
			copied[code] = n
		}
		buckets[kind] = copied
	}
	stats.StatusBuckets = buckets
	return stats
}
