package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/benchboard/internal/benchmark"
)

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"status":"ok","service":"bench","cpu_load":12.5,"memory_usage":40,"active_users":3,"requests_per_sec":100.5,"db_ops_per_sec":7}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", snap.Status)
	assert.Equal(t, "bench", snap.Service)
	assert.Equal(t, 12.5, snap.CPULoad)
	assert.Equal(t, 40.0, snap.MemoryUsage)
	assert.Equal(t, int64(3), snap.ActiveUsers)
	assert.Equal(t, 100.5, snap.RequestsPerSec)
	assert.Equal(t, 7.0, snap.DBOpsPerSec)
}

func TestParseSnapshotMissingFieldsAreZero(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"status":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", snap.Status)
	assert.Zero(t, snap.CPULoad)
	assert.Zero(t, snap.ActiveUsers)
}

func TestParseSnapshotInvalidJSON(t *testing.T) {
	_, err := ParseSnapshot([]byte(`not json`))
	var perr *benchmark.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status":"healthy","cpu_load":55}`))
	}))
	defer server.Close()

	c, err := NewClient(server.Client(), server.URL+"/", nil)
	require.NoError(t, err)
	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", snap.Status)
	assert.Equal(t, 55.0, snap.CPULoad)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestClientFetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := NewClient(server.Client(), server.URL, nil)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background())
	var serr *benchmark.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
}

func TestNewClientRejectsBadInput(t *testing.T) {
	_, err := NewClient(nil, "http://x", nil)
	assert.Error(t, err)
	_, err = NewClient(http.DefaultClient, "", nil)
	assert.Error(t, err)
}

type fetchFunc func(ctx context.Context) (Snapshot, error)

func (f fetchFunc) Fetch(ctx context.Context) (Snapshot, error) { return f(ctx) }

func TestPollerFetchesImmediately(t *testing.T) {
	got := make(chan Update, 1)
	p := NewPoller(fetchFunc(func(context.Context) (Snapshot, error) {
		return Snapshot{Status: "ok"}, nil
	}), time.Hour, func(u Update) { got <- u })

	p.Start(context.Background())
	defer p.Stop()

	select {
	case u := <-got:
		assert.NoError(t, u.Err)
		assert.Equal(t, "ok", u.Snapshot.Status)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate fetch")
	}
	latest, ok := p.Latest()
	assert.True(t, ok)
	assert.Equal(t, "ok", latest.Snapshot.Status)
}

func TestPollerKeepsLastGoodSnapshotOnError(t *testing.T) {
	var calls int64
	var mu sync.Mutex
	var updates []Update
	p := NewPoller(fetchFunc(func(context.Context) (Snapshot, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return Snapshot{Status: "ok", CPULoad: 10}, nil
		}
		return Snapshot{}, errors.New("refused")
	}), 5*time.Millisecond, func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) >= 2 }, time.Second, time.Millisecond)
	p.Stop()

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Error(t, latest.Err)
	assert.Equal(t, 10.0, latest.Snapshot.CPULoad)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(updates), 2)
	assert.NoError(t, updates[0].Err)
}

func TestPollerStopWaitsAndIsIdempotent(t *testing.T) {
	var calls int64
	p := NewPoller(fetchFunc(func(ctx context.Context) (Snapshot, error) {
		atomic.AddInt64(&calls, 1)
		return Snapshot{}, nil
	}), time.Millisecond, nil)

	p.Stop() // never started
	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) > 0 }, time.Second, time.Millisecond)
	p.Stop()
	p.Stop()

	after := atomic.LoadInt64(&calls)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&calls), "no fetches after Stop")
}

func TestPollerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(fetchFunc(func(context.Context) (Snapshot, error) { return Snapshot{}, nil }), time.Millisecond, nil)
	p.Start(ctx)
	cancel()
	select {
	case <-p.finished:
	case <-time.After(time.Second):
		t.Fatal("poller did not exit on context cancel")
	}
	p.Stop()
}

func TestLocalSamplerReportsHost(t *testing.T) {
	s := NewLocalSampler(0)
	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Positive(t, sample.NumCPU)
	assert.Positive(t, sample.Goroutines)
	assert.GreaterOrEqual(t, sample.MemoryPercent, 0.0)

	snap, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", snap.Status)
}

func TestLocalSamplerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalSampler(0).Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
