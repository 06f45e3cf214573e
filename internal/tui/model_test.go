package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/probe"
	"github.com/torosent/benchboard/internal/session"
)

type fakeRunner struct {
	mu    sync.Mutex
	specs []benchmark.Spec
}

func (f *fakeRunner) Run(ctx context.Context, spec benchmark.Spec) (session.Outcome, error) {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	id := uint64(len(f.specs))
	f.mu.Unlock()
	return session.Outcome{
		RunID:     id,
		Spec:      spec,
		Committed: true,
		Stats:     metrics.Stats{TotalRequests: spec.Concurrency, SuccessCount: spec.Concurrency, AvgDurationMs: 100},
	}, nil
}

type fakeProber struct{}

func (fakeProber) RunAll(ctx context.Context, endpoints []probe.Endpoint) []probe.Response {
	out := make([]probe.Response, len(endpoints))
	for i, ep := range endpoints {
		out[i] = probe.Response{Endpoint: ep}
	}
	out[0].Err = &probe.CallError{Label: endpoints[0].Label, Err: errors.New("down")}
	return out
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testPresets() []config.Preset {
	return []config.Preset{
		{Name: "light", Concurrency: 5, WorkUnits: 100},
		{Name: "heavy", Concurrency: 20, WorkUnits: 1000},
	}
}

func TestPresetKeyStartsRun(t *testing.T) {
	runner := &fakeRunner{}
	m := New(context.Background(), "http://bench.local", testPresets(), runner, nil)

	next, cmd := m.Update(key("2"))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.Loading())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.Loading())
	require.NotNil(t, m.last)
	assert.Equal(t, benchmark.Spec{Concurrency: 20, WorkUnits: 1000, BaseURL: "http://bench.local"}, runner.specs[0])
	assert.Contains(t, m.View(), "Avg 100ms")
}

func TestUnknownPresetKeyIsIgnored(t *testing.T) {
	m := New(context.Background(), "http://x", testPresets(), &fakeRunner{}, nil)
	next, cmd := m.Update(key("7"))
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).Loading())
}

func TestStaleOutcomeDoesNotReplaceDisplay(t *testing.T) {
	m := New(context.Background(), "http://x", testPresets(), &fakeRunner{}, nil)
	m.inFlight = 2

	next, _ := m.Update(runDoneMsg{outcome: session.Outcome{RunID: 2, Committed: true}})
	m = next.(Model)
	next, _ = m.Update(runDoneMsg{outcome: session.Outcome{RunID: 1, Committed: false}})
	m = next.(Model)

	require.NotNil(t, m.last)
	assert.Equal(t, uint64(2), m.last.RunID)
	assert.False(t, m.Loading())
}

func TestRunErrorIsShown(t *testing.T) {
	m := New(context.Background(), "http://x", testPresets(), &fakeRunner{}, nil)
	m.inFlight = 1
	next, _ := m.Update(runDoneMsg{err: errors.New("base URL is required")})
	assert.Contains(t, next.(Model).View(), "Error: base URL is required")
}

func TestRunAllProbes(t *testing.T) {
	m := New(context.Background(), "http://x", testPresets(), nil, fakeProber{})
	next, cmd := m.Update(key("a"))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.probing)

	// A second press while probing is ignored.
	_, again := m.Update(key("a"))
	assert.Nil(t, again)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.probing)
	require.Len(t, m.responses, len(probe.RunAllSet()))
	assert.Contains(t, m.View(), "Failed to call CPU Benchmark")
}

func TestQuit(t *testing.T) {
	m := New(context.Background(), "http://x", testPresets(), nil, nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestPresetIndex(t *testing.T) {
	for k, want := range map[string]int{"1": 0, "9": 8} {
		got, ok := presetIndex(k)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	for _, k := range []string{"0", "a", "10", ""} {
		_, ok := presetIndex(k)
		assert.False(t, ok, k)
	}
}

func TestViewListsPresets(t *testing.T) {
	view := New(context.Background(), "http://bench.local", testPresets(), nil, nil).View()
	assert.True(t, strings.Contains(view, "light") && strings.Contains(view, "heavy"))
	assert.Contains(t, view, "http://bench.local")
}
