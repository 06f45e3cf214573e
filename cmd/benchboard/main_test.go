package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/control"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"too many requests", &benchmark.StatusError{StatusCode: 429}, true},
		{"server error", &benchmark.StatusError{StatusCode: 503}, true},
		{"not found", &benchmark.StatusError{StatusCode: 404}, false},
		{"bad body", &benchmark.ParseError{Reason: "missing numeric duration_ms"}, false},
		{"transport", &benchmark.TransportError{Err: errors.New("connection refused")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	policy := newRetryPolicy(3)
	if policy.MaxAttempts != 4 {
		t.Fatalf("MaxAttempts = %d, want 4", policy.MaxAttempts)
	}
	for attempt := 0; attempt < 12; attempt++ {
		d := policy.DelayFunc(attempt, nil)
		if d < baseRetryDelay {
			t.Errorf("attempt %d: delay %s below base %s", attempt, d, baseRetryDelay)
		}
		if d >= maxRetryDelay+maxRetryDelay/2 {
			t.Errorf("attempt %d: delay %s exceeds cap", attempt, d)
		}
	}
	if d := policy.DelayFunc(2, nil); d < 2*baseRetryDelay || d >= 3*baseRetryDelay {
		t.Errorf("attempt 2 delay = %s, want [%s, %s)", d, 2*baseRetryDelay, 3*baseRetryDelay)
	}
}

func TestJitterSource(t *testing.T) {
	var nilSource *jitterSource
	if got := nilSource.jitter(time.Second); got != 0 {
		t.Errorf("nil source jitter = %s, want 0", got)
	}
	src := &jitterSource{rnd: rand.New(rand.NewSource(1))}
	if got := src.jitter(0); got != 0 {
		t.Errorf("jitter(0) = %s, want 0", got)
	}
	for i := 0; i < 100; i++ {
		if got := src.jitter(10 * time.Millisecond); got < 0 || got >= 10*time.Millisecond {
			t.Fatalf("jitter out of range: %s", got)
		}
	}
}

func TestStderrFailureLoggerIgnoresNil(t *testing.T) {
	l := &stderrFailureLogger{}
	l.LogFailure(nil)
	l.LogControlFailure(control.ActionCPU, nil)
}

func TestSelectProbes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		all     bool
		want    []string
		wantErr bool
	}{
		{"default is health", nil, false, []string{"Health"}, false},
		{"all", nil, true, []string{"CPU Benchmark", "DB Benchmark", "Memory Benchmark", "Mixed Benchmark", "Concurrency Check"}, false},
		{"named", []string{"cpu-benchmark", "/concurrency-check"}, false, []string{"CPU Benchmark", "Concurrency Check"}, false},
		{"unknown", []string{"nope"}, false, nil, true},
		{"all with names", []string{"health"}, true, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectProbes(tt.args, tt.all)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("selectProbes() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d endpoints, want %d", len(got), len(tt.want))
			}
			for i, ep := range got {
				if ep.Label != tt.want[i] {
					t.Errorf("endpoint[%d] = %q, want %q", i, ep.Label, tt.want[i])
				}
			}
		})
	}
}
