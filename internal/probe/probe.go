// Package probe calls the server's single-shot benchmark endpoints one at a
// time or all together.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/extractor"
	"github.com/torosent/benchboard/internal/httpclient"
)

// Endpoint is one probe target.
type Endpoint struct {
	Label string
	Path  string
}

var (
	Health           = Endpoint{Label: "Health", Path: "/"}
	CPUBenchmark     = Endpoint{Label: "CPU Benchmark", Path: "/cpu-benchmark"}
	MemoryBenchmark  = Endpoint{Label: "Memory Benchmark", Path: "/memory-benchmark"}
	DBBenchmark      = Endpoint{Label: "DB Benchmark", Path: "/db-benchmark"}
	MixedBenchmark   = Endpoint{Label: "Mixed Benchmark", Path: "/mixed-benchmark"}
	ConcurrencyCheck = Endpoint{Label: "Concurrency Check", Path: "/concurrency-check"}
)

// Endpoints lists every probe, Health first.
func Endpoints() []Endpoint {
	return []Endpoint{Health, CPUBenchmark, MemoryBenchmark, DBBenchmark, MixedBenchmark, ConcurrencyCheck}
}

// RunAllSet is the set "run all" calls; it excludes Health.
func RunAllSet() []Endpoint {
	return []Endpoint{CPUBenchmark, DBBenchmark, MemoryBenchmark, MixedBenchmark, ConcurrencyCheck}
}

// Lookup finds an endpoint by label, path, or path without the leading slash.
func Lookup(name string) (Endpoint, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, ep := range Endpoints() {
		if key == strings.ToLower(ep.Label) || key == ep.Path || "/"+key == ep.Path {
			return ep, true
		}
	}
	if key == "health" {
		return Health, true
	}
	return Endpoint{}, false
}

// CallError is the single user-facing failure message for a probe.
type CallError struct {
	Label string
	Err   error
}

func (e *CallError) Error() string { return "Failed to call " + e.Label }

func (e *CallError) Unwrap() error { return e.Err }

// Response is the outcome of one probe call.
type Response struct {
	Endpoint Endpoint
	Body     json.RawMessage
	Latency  time.Duration
	Err      error
}

// Prober issues probe calls against one server.
type Prober struct {
	http    *http.Client
	baseURL string
	headers map[string]string
}

func New(client *http.Client, baseURL string, headers map[string]string) (*Prober, error) {
	if client == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	base, err := benchmark.NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Prober{http: client, baseURL: base, headers: headers}, nil
}

// Call performs one GET. Any failure is returned as a *CallError wrapping the
// transport, status or parse error.
func (p *Prober) Call(ctx context.Context, ep Endpoint) Response {
	start := time.Now()
	body, err := p.fetch(ctx, ep)
	resp := Response{Endpoint: ep, Latency: time.Since(start)}
	if err != nil {
		resp.Err = &CallError{Label: ep.Label, Err: err}
		return resp
	}
	resp.Body = body
	return resp
}

func (p *Prober) fetch(ctx context.Context, ep Endpoint) (json.RawMessage, error) {
	target, err := benchmark.JoinPath(p.baseURL, ep.Path)
	if err != nil {
		return nil, err
	}
	builder, err := httpclient.NewRequestBuilder(http.MethodGet, target, p.headers)
	if err != nil {
		return nil, err
	}
	req, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, &benchmark.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := httpclient.ReadBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &benchmark.StatusError{StatusCode: resp.StatusCode, Body: httpclient.Snippet(body)}
	}
	if readErr != nil {
		return nil, &benchmark.TransportError{Err: readErr}
	}
	if _, err := extractor.Parse(body); err != nil {
		return nil, &benchmark.ParseError{Reason: "body is not valid JSON", Err: err}
	}
	return json.RawMessage(body), nil
}

// RunAll calls every endpoint concurrently and returns responses in the order
// given. A failing probe never cancels the others.
func (p *Prober) RunAll(ctx context.Context, endpoints []Endpoint) []Response {
	out := make([]Response, len(endpoints))
	var g errgroup.Group
	for i, ep := range endpoints {
		i, ep := i, ep
		g.Go(func() error {
			out[i] = p.Call(ctx, ep)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
