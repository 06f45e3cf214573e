package httpclient

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/tracing"
)

// BenchmarkRequester issues one GET /benchmark?work=N per call and decodes
// the response into a benchmark.Result.
type BenchmarkRequester struct {
	client    *http.Client
	builder   *RequestBuilder
	workUnits int
	tracer    trace.Tracer
	propagate bool
}

// RequesterOption customizes a BenchmarkRequester.
type RequesterOption func(*BenchmarkRequester)

// WithTracing starts a client span per request and optionally injects W3C
// trace headers.
func WithTracing(p *tracing.Provider) RequesterOption {
	return func(r *BenchmarkRequester) {
		r.tracer = p.Tracer()
		r.propagate = p.ShouldPropagate()
	}
}

// NewBenchmarkRequester builds a requester for spec.
func NewBenchmarkRequester(client *http.Client, spec benchmark.Spec, headers map[string]string, opts ...RequesterOption) (*BenchmarkRequester, error) {
	if client == nil {
		return nil, errors.New("http client cannot be nil")
	}
	endpoint, err := spec.Endpoint()
	if err != nil {
		return nil, err
	}
	builder, err := NewRequestBuilder(http.MethodGet, endpoint, headers)
	if err != nil {
		return nil, err
	}
	r := &BenchmarkRequester{
		client:    client,
		builder:   builder,
		workUnits: spec.WorkUnits,
		tracer:    noop.NewTracerProvider().Tracer("benchboard"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do performs a single benchmark request.
func (r *BenchmarkRequester) Do(ctx context.Context) (res benchmark.Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartRequestSpan(ctx, r.tracer, "http", benchmark.BenchmarkPath)
	defer func() {
		attrs := []attribute.KeyValue{attribute.Int("benchboard.work_units", r.workUnits)}
		if err == nil {
			attrs = append(attrs, attribute.Float64("benchboard.duration_ms", res.DurationMs))
		}
		tracing.EndSpan(span, err, attrs...)
	}()

	req, err := r.builder.Build(ctx)
	if err != nil {
		return benchmark.Result{}, err
	}
	if r.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return benchmark.Result{}, &benchmark.TransportError{Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, readErr := ReadBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return benchmark.Result{}, &benchmark.StatusError{
			StatusCode: resp.StatusCode,
			Body:       Snippet(body),
		}
	}
	if readErr != nil {
		return benchmark.Result{}, &benchmark.TransportError{Err: readErr}
	}
	return DecodeResult(body, r.workUnits)
}
