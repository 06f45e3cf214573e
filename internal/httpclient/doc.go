// Package httpclient talks HTTP to the benchmark server.
//
// [NewClient] returns a client with a pooled transport sized for many
// parallel requests to a single host. [NewRequestBuilder] validates headers
// once and then produces identical requests:
//
//	builder, err := httpclient.NewRequestBuilder(http.MethodPost, target, cfg.Headers)
//	req, err := builder.Build(ctx)
//
// [BenchmarkRequester] is the unit of work the runner fans out. Each call
// issues GET {base}/benchmark?work=N and decodes the JSON body with
// [DecodeResult]. Failures are returned as typed errors from the benchmark
// package so the collector can group them:
//   - [benchmark.TransportError] when no response arrived
//   - [benchmark.StatusError] for non-2xx responses
//   - [benchmark.ParseError] when the body is not a valid result
package httpclient
