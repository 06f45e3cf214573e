package httpclient

import (
	"io"
	"strings"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/extractor"
)

const (
	maxBodyReadSize    = 1024 * 1024
	maxLoggedBodyBytes = 1024
)

// ReadBody reads at most maxBodyReadSize bytes of a response body.
func ReadBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodyReadSize))
}

// Snippet trims a body for inclusion in error messages.
func Snippet(body []byte) string {
	if len(body) > maxLoggedBodyBytes {
		body = body[:maxLoggedBodyBytes]
	}
	return strings.TrimSpace(string(body))
}

// DecodeResult parses a benchmark response body. duration_ms and throughput
// must be JSON numbers; the workload and result fields fall back through the
// names older servers use. requestedWork fills in a missing workload.
func DecodeResult(body []byte, requestedWork int) (benchmark.Result, error) {
	doc, err := extractor.Parse(body)
	if err != nil {
		return benchmark.Result{}, &benchmark.ParseError{Reason: "body is not valid JSON", Err: err}
	}

	duration, ok := doc.Number("duration_ms")
	if !ok {
		return benchmark.Result{}, &benchmark.ParseError{Reason: "missing numeric duration_ms"}
	}
	if duration < 0 {
		return benchmark.Result{}, &benchmark.ParseError{Reason: "negative duration_ms"}
	}
	throughput, ok := doc.Number("throughput")
	if !ok {
		return benchmark.Result{}, &benchmark.ParseError{Reason: "missing numeric throughput"}
	}

	res := benchmark.Result{
		DurationMs: duration,
		Throughput: throughput,
		WorkUnits:  int64(requestedWork),
	}
	if work, ok := doc.Int("work_units", "iterations"); ok {
		res.WorkUnits = work
	}
	if value, ok := doc.Number("result", "result_hash"); ok {
		res.ResultValue = value
	}
	if pid, ok := doc.Int("server_pid", "pid"); ok {
		res.ServerPID = int(pid)
	}
	if status, ok := doc.String("status"); ok {
		res.Status = status
	}
	return res, nil
}
