package benchmark

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// FailureKind groups request failures for reporting. All kinds count the same
// toward the error total.
type FailureKind string

const (
	FailureTransport  FailureKind = "transport"
	FailureTimeout    FailureKind = "timeout"
	FailureAborted    FailureKind = "aborted"
	FailureHTTPStatus FailureKind = "http_status"
	FailureParse      FailureKind = "parse"
	FailureUnknown    FailureKind = "unknown"
)

// Label returns a human-friendly name for the kind.
func (k FailureKind) Label() string {
	switch k {
	case FailureTransport:
		return "Transport failure"
	case FailureTimeout:
		return "Timeout"
	case FailureAborted:
		return "Aborted"
	case FailureHTTPStatus:
		return "HTTP error response"
	case FailureParse:
		return "Malformed response"
	default:
		return "Unknown error"
	}
}

// TransportError wraps network level failures (dial, DNS, reset, abort).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError represents a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse response: %s: %v", e.Reason, e.Err)
	}
	return "parse response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrAborted marks a request slot that was never issued because the run was
// cancelled first.
var ErrAborted = errors.New("request aborted before launch")

// Classify maps an error to its FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAborted) {
		return FailureAborted
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return FailureHTTPStatus
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return FailureParse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureAborted
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return FailureTransport
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return FailureTransport
	}
	return FailureUnknown
}
