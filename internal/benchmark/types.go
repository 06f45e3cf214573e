// Package benchmark holds the domain types shared by the runner, the metrics
// aggregation and the display layers.
package benchmark

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BenchmarkPath is the server route that performs one unit of benchmark work.
const BenchmarkPath = "/benchmark"

// Spec describes one benchmark run. It is treated as immutable once a run starts.
type Spec struct {
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	WorkUnits   int    `json:"work_units" yaml:"work_units"`
	BaseURL     string `json:"base_url" yaml:"base_url"`
}

// Result is a single successful benchmark response.
type Result struct {
	DurationMs  float64 `json:"duration_ms" yaml:"duration_ms"`
	WorkUnits   int64   `json:"work_units" yaml:"work_units"`
	ResultValue float64 `json:"result_value" yaml:"result_value"`
	Throughput  float64 `json:"throughput" yaml:"throughput"`
	ServerPID   int     `json:"server_pid,omitempty" yaml:"server_pid,omitempty"`
	Status      string  `json:"status,omitempty" yaml:"status,omitempty"`

	// RoundTrip is the latency observed by the client, including network time.
	RoundTrip time.Duration `json:"-" yaml:"-"`
}

// Validate reports the first problem with the spec.
func (s Spec) Validate() error {
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", s.Concurrency)
	}
	if s.WorkUnits < 1 {
		return fmt.Errorf("work units must be >= 1, got %d", s.WorkUnits)
	}
	_, err := NormalizeBaseURL(s.BaseURL)
	return err
}

// Endpoint returns the fully qualified benchmark URL for the spec.
func (s Spec) Endpoint() (string, error) {
	base, err := NormalizeBaseURL(s.BaseURL)
	if err != nil {
		return "", err
	}
	return base + BenchmarkPath + "?work=" + strconv.Itoa(s.WorkUnits), nil
}

// JoinPath appends path to a normalized base URL.
func JoinPath(baseURL, path string) (string, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	if path == "" || path == "/" {
		return base + "/", nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}

// NormalizeBaseURL trims whitespace and trailing slashes and checks that the
// result is an absolute http(s) URL.
func NormalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", errors.New("base URL is required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL %q has no host", raw)
	}
	return trimmed, nil
}
