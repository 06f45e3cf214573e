// Package health reads the benchmark server's live load snapshot and polls
// it on a fixed interval for the dashboard views.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/extractor"
	"github.com/torosent/benchboard/internal/httpclient"
)

// Snapshot is one reading of GET {base}/.
type Snapshot struct {
	Status         string    `json:"status" yaml:"status"`
	Service        string    `json:"service,omitempty" yaml:"service,omitempty"`
	CPULoad        float64   `json:"cpu_load" yaml:"cpu_load"`
	MemoryUsage    float64   `json:"memory_usage" yaml:"memory_usage"`
	ActiveUsers    int64     `json:"active_users" yaml:"active_users"`
	RequestsPerSec float64   `json:"requests_per_sec" yaml:"requests_per_sec"`
	DBOpsPerSec    float64   `json:"db_ops_per_sec" yaml:"db_ops_per_sec"`
	FetchedAt      time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// ParseSnapshot decodes a health body. Missing metrics read as zero; only
// invalid JSON is an error.
func ParseSnapshot(body []byte) (Snapshot, error) {
	doc, err := extractor.Parse(body)
	if err != nil {
		return Snapshot{}, &benchmark.ParseError{Reason: "health body is not valid JSON", Err: err}
	}
	var s Snapshot
	s.Status, _ = doc.String("status")
	s.Service, _ = doc.String("service")
	s.CPULoad, _ = doc.Number("cpu_load", "cpu_percent")
	s.MemoryUsage, _ = doc.Number("memory_usage", "memory_percent")
	s.ActiveUsers, _ = doc.Int("active_users")
	s.RequestsPerSec, _ = doc.Number("requests_per_sec", "requests_per_second")
	s.DBOpsPerSec, _ = doc.Number("db_ops_per_sec")
	return s, nil
}

// Client fetches health snapshots from one server.
type Client struct {
	http    *http.Client
	builder *httpclient.RequestBuilder
	now     func() time.Time
}

func NewClient(client *http.Client, baseURL string, headers map[string]string) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	target, err := benchmark.JoinPath(baseURL, "/")
	if err != nil {
		return nil, err
	}
	builder, err := httpclient.NewRequestBuilder(http.MethodGet, target, headers)
	if err != nil {
		return nil, err
	}
	return &Client{http: client, builder: builder, now: time.Now}, nil
}

// Fetch performs one health request.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	req, err := c.builder.Build(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, &benchmark.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := httpclient.ReadBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &benchmark.StatusError{StatusCode: resp.StatusCode, Body: httpclient.Snippet(body)}
	}
	if err != nil {
		return Snapshot{}, &benchmark.TransportError{Err: err}
	}
	snap, err := ParseSnapshot(body)
	if err != nil {
		return Snapshot{}, err
	}
	snap.FetchedAt = c.now()
	return snap, nil
}
