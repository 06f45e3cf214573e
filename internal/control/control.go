// Package control posts to the server's load simulation endpoints.
package control

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/httpclient"
)

// Action names a control endpoint.
type Action string

const (
	ActionCPU   Action = "cpu"
	ActionIO    Action = "io"
	ActionUsers Action = "users"
	ActionReset Action = "reset"
)

var actionPaths = map[Action]string{
	ActionCPU:   "/simulate-cpu",
	ActionIO:    "/simulate-io",
	ActionUsers: "/simulate-users",
	ActionReset: "/reset",
}

// Actions lists the known actions in a stable order.
func Actions() []Action {
	out := make([]Action, 0, len(actionPaths))
	for a := range actionPaths {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseAction accepts an action name or its endpoint path.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, path := range actionPaths {
		if s == string(a) || s == path || "/"+s == path {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown control action %q", s)
}

// Path returns the endpoint path for a.
func (a Action) Path() (string, error) {
	p, ok := actionPaths[a]
	if !ok {
		return "", fmt.Errorf("unknown control action %q", string(a))
	}
	return p, nil
}

// Logger receives failures from fire-and-forget sends.
type Logger interface {
	LogControlFailure(action Action, err error)
}

// Client sends control requests to one server.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
	logger  Logger
}

func NewClient(client *http.Client, baseURL string, headers map[string]string, logger Logger) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	base, err := benchmark.NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{http: client, baseURL: base, headers: headers, logger: logger}, nil
}

// Send posts one action and waits for the response. The body is drained and
// discarded; only transport failures and non-2xx statuses are errors.
func (c *Client) Send(ctx context.Context, action Action) error {
	path, err := action.Path()
	if err != nil {
		return err
	}
	target, err := benchmark.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}
	builder, err := httpclient.NewRequestBuilder(http.MethodPost, target, c.headers)
	if err != nil {
		return err
	}
	req, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &benchmark.TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := httpclient.ReadBody(resp.Body)
		return &benchmark.StatusError{StatusCode: resp.StatusCode, Body: httpclient.Snippet(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Fire sends action in the background. The returned channel is closed once
// the request settles; failures go to the logger.
func (c *Client) Fire(ctx context.Context, action Action) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Send(ctx, action); err != nil && c.logger != nil {
			c.logger.LogControlFailure(action, err)
		}
	}()
	return done
}
