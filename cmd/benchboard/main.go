package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/control"
	"github.com/torosent/benchboard/internal/httpclient"
	"github.com/torosent/benchboard/internal/runner"
	"github.com/torosent/benchboard/internal/session"
	"github.com/torosent/benchboard/internal/tracing"
)

const (
	progressInterval = time.Second
	baseRetryDelay   = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "benchboard",
		Short:         "Fan out benchmark requests against a server and report the aggregate",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          runBenchmark,
	}
	config.RegisterPersistentFlags(root)
	root.AddCommand(
		newRunCmd(),
		newProbeCmd(),
		newHealthCmd(),
		newControlCmd(),
		newDashboardCmd(),
		newInteractiveCmd(),
	)
	return root
}

// loadConfig reads flags, env and config file for cmd and validates them.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles the long-lived pieces every subcommand shares.
type app struct {
	cfg     *config.Config
	client  *http.Client
	tracing *tracing.Provider
	logger  *stderrFailureLogger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	return &app{
		cfg:     cfg,
		client:  httpclient.NewClient(cfg.Timeout),
		tracing: tp,
		logger:  &stderrFailureLogger{},
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[benchboard] tracing shutdown: %v\n", err)
	}
	a.client.CloseIdleConnections()
}

func (a *app) sessionOptions() session.Options {
	opts := session.Options{
		Client:        a.client,
		Headers:       a.cfg.Headers,
		RatePerSecond: a.cfg.Rate,
		MaxInFlight:   a.cfg.MaxInFlight,
		RunTimeout:    a.cfg.RunTimeout,
		Tracing:       a.tracing,
	}
	if a.cfg.Retries > 0 {
		opts.Retry = newRetryPolicy(a.cfg.Retries)
	}
	if a.cfg.LogErrors {
		opts.FailureLogger = a.logger
	}
	return opts
}

func (a *app) controlClient() (*control.Client, error) {
	return control.NewClient(a.client, a.cfg.BaseURL, a.cfg.Headers, a.logger)
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[benchboard] request failed: %v\n", err)
}

func (l *stderrFailureLogger) LogControlFailure(action control.Action, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[benchboard] control %s failed: %v\n", action, err)
}

func (l *stderrFailureLogger) Warn(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[benchboard] "+format+"\n", args...)
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: shouldRetry,
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}

// shouldRetry retries transport failures, 429 and 5xx. Malformed bodies and
// cancelled runs are final.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *benchmark.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return statusErr.StatusCode >= 500
	}
	var parseErr *benchmark.ParseError
	return !errors.As(err, &parseErr)
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
