package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/output"
	"github.com/torosent/benchboard/internal/session"
	"github.com/torosent/benchboard/internal/threshold"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one benchmark and print the aggregate report",
		Args:  cobra.NoArgs,
		RunE:  runBenchmark,
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	opts := a.sessionOptions()
	var progress *output.ProgressReporter
	if cfg.Progress && (cfg.Output == "" || cfg.Output == config.OutputText) {
		opts.OnStart = func(_ uint64, c *metrics.Collector) {
			progress = output.NewProgressReporter(c, cfg.Concurrency, progressInterval, out)
			progress.Start()
		}
	}

	outcome, err := session.New(opts).Run(ctx, cfg.Spec())
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	report := output.Report{
		RunID:      outcome.RunID,
		Label:      outcome.Label,
		Spec:       outcome.Spec,
		Stats:      outcome.Stats,
		Results:    outcome.Results,
		Thresholds: threshold.NewEvaluator(thresholds).Evaluate(outcome.Stats),
		Committed:  outcome.Committed,
	}
	if err := writeReport(out, cfg.Output, report); err != nil {
		return err
	}
	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[benchboard] HTML report written to %s\n", cfg.HTMLOutput)
	}

	if !threshold.AllPassed(report.Thresholds) {
		return fmt.Errorf("thresholds failed")
	}
	if outcome.Stats.ErrorCount > 0 {
		return fmt.Errorf("%d requests failed", outcome.Stats.ErrorCount)
	}
	return nil
}

func writeReport(w io.Writer, format config.OutputFormat, r output.Report) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(w, r)
	case config.OutputYAML:
		return output.PrintYAMLReport(w, r)
	default:
		output.PrintReport(w, r)
		return nil
	}
}

func writeHTMLReport(path string, r output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
