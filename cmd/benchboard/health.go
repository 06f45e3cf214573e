package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/health"
	"github.com/torosent/benchboard/internal/output"
	"github.com/torosent/benchboard/internal/probe"
)

func newHealthCmd() *cobra.Command {
	var watch, local bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the server health snapshot, once or continuously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
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

			client, err := health.NewClient(a.client, cfg.BaseURL, cfg.Headers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !watch {
				snap, err := client.Fetch(ctx)
				if err != nil {
					return &probe.CallError{Label: probe.Health.Label, Err: err}
				}
				if err := writeHealth(out, cfg.Output, snap); err != nil {
					return err
				}
				if local {
					sample, err := health.NewLocalSampler(200 * time.Millisecond).Sample(ctx)
					if err != nil {
						return err
					}
					writeLocal(out, sample)
				}
				return nil
			}

			poller := health.NewPoller(client, cfg.PollInterval, func(u health.Update) {
				if u.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "[benchboard] health poll failed: %v\n", u.Err)
					return
				}
				_ = writeHealth(out, cfg.Output, u.Snapshot)
			})
			poller.Start(ctx)
			<-ctx.Done()
			poller.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll health every --poll-interval until interrupted")
	cmd.Flags().BoolVar(&local, "local", false, "Also print CPU, memory and load of this machine")
	return cmd
}

func writeHealth(w io.Writer, format config.OutputFormat, snap health.Snapshot) error {
	if format == config.OutputJSON {
		return json.NewEncoder(w).Encode(snap)
	}
	output.PrintHealth(w, snap)
	return nil
}

func writeLocal(w io.Writer, s health.LocalSample) {
	fmt.Fprintf(w, "Local: CPU %.1f%% (%d cores) | Memory %.1f%% | Load1 %.2f\n", s.CPUPercent, s.NumCPU, s.MemoryPercent, s.Load1)
}
