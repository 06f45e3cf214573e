package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/control"
	"github.com/torosent/benchboard/internal/dashboard"
	"github.com/torosent/benchboard/internal/health"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/probe"
	"github.com/torosent/benchboard/internal/session"
	"github.com/torosent/benchboard/internal/tui"
)

const hostCPUWindow = 250 * time.Millisecond

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Live terminal dashboard with health, run stats and control keys",
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

			healthClient, err := health.NewClient(a.client, cfg.BaseURL, cfg.Headers)
			if err != nil {
				return err
			}
			var sess *session.Session
			var controls *control.Client
			dash, err := dashboard.New(dashboard.ViewConfig{
				TargetURL:    cfg.BaseURL,
				Concurrency:  cfg.Concurrency,
				WorkUnits:    cfg.WorkUnits,
				Rate:         cfg.Rate,
				Timeout:      cfg.Timeout,
				PollInterval: cfg.PollInterval,
				ConfigFile:   cfg.ConfigFile,
			}, dashboard.Actions{
				Rerun: func() { go sess.Run(ctx, cfg.Spec()) },
				Control: func(action control.Action) {
					controls.Fire(ctx, action)
				},
				Quit: cancel,
			})
			if err != nil {
				return err
			}
			controls, err = control.NewClient(a.client, cfg.BaseURL, cfg.Headers, dashboardNotifier{dash})
			if err != nil {
				dash.Stop()
				return err
			}

			opts := a.sessionOptions()
			// Per-request failures would scribble over the terminal UI.
			opts.FailureLogger = nil
			opts.OnStart = func(runID uint64, c *metrics.Collector) {
				dash.AttachCollector(runID, c)
			}
			sess = session.New(opts)

			updates, unsubscribe := sess.Store().Subscribe()
			go func() {
				for rs := range updates {
					dash.SetRun(rs)
				}
			}()

			poller := health.NewPoller(healthClient, cfg.PollInterval, dash.SetHealth)
			poller.Start(ctx)
			go sampleHost(ctx, health.NewLocalSampler(hostCPUWindow), cfg.PollInterval, dash.SetHost)

			dash.Start()
			go sess.Run(ctx, cfg.Spec())

			<-ctx.Done()
			poller.Stop()
			dash.Stop()
			unsubscribe()
			return nil
		},
	}
}

// dashboardNotifier shows control failures in the keys panel.
type dashboardNotifier struct {
	dash *dashboard.Dashboard
}

func (n dashboardNotifier) LogControlFailure(action control.Action, err error) {
	n.dash.Notify(fmt.Sprintf("control %s failed: %v", action, err))
}

// sampleHost feeds local host readings to fn until ctx is done.
func sampleHost(ctx context.Context, sampler *health.LocalSampler, interval time.Duration, fn func(health.LocalSample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if sample, err := sampler.Sample(ctx); err == nil {
			fn(sample)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"ui"},
		Short:   "Preset panel: number keys start runs, 'a' calls every probe",
		Args:    cobra.NoArgs,
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

			prober, err := probe.New(a.client, cfg.BaseURL, cfg.Headers)
			if err != nil {
				return err
			}
			opts := a.sessionOptions()
			opts.FailureLogger = nil
			sess := session.New(opts)

			model := tui.New(ctx, cfg.BaseURL, cfg.Presets, sess, prober)
			if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("interactive: %w", err)
			}
			return nil
		},
	}
}
