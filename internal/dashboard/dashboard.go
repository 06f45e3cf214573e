// Package dashboard renders the live terminal view: server health, the load
// on the driving host, and the latest committed benchmark run.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/samber/lo"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/control"
	"github.com/torosent/benchboard/internal/health"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/state"
)

// ViewConfig holds the run parameters shown in the summary panel.
type ViewConfig struct {
	TargetURL    string
	Concurrency  int
	WorkUnits    int
	Rate         int
	Timeout      time.Duration
	PollInterval time.Duration
	ConfigFile   string
}

// Actions are invoked from key presses. Any of them may be nil.
type Actions struct {
	Rerun   func()
	Control func(control.Action)
	Quit    func()
}

// Dashboard renders a live terminal UI.
type Dashboard struct {
	cfg     ViewConfig
	actions Actions
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex

	run       state.RunState
	collector *metrics.Collector
	health    health.Update
	host      health.LocalSample
	notice    string

	grid          *ui.Grid
	summaryPara   *widgets.Paragraph
	cpuGauge      *widgets.Gauge
	memGauge      *widgets.Gauge
	healthPara    *widgets.Paragraph
	hostPara      *widgets.Paragraph
	durationSpark *widgets.SparklineGroup
	statsPara     *widgets.Paragraph
	failureList   *widgets.List
	helpPara      *widgets.Paragraph
}

// New initializes the terminal and builds the widgets.
func New(cfg ViewConfig, actions Actions) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	d := newDashboard(cfg, actions)
	d.setupGrid()
	return d, nil
}

func newDashboard(cfg ViewConfig, actions Actions) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{cfg: cfg, actions: actions, ctx: ctx, cancel: cancel}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.cpuGauge = widgets.NewGauge()
	d.cpuGauge.Title = "Server CPU"
	d.cpuGauge.BarColor = ui.ColorBlue
	d.cpuGauge.BorderStyle.Fg = ui.ColorCyan
	d.cpuGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.memGauge = widgets.NewGauge()
	d.memGauge.Title = "Server Memory"
	d.memGauge.BarColor = ui.ColorMagenta
	d.memGauge.BorderStyle.Fg = ui.ColorCyan
	d.memGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.healthPara = widgets.NewParagraph()
	d.healthPara.Title = "Server Health"
	d.healthPara.Text = "Waiting for first poll..."
	d.healthPara.BorderStyle.Fg = ui.ColorCyan

	d.hostPara = widgets.NewParagraph()
	d.hostPara.Title = "Local Host"
	d.hostPara.Text = "Sampling..."
	d.hostPara.BorderStyle.Fg = ui.ColorCyan

	spark := widgets.NewSparkline()
	spark.Title = "Duration per request (ms)"
	spark.LineColor = ui.ColorGreen
	spark.Data = []float64{0}
	d.durationSpark = widgets.NewSparklineGroup(spark)
	d.durationSpark.Title = "Latest Run"
	d.durationSpark.BorderStyle.Fg = ui.ColorCyan

	d.statsPara = widgets.NewParagraph()
	d.statsPara.Title = "Run Stats"
	d.statsPara.Text = "No run yet"
	d.statsPara.BorderStyle.Fg = ui.ColorCyan

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"[No failures](fg:green)"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.helpPara = widgets.NewParagraph()
	d.helpPara.Title = "Keys"
	d.helpPara.Text = helpText("")
	d.helpPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()
	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.14, ui.NewCol(1.0, d.summaryPara)),
		ui.NewRow(0.12,
			ui.NewCol(0.5, d.cpuGauge),
			ui.NewCol(0.5, d.memGauge),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.healthPara),
			ui.NewCol(0.5, d.hostPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.6, d.durationSpark),
			ui.NewCol(0.4, d.statsPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.6, d.failureList),
			ui.NewCol(0.4, d.helpPara),
		),
	)
}

// Start begins the update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Stop stops the update loop and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// SetRun replaces the displayed run state.
func (d *Dashboard) SetRun(rs state.RunState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run = rs
	if !rs.Loading {
		d.collector = nil
	}
}

// AttachCollector shows live progress for the run that owns c.
func (d *Dashboard) AttachCollector(runID uint64, c *metrics.Collector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if runID >= d.run.RunID {
		d.collector = c
	}
}

// SetHealth records the latest health poll.
func (d *Dashboard) SetHealth(u health.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = u
}

// SetHost records the latest local host sample.
func (d *Dashboard) SetHost(s health.LocalSample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.host = s
}

// Notify shows a short message in the keys panel.
func (d *Dashboard) Notify(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notice = msg
}

func (d *Dashboard) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	uiEvents := ui.PollEvents()

	d.update()
	d.render()
	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			if e.ID == "<Resize>" {
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
				continue
			}
			d.handleKey(e.ID)
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

type keyAction struct {
	rerun   bool
	quit    bool
	control control.Action
}

func actionForKey(id string) (keyAction, bool) {
	switch id {
	case "q", "<C-c>":
		return keyAction{quit: true}, true
	case "r":
		return keyAction{rerun: true}, true
	case "c":
		return keyAction{control: control.ActionCPU}, true
	case "i":
		return keyAction{control: control.ActionIO}, true
	case "u":
		return keyAction{control: control.ActionUsers}, true
	case "x":
		return keyAction{control: control.ActionReset}, true
	}
	return keyAction{}, false
}

func (d *Dashboard) handleKey(id string) {
	act, ok := actionForKey(id)
	if !ok {
		return
	}
	switch {
	case act.quit:
		if d.actions.Quit != nil {
			d.actions.Quit()
		}
	case act.rerun:
		if d.actions.Rerun != nil {
			d.Notify("run started")
			d.actions.Rerun()
		}
	case act.control != "":
		if d.actions.Control != nil {
			d.Notify(fmt.Sprintf("sent %s", act.control))
			d.actions.Control(act.control)
		}
	}
}

// update refreshes widget contents from the recorded state.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.summaryPara.Text = formatSummary(d.cfg, d.run, d.collector)

	snap := d.health.Snapshot
	d.cpuGauge.Percent = clampPercent(snap.CPULoad)
	d.cpuGauge.Label = fmt.Sprintf("%.1f%%", snap.CPULoad)
	d.memGauge.Percent = clampPercent(snap.MemoryUsage)
	d.memGauge.Label = fmt.Sprintf("%.1f%%", snap.MemoryUsage)
	d.healthPara.Text = formatHealth(d.health)
	d.hostPara.Text = formatHost(d.host)

	d.statsPara.Text = formatRunStats(d.run.Stats)
	d.failureList.Rows = formatStatusListRows(d.run.Stats.StatusBuckets)
	if len(d.run.Results) > 0 {
		d.durationSpark.Sparklines[0].Data = lo.Map(d.run.Results, func(r benchmark.Result, _ int) float64 { return r.DurationMs })
		d.durationSpark.Title = fmt.Sprintf("Latest Run | avg %.0fms | p95 %gms", d.run.Stats.AvgDurationMs, d.run.Stats.P95DurationMs)
	} else {
		d.durationSpark.Sparklines[0].Data = []float64{0}
		d.durationSpark.Title = "Latest Run"
	}
	d.helpPara.Text = helpText(d.notice)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

func formatSummary(cfg ViewConfig, rs state.RunState, collector *metrics.Collector) string {
	status := "idle"
	switch {
	case rs.Loading && collector != nil:
		s := collector.Snapshot()
		status = fmt.Sprintf("running %s (%d/%d settled)", rs.Label, s.Completed, rs.Spec.Concurrency)
	case rs.Loading:
		status = fmt.Sprintf("running %s", rs.Label)
	case rs.RunID > 0:
		status = fmt.Sprintf("last run %s settled in %s", rs.Label, rs.SettledAt.Sub(rs.StartedAt).Round(time.Millisecond))
	}
	return fmt.Sprintf("Target: %s\n%s\nStatus: %s", cfg.TargetURL, formatParams(cfg), status)
}

func formatParams(cfg ViewConfig) string {
	var parts []string
	if cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", cfg.Concurrency))
	}
	if cfg.WorkUnits > 0 {
		parts = append(parts, fmt.Sprintf("Work: %d", cfg.WorkUnits))
	}
	if cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", cfg.Rate))
	} else {
		parts = append(parts, "Rate: unpaced")
	}
	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}
	if cfg.PollInterval > 0 {
		parts = append(parts, fmt.Sprintf("Poll: %s", cfg.PollInterval))
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}
	return strings.Join(parts, " | ")
}

func formatHealth(u health.Update) string {
	s := u.Snapshot
	lines := []string{
		fmt.Sprintf("Status:      %s", lo.Ternary(s.Status == "", "unknown", s.Status)),
		fmt.Sprintf("Users:       %d", s.ActiveUsers),
		fmt.Sprintf("Req/s:       %.1f", s.RequestsPerSec),
		fmt.Sprintf("DB ops/s:    %.1f", s.DBOpsPerSec),
	}
	if s.Service != "" {
		lines = append([]string{fmt.Sprintf("Service:     %s", s.Service)}, lines...)
	}
	if u.Err != nil {
		lines = append(lines, fmt.Sprintf("[Poll error: %v](fg:red)", u.Err))
	}
	return strings.Join(lines, "\n")
}

func formatHost(s health.LocalSample) string {
	if s.SampledAt.IsZero() {
		return "Sampling..."
	}
	return fmt.Sprintf("CPU:         %.1f%% of %d cores\nMemory:      %.1f%%\nLoad (1m):   %.2f\nGoroutines:  %d",
		s.CPUPercent, s.NumCPU, s.MemoryPercent, s.Load1, s.Goroutines)
}

func formatRunStats(s metrics.Stats) string {
	if s.TotalRequests == 0 {
		return "No run yet"
	}
	return fmt.Sprintf("Requests:    %d\nSuccessful:  %d\nFailed:      %d\nAvg:         %.0fms\nP95:         %gms\nThroughput:  %.0f\nRound trip:  p50 %.1fms / p99 %.1fms",
		s.TotalRequests, s.SuccessCount, s.ErrorCount, s.AvgDurationMs, s.P95DurationMs, s.TotalThroughput, s.P50RoundTripMs, s.P99RoundTripMs)
}

func formatStatusListRows(buckets map[string]map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	return lo.Map(rows, func(row metrics.StatusBucket, _ int) string {
		return fmt.Sprintf("[%s %s](fg:red) %d", strings.ToUpper(row.Kind), row.Code, row.Count)
	})
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}

func helpText(notice string) string {
	text := "r: rerun  q: quit\nc: cpu  i: io  u: users  x: reset"
	if notice != "" {
		text += "\n[" + notice + "](fg:yellow)"
	}
	return text
}
