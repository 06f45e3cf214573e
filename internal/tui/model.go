// Package tui is the interactive preset panel: number keys start benchmark
// runs, "a" calls every probe endpoint, and the newest run's stats are shown.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/probe"
	"github.com/torosent/benchboard/internal/session"
)

// Runner starts benchmark runs.
type Runner interface {
	Run(ctx context.Context, spec benchmark.Spec) (session.Outcome, error)
}

// Prober calls probe endpoints.
type Prober interface {
	RunAll(ctx context.Context, endpoints []probe.Endpoint) []probe.Response
}

type runDoneMsg struct {
	outcome session.Outcome
	err     error
}

type probesDoneMsg struct {
	responses []probe.Response
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

// Model is the bubbletea model for the preset panel.
type Model struct {
	ctx      context.Context
	baseURL  string
	presets  []config.Preset
	runner   Runner
	prober   Prober
	spinner  spinner.Model
	inFlight int
	probing  bool

	last      *session.Outcome
	lastErr   error
	responses []probe.Response
	quitting  bool
}

// New builds a model. presets beyond nine are not reachable from the keyboard.
func New(ctx context.Context, baseURL string, presets []config.Preset, runner Runner, prober Prober) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = keyStyle
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:     ctx,
		baseURL: baseURL,
		presets: presets,
		runner:  runner,
		prober:  prober,
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case runDoneMsg:
		m.inFlight--
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		// Superseded runs never replace what is on screen.
		if msg.outcome.Committed {
			out := msg.outcome
			m.last = &out
			m.lastErr = nil
		}
		return m, nil
	case probesDoneMsg:
		m.probing = false
		m.responses = msg.responses
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "a":
		if m.prober == nil || m.probing {
			return m, nil
		}
		m.probing = true
		return m, m.probeCmd()
	}
	if idx, ok := presetIndex(key); ok && idx < len(m.presets) && m.runner != nil {
		m.inFlight++
		return m, m.runCmd(m.presets[idx])
	}
	return m, nil
}

func presetIndex(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '1'), true
}

func (m Model) runCmd(p config.Preset) tea.Cmd {
	spec := benchmark.Spec{Concurrency: p.Concurrency, WorkUnits: p.WorkUnits, BaseURL: m.baseURL}
	ctx, runner := m.ctx, m.runner
	return func() tea.Msg {
		out, err := runner.Run(ctx, spec)
		return runDoneMsg{outcome: out, err: err}
	}
}

func (m Model) probeCmd() tea.Cmd {
	ctx, prober := m.ctx, m.prober
	return func() tea.Msg {
		return probesDoneMsg{responses: prober.RunAll(ctx, probe.RunAllSet())}
	}
}

// Loading reports whether any run is still in flight.
func (m Model) Loading() bool { return m.inFlight > 0 }

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("benchboard") + labelStyle.Render("  "+m.baseURL) + "\n\n")

	for i, p := range m.presets {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&b, "%s %-10s %s\n", keyStyle.Render(fmt.Sprintf("[%d]", i+1)), p.Name,
			labelStyle.Render(fmt.Sprintf("%d x %d work", p.Concurrency, p.WorkUnits)))
	}
	fmt.Fprintf(&b, "%s run all probes   %s quit\n", keyStyle.Render("[a]"), keyStyle.Render("[q]"))

	if m.Loading() {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s running (%d in flight)", m.spinner.View(), m.inFlight)) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(sectionStyle.Render(errorStyle.Render("Error: "+m.lastErr.Error())) + "\n")
	}
	if m.last != nil {
		b.WriteString(sectionStyle.Render(formatOutcome(*m.last)) + "\n")
	}
	if m.probing {
		b.WriteString(sectionStyle.Render(m.spinner.View()+" probing...") + "\n")
	}
	if len(m.responses) > 0 {
		b.WriteString(sectionStyle.Render(formatResponses(m.responses)) + "\n")
	}
	return b.String()
}

func formatOutcome(o session.Outcome) string {
	s := o.Stats
	return strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("Run %d", o.RunID)) + labelStyle.Render(fmt.Sprintf("  %s  %d x %d", o.Label, o.Spec.Concurrency, o.Spec.WorkUnits)),
		fmt.Sprintf("Requests %d  %s  %s",
			s.TotalRequests,
			okStyle.Render(fmt.Sprintf("ok %d", s.SuccessCount)),
			errorStyle.Render(fmt.Sprintf("failed %d", s.ErrorCount))),
		fmt.Sprintf("Avg %.0fms  P95 %gms  Throughput %.0f", s.AvgDurationMs, s.P95DurationMs, s.TotalThroughput),
	}, "\n")
}

func formatResponses(responses []probe.Response) string {
	lines := make([]string, 0, len(responses))
	for _, r := range responses {
		if r.Err != nil {
			lines = append(lines, errorStyle.Render(r.Err.Error()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s", okStyle.Render(r.Endpoint.Label), labelStyle.Render(r.Latency.String())))
	}
	return strings.Join(lines, "\n")
}
