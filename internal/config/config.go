package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/benchboard/internal/benchmark"
)

// OutputFormat selects how the final report is written.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultWorkUnits    = 5_000_000
)

type Config struct {
	BaseURL      string            `mapstructure:"base_url"`
	Concurrency  int               `mapstructure:"concurrency"`
	WorkUnits    int               `mapstructure:"work_units"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	RunTimeout   time.Duration     `mapstructure:"run_timeout"`
	Rate         int               `mapstructure:"rate"`
	MaxInFlight  int               `mapstructure:"max_in_flight"`
	Retries      int               `mapstructure:"retries"`
	Headers      map[string]string `mapstructure:"headers"`
	Output       OutputFormat      `mapstructure:"output"`
	Progress     bool              `mapstructure:"progress"`
	LogErrors    bool              `mapstructure:"log_errors"`
	HTMLOutput   string            `mapstructure:"html_output"`
	Thresholds   []string          `mapstructure:"thresholds"`
	PollInterval time.Duration     `mapstructure:"poll_interval"`
	Preset       string            `mapstructure:"preset"`
	Presets      []Preset          `mapstructure:"presets"`
	Tracing      TracingConfig     `mapstructure:"tracing"`
	ConfigFile   string            `mapstructure:"-"`
}

// Preset is a named concurrency/workload pair, the equivalent of a dashboard button.
type Preset struct {
	Name        string `mapstructure:"name"`
	Concurrency int    `mapstructure:"concurrency"`
	WorkUnits   int    `mapstructure:"work_units"`
}

// DefaultPresets mirrors the fixed buttons of the original web dashboard.
func DefaultPresets() []Preset {
	return []Preset{
		{Name: "single", Concurrency: 1, WorkUnits: 1_000_000},
		{Name: "light", Concurrency: 5, WorkUnits: 1_000_000},
		{Name: "moderate", Concurrency: 10, WorkUnits: 5_000_000},
		{Name: "heavy", Concurrency: 20, WorkUnits: 10_000_000},
	}
}

// TracingConfig configures OpenTelemetry export for benchmark requests.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured, either
// explicitly or through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected. It defaults
// to true whenever tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Spec returns the benchmark spec described by the config.
func (c Config) Spec() benchmark.Spec {
	return benchmark.Spec{
		Concurrency: c.Concurrency,
		WorkUnits:   c.WorkUnits,
		BaseURL:     c.BaseURL,
	}
}

// FindPreset looks up a preset by case-insensitive name.
func (c Config) FindPreset(name string) (Preset, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Presets {
		if strings.ToLower(p.Name) == key {
			return p, true
		}
	}
	return Preset{}, false
}

// ApplyPreset overrides concurrency and work units with the named preset.
func (c *Config) ApplyPreset(name string) error {
	p, ok := c.FindPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	c.Concurrency = p.Concurrency
	c.WorkUnits = p.WorkUnits
	c.Preset = p.Name
	return nil
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.BaseURL) == "" {
		issues = append(issues, "base-url is required (use --help for usage information)")
	} else if _, err := benchmark.NormalizeBaseURL(c.BaseURL); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Concurrency > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High concurrency configured (%d parallel requests). Ensure you have authorization to load the target server.\n", c.Concurrency)
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.WorkUnits < 1 {
		issues = append(issues, "work-units must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.RunTimeout < 0 {
		issues = append(issues, "run-timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.MaxInFlight < 0 {
		issues = append(issues, "max-in-flight must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.PollInterval <= 0 {
		issues = append(issues, "poll-interval must be > 0")
	}

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be 'text', 'json' or 'yaml', got %q", c.Output))
	}

	issues = append(issues, validatePresets(c.Presets)...)
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validatePresets(presets []Preset) []string {
	var issues []string
	seen := map[string]int{}
	for idx, p := range presets {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			issues = append(issues, fmt.Sprintf("presets[%d]: name is required", idx))
		} else if prev, ok := seen[name]; ok {
			issues = append(issues, fmt.Sprintf("presets[%d]: duplicate name also defined at index %d", idx, prev))
		} else {
			seen[name] = idx
		}
		if p.Concurrency < 1 {
			issues = append(issues, fmt.Sprintf("presets[%d]: concurrency must be >= 1", idx))
		}
		if p.WorkUnits < 1 {
			issues = append(issues, fmt.Sprintf("presets[%d]: work_units must be >= 1", idx))
		}
	}
	return issues
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	if t.Insecure && t.Enabled() {
		fmt.Fprintln(os.Stderr, "WARNING: tracing exporter TLS is DISABLED (insecure: true).")
	}
	return issues
}
