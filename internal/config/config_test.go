package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/benchboard/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %q, want empty", cfg.BaseURL)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.WorkUnits != config.DefaultWorkUnits {
		t.Errorf("WorkUnits = %d, want %d", cfg.WorkUnits, config.DefaultWorkUnits)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %s, want 60s", cfg.Timeout)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.Output != config.OutputText {
		t.Errorf("Output = %q, want text", cfg.Output)
	}
	if !cfg.Progress {
		t.Errorf("Progress = false, want true")
	}
	if len(cfg.Presets) != 4 {
		t.Errorf("Presets len = %d, want 4", len(cfg.Presets))
	}
	if len(cfg.Headers) != 0 {
		t.Errorf("Headers len = %d, want 0", len(cfg.Headers))
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"base_url": "http://bench.internal:8080",
		"headers": {"X-Run-Tag": "nightly"},
		"concurrency": 10,
		"work_units": 3000000,
		"timeout": "45s",
		"retries": 3,
		"output": "json"
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--concurrency", "4", "--header", "Authorization=Bearer token"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "http://bench.internal:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4 (flag overrides file)", cfg.Concurrency)
	}
	if cfg.WorkUnits != 3_000_000 {
		t.Errorf("WorkUnits = %d, want 3000000", cfg.WorkUnits)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Retries)
	}
	if cfg.Output != config.OutputJSON {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.Headers["X-Run-Tag"] != "nightly" {
		t.Errorf("Headers[X-Run-Tag] = %q, want nightly", cfg.Headers["X-Run-Tag"])
	}
	if cfg.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers[Authorization] = %q", cfg.Headers["Authorization"])
	}
}

func TestLoadConfigFileYAMLWithPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
base_url: http://localhost:8080
preset: burst
presets:
  - name: burst
    concurrency: 40
    work_units: 250000
thresholds:
  - "duration:p95 < 800"
tracing:
  endpoint: localhost:4318
  protocol: http
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 40 || cfg.WorkUnits != 250000 {
		t.Errorf("preset not applied: concurrency=%d work=%d", cfg.Concurrency, cfg.WorkUnits)
	}
	if len(cfg.Presets) != 1 {
		t.Errorf("Presets len = %d, want 1", len(cfg.Presets))
	}
	if len(cfg.Thresholds) != 1 || cfg.Thresholds[0] != "duration:p95 < 800" {
		t.Errorf("Thresholds = %q", cfg.Thresholds)
	}
	if cfg.Tracing.Protocol != "http" || !cfg.Tracing.Enabled() {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("BENCHBOARD_BASE_URL", "http://from-env:9000")
	t.Setenv("BENCHBOARD_CONCURRENCY", "7")
	t.Setenv("BENCHBOARD_TRACING_SERVICE_NAME", "bench-env")

	cfg, err := config.NewLoader().Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://from-env:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Concurrency != 7 {
		t.Errorf("Concurrency = %d, want 7", cfg.Concurrency)
	}
	if cfg.Tracing.ServiceName != "bench-env" {
		t.Errorf("Tracing.ServiceName = %q", cfg.Tracing.ServiceName)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.env")
	if err := os.WriteFile(path, []byte("BENCHBOARD_WORK_UNITS=1234\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BENCHBOARD_WORK_UNITS") })

	loader := config.Loader{DotEnvPath: path}
	cfg, err := loader.Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkUnits != 1234 {
		t.Errorf("WorkUnits = %d, want 1234", cfg.WorkUnits)
	}
}

func TestLoadUnknownPreset(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--preset", "gigantic"})
	if err == nil || !strings.Contains(err.Error(), "unknown preset") {
		t.Fatalf("Load() error = %v, want unknown preset", err)
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		BaseURL:      "http://localhost:8080",
		Concurrency:  1,
		WorkUnits:    1000,
		PollInterval: time.Second,
		Presets:      config.DefaultPresets(),
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"missing base url", func(c *config.Config) { c.BaseURL = "" }, "base-url is required"},
		{"bad scheme", func(c *config.Config) { c.BaseURL = "ftp://host" }, "http or https"},
		{"zero concurrency", func(c *config.Config) { c.Concurrency = 0 }, "concurrency must be >= 1"},
		{"zero work", func(c *config.Config) { c.WorkUnits = 0 }, "work-units must be >= 1"},
		{"negative rate", func(c *config.Config) { c.Rate = -1 }, "rate must be >= 0"},
		{"bad output", func(c *config.Config) { c.Output = "xml" }, "output must be"},
		{"bad poll", func(c *config.Config) { c.PollInterval = 0 }, "poll-interval"},
		{"bad sample rate", func(c *config.Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
		{"bad protocol", func(c *config.Config) { c.Tracing.Protocol = "udp" }, "protocol"},
		{"duplicate preset", func(c *config.Config) {
			c.Presets = append(c.Presets, config.Preset{Name: "Light", Concurrency: 1, WorkUnits: 1})
		}, "duplicate name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Presets = append([]config.Preset(nil), valid.Presets...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
			var verr config.ValidationError
			if !errors.As(err, &verr) || len(verr.Issues()) == 0 {
				t.Errorf("expected ValidationError with issues, got %T", err)
			}
		})
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := config.Config{Presets: config.DefaultPresets()}
	if err := cfg.ApplyPreset("HEAVY"); err != nil {
		t.Fatalf("ApplyPreset() error = %v", err)
	}
	if cfg.Concurrency != 20 || cfg.WorkUnits != 10_000_000 || cfg.Preset != "heavy" {
		t.Errorf("ApplyPreset() = %+v", cfg)
	}
	spec := cfg.Spec()
	if spec.Concurrency != 20 || spec.WorkUnits != 10_000_000 {
		t.Errorf("Spec() = %+v", spec)
	}
}
