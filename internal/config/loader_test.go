package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{" 7 ", 7},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}

	if _, err := asInt("five"); err == nil {
		t.Errorf("asInt(\"five\") expected error")
	}
}

func TestAsFloat64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  float64
	}{
		{0.25, 0.25},
		{"0.5", 0.5},
		{1, 1},
		{uint8(3), 3},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asFloat64(tt.input)
		if err != nil {
			t.Errorf("asFloat64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asFloat64(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second},
		{1.5, 1500 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsStringSlice_CommaSeparated(t *testing.T) {
	got, err := asStringSlice("duration:p95 < 500, failed:rate < 0.1")
	if err != nil {
		t.Fatalf("asStringSlice() error = %v", err)
	}
	if len(got) != 2 || got[0] != "duration:p95 < 500" || got[1] != "failed:rate < 0.1" {
		t.Errorf("asStringSlice() = %q", got)
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"base_url":    "http://localhost:8080",
		"concurrency": 10,
		"work_units":  "2000000",
		"timeout":     "5s",
		"output":      "JSON",
		"headers": map[string]interface{}{
			"x-run-tag": "smoke",
		},
		"tracing": map[string]interface{}{
			"endpoint":    "localhost:4317",
			"sample_rate": 0.5,
			"propagate":   false,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want http://localhost:8080", cfg.BaseURL)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.WorkUnits != 2_000_000 {
		t.Errorf("WorkUnits = %d, want 2000000", cfg.WorkUnits)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("Output = %q, want json", cfg.Output)
	}
	if cfg.Headers["X-Run-Tag"] != "smoke" {
		t.Errorf("Headers[X-Run-Tag] = %q, want smoke", cfg.Headers["X-Run-Tag"])
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.ShouldPropagate() {
		t.Errorf("ShouldPropagate() = true, want false")
	}
}

func TestApplyConfigSettings_InvalidValue(t *testing.T) {
	cfg := &Config{}
	err := applyConfigSettings(cfg, map[string]interface{}{"concurrency": "lots"})
	if err == nil {
		t.Fatal("expected error for non-numeric concurrency")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{Concurrency: 1}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"--concurrency=5",
		"--output=yaml",
		"--header=x-test=123",
		"--tracing-propagate=false",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
	if cfg.Output != OutputYAML {
		t.Errorf("Output = %q, want yaml", cfg.Output)
	}
	if cfg.Headers["X-Test"] != "123" {
		t.Errorf("Headers[X-Test] = %q, want 123", cfg.Headers["X-Test"])
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Errorf("Tracing.Propagate = %v, want false", cfg.Tracing.Propagate)
	}
}

func TestApplyFlagOverrides_UnchangedFlagsKeepValues(t *testing.T) {
	cfg := &Config{Concurrency: 8, WorkUnits: 42}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}
	if cfg.Concurrency != 8 || cfg.WorkUnits != 42 {
		t.Errorf("values overwritten by defaults: %+v", cfg)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		raw       string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{"X-A=1", "X-A", "1", false},
		{"X-B: two", "X-B", "two", false},
		{"novalue", "", "", true},
		{"=v", "", "", true},
	}

	for _, tt := range tests {
		k, v, err := parseHeader(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHeader(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if k != tt.wantKey || v != tt.wantValue {
			t.Errorf("parseHeader(%q) = %q, %q; want %q, %q", tt.raw, k, v, tt.wantKey, tt.wantValue)
		}
	}
}

func TestParsePresets(t *testing.T) {
	input := []interface{}{
		map[string]interface{}{
			"name":        "burst",
			"concurrency": 50,
			"work_units":  100000,
		},
		map[interface{}]interface{}{
			"Name":        "soak",
			"Concurrency": "2",
			"work":        20000000,
		},
	}

	presets, err := parsePresets(input)
	if err != nil {
		t.Fatalf("parsePresets() error = %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("len(presets) = %d, want 2", len(presets))
	}
	if presets[0] != (Preset{Name: "burst", Concurrency: 50, WorkUnits: 100000}) {
		t.Errorf("presets[0] = %+v", presets[0])
	}
	if presets[1] != (Preset{Name: "soak", Concurrency: 2, WorkUnits: 20000000}) {
		t.Errorf("presets[1] = %+v", presets[1])
	}
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader()
	args := []string{
		"--base-url=http://localhost:8080",
		"--concurrency=2",
	}

	cfg, err := loader.Load(args)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want http://localhost:8080", cfg.BaseURL)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
}
