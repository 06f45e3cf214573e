package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BENCHBOARD_BASE_URL.
const EnvPrefix = "BENCHBOARD"

// envKeys lists the scalar settings that may be supplied through the environment.
var envKeys = []string{
	"base_url", "concurrency", "work_units", "timeout", "run_timeout", "rate",
	"max_in_flight", "retries", "output", "progress", "log_errors", "html_output",
	"poll_interval", "preset", "tracing.endpoint", "tracing.protocol",
	"tracing.service_name", "tracing.sample_rate", "tracing.insecure",
}

// Loader handles loading configuration from files, the environment and command-line arguments.
type Loader struct {
	// DotEnvPath is loaded into the process environment when present. Empty means ".env".
	DotEnvPath string
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	return l.LoadFlags(flagSet)
}

// LoadFlags builds a Config from an already parsed flag set, such as the one
// owned by a cobra subcommand.
func (l Loader) LoadFlags(flagSet *pflag.FlagSet) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	configPath := ""
	if f := flagSet.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Concurrency:  1,
		WorkUnits:    DefaultWorkUnits,
		Timeout:      DefaultTimeout,
		Headers:      map[string]string{},
		Output:       OutputText,
		Progress:     true,
		PollInterval: DefaultPollInterval,
		Presets:      DefaultPresets(),
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:   configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Preset != "" {
		if err := cfg.ApplyPreset(cfg.Preset); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (l Loader) loadDotEnv() error {
	path := l.DotEnvPath
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyConfigSettings applies settings from a config file or the environment to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "base_url", "baseurl", "base-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		cfg.BaseURL = strings.TrimSpace(val)
	}

	ints := []struct {
		dst  *int
		keys []string
	}{
		{&cfg.Concurrency, []string{"concurrency"}},
		{&cfg.WorkUnits, []string{"work_units", "workunits", "work"}},
		{&cfg.Rate, []string{"rate"}},
		{&cfg.MaxInFlight, []string{"max_in_flight", "maxinflight"}},
		{&cfg.Retries, []string{"retries"}},
	}
	for _, field := range ints {
		if raw, ok := lookupSetting(settings, field.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", field.keys[0], err)
			}
			*field.dst = val
		}
	}

	durations := []struct {
		dst  *time.Duration
		keys []string
	}{
		{&cfg.Timeout, []string{"timeout"}},
		{&cfg.RunTimeout, []string{"run_timeout", "runtimeout"}},
		{&cfg.PollInterval, []string{"poll_interval", "pollinterval"}},
	}
	for _, field := range durations {
		if raw, ok := lookupSetting(settings, field.keys...); ok {
			d, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", field.keys[0], err)
			}
			*field.dst = d
		}
	}

	bools := []struct {
		dst  *bool
		keys []string
	}{
		{&cfg.Progress, []string{"progress"}},
		{&cfg.LogErrors, []string{"log_errors", "logerrors"}},
	}
	for _, field := range bools {
		if raw, ok := lookupSetting(settings, field.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", field.keys[0], err)
			}
			*field.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if val != "" {
			cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "html_output", "htmloutput"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("html_output: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "preset"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("preset: %w", err)
		}
		cfg.Preset = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(hdrs))
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		values, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = values
	}

	if raw, ok := lookupSetting(settings, "presets"); ok {
		presets, err := parsePresets(raw)
		if err != nil {
			return fmt.Errorf("presets: %w", err)
		}
		cfg.Presets = presets
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func parsePresets(value interface{}) ([]Preset, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	presets := make([]Preset, 0, len(items))
	for i, item := range items {
		settings, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		var p Preset
		if raw, ok := lookupSetting(settings, "name"); ok {
			if p.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d name: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "concurrency"); ok {
			if p.Concurrency, err = asInt(raw); err != nil {
				return nil, fmt.Errorf("index %d concurrency: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "work_units", "workunits", "work"); ok {
			if p.WorkUnits, err = asInt(raw); err != nil {
				return nil, fmt.Errorf("index %d work_units: %w", i, err)
			}
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func applyTracingSettings(t *TracingConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if t.Endpoint, err = asString(raw); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if t.Protocol, err = asString(raw); err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename"); ok {
		if t.ServiceName, err = asString(raw); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate"); ok {
		if t.SampleRate, err = asFloat64(raw); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if t.Insecure, err = asBool(raw); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = &val
	}
	return nil
}
