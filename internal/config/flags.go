package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all config flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// RegisterPersistentFlags registers the config flags so every subcommand of
// cmd inherits them.
func RegisterPersistentFlags(cmd *cobra.Command) {
	configureFlags(cmd.PersistentFlags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "benchboard",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all config flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.StringP("base-url", "u", "", "Base URL of the benchmark server")
	flags.StringSlice("header", nil, "Additional request header in key=value form")

	// Workload
	flags.IntP("concurrency", "c", 1, "Number of parallel benchmark requests")
	flags.IntP("work-units", "w", DefaultWorkUnits, "Workload size forwarded to the server per request")
	flags.StringP("preset", "p", "", "Named preset overriding concurrency and work units")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout ceiling")
	flags.Duration("run-timeout", 0, "Global timeout for a whole run (0 means none)")
	flags.IntP("rate", "r", 0, "Launch pacing in requests per second (0 launches all at once)")
	flags.Int("max-in-flight", 0, "Cap on simultaneously outstanding requests (0 means unlimited)")
	flags.Int("retries", 0, "Number of retries per request")

	// Output
	flags.StringP("output", "o", string(OutputText), "Report format: text, json or yaml")
	flags.Bool("progress", true, "Print a live progress line while requests are in flight")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.StringSlice("threshold", nil, "Assertion on the final stats (repeatable, e.g. 'duration:p95 < 500')")
	flags.Duration("poll-interval", DefaultPollInterval, "Interval between health polls in live views")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported in spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", true, "Inject W3C trace context headers when tracing is enabled")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetString(name)
	}
	integer := func(name string, dst *int) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}
	boolean := func(name string, dst *bool) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetBool(name)
	}

	str("base-url", &cfg.BaseURL)
	integer("concurrency", &cfg.Concurrency)
	integer("work-units", &cfg.WorkUnits)
	str("preset", &cfg.Preset)
	integer("rate", &cfg.Rate)
	integer("max-in-flight", &cfg.MaxInFlight)
	integer("retries", &cfg.Retries)
	boolean("progress", &cfg.Progress)
	boolean("log-errors", &cfg.LogErrors)
	str("html-output", &cfg.HTMLOutput)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	if err != nil {
		return err
	}

	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("timeout") {
		if cfg.Timeout, err = fs.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if fs.Changed("run-timeout") {
		if cfg.RunTimeout, err = fs.GetDuration("run-timeout"); err != nil {
			return err
		}
	}
	if fs.Changed("poll-interval") {
		if cfg.PollInterval, err = fs.GetDuration("poll-interval"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-sample-rate") {
		if cfg.Tracing.SampleRate, err = fs.GetFloat64("tracing-sample-rate"); err != nil {
			return err
		}
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	if fs.Changed("header") {
		values, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(values))
		}
		for _, raw := range values {
			key, value, err := parseHeader(raw)
			if err != nil {
				return err
			}
			cfg.Headers[http.CanonicalHeaderKey(key)] = value
		}
	}
	if fs.Changed("threshold") {
		values, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = append(cfg.Thresholds, values...)
	}
	return nil
}

func parseHeader(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		key, value, ok = strings.Cut(raw, ":")
	}
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q: expected key=value", raw)
	}
	return key, strings.TrimSpace(value), nil
}
