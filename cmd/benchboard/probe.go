package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/torosent/benchboard/internal/config"
	"github.com/torosent/benchboard/internal/extractor"
	"github.com/torosent/benchboard/internal/output"
	"github.com/torosent/benchboard/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var all bool
	var extracts []string
	cmd := &cobra.Command{
		Use:   "probe [endpoint...]",
		Short: "Call single-shot benchmark endpoints (health, cpu-benchmark, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoints, err := selectProbes(args, all)
			if err != nil {
				return err
			}
			extractors, err := parseExtractors(extracts)
			if err != nil {
				return err
			}
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
			responses := prober.RunAll(ctx, endpoints)
			if err := writeProbeResponses(cmd, cfg.Output, responses); err != nil {
				return err
			}
			if len(extractors) > 0 {
				writeExtracted(cmd.OutOrStdout(), responses, extractors, a.logger)
			}
			if failed := countFailed(responses); failed > 0 {
				return fmt.Errorf("%d of %d probes failed", failed, len(responses))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Call every benchmark endpoint (health excluded)")
	cmd.Flags().StringSliceVar(&extracts, "extract", nil, "Print a field of each response body, as name=json.path (repeatable)")
	return cmd
}

func selectProbes(args []string, all bool) ([]probe.Endpoint, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with endpoint names")
		}
		return probe.RunAllSet(), nil
	}
	if len(args) == 0 {
		return []probe.Endpoint{probe.Health}, nil
	}
	endpoints := make([]probe.Endpoint, 0, len(args))
	for _, arg := range args {
		ep, ok := probe.Lookup(arg)
		if !ok {
			return nil, fmt.Errorf("unknown probe endpoint %q", arg)
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

type probeJSON struct {
	Label     string          `json:"label"`
	Path      string          `json:"path"`
	LatencyMs float64         `json:"latency_ms"`
	Body      json.RawMessage `json:"body,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func writeProbeResponses(cmd *cobra.Command, format config.OutputFormat, responses []probe.Response) error {
	out := cmd.OutOrStdout()
	if format != config.OutputJSON {
		output.PrintProbeResponses(out, responses)
		return nil
	}
	rows := make([]probeJSON, len(responses))
	for i, r := range responses {
		rows[i] = probeJSON{
			Label:     r.Endpoint.Label,
			Path:      r.Endpoint.Path,
			LatencyMs: float64(r.Latency.Microseconds()) / 1000,
			Body:      r.Body,
		}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func countFailed(responses []probe.Response) int {
	n := 0
	for _, r := range responses {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func parseExtractors(raw []string) ([]extractor.Extractor, error) {
	out := make([]extractor.Extractor, 0, len(raw))
	for _, r := range raw {
		name, path, ok := strings.Cut(r, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid --extract %q: expected name=json.path", r)
		}
		out = append(out, extractor.Extractor{Variable: name, JSONPath: path})
	}
	return out, nil
}

func writeExtracted(w io.Writer, responses []probe.Response, extractors []extractor.Extractor, logger extractor.Logger) {
	for _, r := range responses {
		if r.Err != nil {
			continue
		}
		values := extractor.ExtractAll(r.Body, extractors, logger)
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s.%s = %s\n", r.Endpoint.Label, name, values[name])
		}
	}
}
