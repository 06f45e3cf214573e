// Package output renders run reports, probe results and progress lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/threshold"
)

// Report is everything a finished run renders.
type Report struct {
	RunID      uint64             `json:"run_id" yaml:"run_id"`
	Label      string             `json:"label,omitempty" yaml:"label,omitempty"`
	Spec       benchmark.Spec     `json:"spec" yaml:"spec"`
	Stats      metrics.Stats      `json:"stats" yaml:"stats"`
	Results    []benchmark.Result `json:"results" yaml:"results"`
	Thresholds []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Committed  bool               `json:"committed" yaml:"committed"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	stats := r.Stats
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	if r.Label != "" {
		fmt.Fprintf(w, "Run:               %d (%s)\n", r.RunID, r.Label)
	}
	fmt.Fprintf(w, "Target:            %s\n", r.Spec.BaseURL)
	fmt.Fprintf(w, "Concurrency:       %d\n", r.Spec.Concurrency)
	fmt.Fprintf(w, "Work Units:        %d\n", r.Spec.WorkUnits)
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.TotalRequests)
	fmt.Fprintf(w, "Successful:        %d\n", stats.SuccessCount)
	fmt.Fprintf(w, "Failed:            %d\n", stats.ErrorCount)
	fmt.Fprintf(w, "Elapsed:           %s\n", stats.Elapsed)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)

	fmt.Fprintln(w, "\nServer Duration:")
	fmt.Fprintf(w, "  Avg:             %.0fms\n", stats.AvgDurationMs)
	fmt.Fprintf(w, "  P95:             %gms\n", stats.P95DurationMs)
	fmt.Fprintf(w, "  Min:             %gms\n", stats.MinDurationMs)
	fmt.Fprintf(w, "  Max:             %gms\n", stats.MaxDurationMs)
	fmt.Fprintf(w, "  StdDev:          %.2fms\n", stats.StdDevDurationMs)
	fmt.Fprintf(w, "Total Throughput:  %.0f\n", stats.TotalThroughput)

	if stats.SuccessCount > 0 {
		fmt.Fprintln(w, "\nRound Trip:")
		fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanRoundTrip)
		fmt.Fprintf(w, "  P50:             %s\n", stats.P50RoundTrip)
		fmt.Fprintf(w, "  P90:             %s\n", stats.P90RoundTrip)
		fmt.Fprintf(w, "  P99:             %s\n", stats.P99RoundTrip)
	}

	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nFailure Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, t := range r.Thresholds {
			fmt.Fprintf(w, "  %s\n", t.Message)
		}
	}

	if !r.Committed && r.RunID != 0 {
		fmt.Fprintln(w, "\nNote: a newer run was started; these results were not committed.")
	}
}

// PrintJSONReport outputs the report as indented JSON.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(normalized(r))
}

// PrintYAMLReport outputs the report as YAML.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(normalized(r)); err != nil {
		return err
	}
	return enc.Close()
}

// normalized renders an empty result list as [] rather than null.
func normalized(r Report) Report {
	if r.Results == nil {
		r.Results = []benchmark.Result{}
	}
	return r
}

func writeStatusBuckets(w io.Writer, buckets map[string]map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, strings.ToUpper(row.Kind), row.Code, row.Count)
	}
}
