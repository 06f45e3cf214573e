package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/torosent/benchboard/internal/benchmark"
	"github.com/torosent/benchboard/internal/metrics"
	"github.com/torosent/benchboard/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Report           Report
	FailureRows      []metrics.StatusBucket
	ThresholdSummary *ThresholdSummary
	DurationsJSON    template.JS
}

// ThresholdSummary counts threshold outcomes for the report header.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []threshold.Result
}

type durationPoint struct {
	Index      int     `json:"i"`
	DurationMs float64 `json:"d"`
	Throughput float64 `json:"t"`
}

// GenerateHTMLReport writes a standalone HTML report for a run.
func GenerateHTMLReport(w io.Writer, r Report) error {
	var summary *ThresholdSummary
	if len(r.Thresholds) > 0 {
		passed := lo.CountBy(r.Thresholds, func(t threshold.Result) bool { return t.Pass })
		summary = &ThresholdSummary{
			Total:   len(r.Thresholds),
			Passed:  passed,
			Failed:  len(r.Thresholds) - passed,
			Results: r.Thresholds,
		}
	}

	points := lo.Map(r.Results, func(res benchmark.Result, i int) durationPoint {
		return durationPoint{Index: i + 1, DurationMs: res.DurationMs, Throughput: res.Throughput}
	})
	durationsJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal durations: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Report:           normalized(r),
		FailureRows:      metrics.FlattenStatusBuckets(r.Stats.StatusBuckets),
		ThresholdSummary: summary,
		DurationsJSON:    template.JS(durationsJSON),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string { return d.String() },
		"formatFloat":    func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"formatPercent": func(part, total int) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
		"inc": func(i int) int { return i + 1 },
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Benchboard Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); overflow: hidden; }
        header { background: linear-gradient(135deg, #0f766e 0%, #1e3a8a 100%); color: white; padding: 30px 40px; }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin-bottom: 40px; }
        .card { background: #f8f9fa; border-radius: 8px; padding: 20px; border-left: 4px solid #0f766e; }
        .card h3 { font-size: 0.9rem; color: #6c757d; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 10px; }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 40px; }
        .section h2 { font-size: 1.5rem; margin-bottom: 20px; padding-bottom: 10px; border-bottom: 2px solid #e5e7eb; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fa; font-weight: 600; color: #4b5563; font-size: 0.85rem; text-transform: uppercase; }
        .badge { display: inline-block; padding: 4px 12px; border-radius: 12px; font-size: 0.85rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .no-data { text-align: center; padding: 40px; color: #6c757d; font-style: italic; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Benchboard Report</h1>
            <div class="meta">Target: {{.Report.Spec.BaseURL}} | Concurrency: {{.Report.Spec.Concurrency}} | Work units: {{.Report.Spec.WorkUnits}}</div>
            <div class="meta">Generated: {{.GeneratedAt}} | Elapsed: {{formatDuration .Report.Stats.Elapsed}}{{if .Report.Label}} | Run: {{.Report.Label}}{{end}}</div>
        </header>
        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Stats.TotalRequests}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Stats.SuccessCount}}</div>
                    <div class="subvalue">{{formatPercent .Report.Stats.SuccessCount .Report.Stats.TotalRequests}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Stats.ErrorCount}}</div>
                    <div class="subvalue">{{formatPercent .Report.Stats.ErrorCount .Report.Stats.TotalRequests}}%</div>
                </div>
                <div class="card">
                    <h3>Avg Duration</h3>
                    <div class="value">{{.Report.Stats.AvgDurationMs}} ms</div>
                    <div class="subvalue">p95 {{.Report.Stats.P95DurationMs}} ms</div>
                </div>
                <div class="card">
                    <h3>Total Throughput</h3>
                    <div class="value">{{.Report.Stats.TotalThroughput}}</div>
                </div>
            </div>

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Actual</th><th>Status</th></tr></thead>
                    <tbody>
                    {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Expr}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                        </tr>
                    {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <div class="section">
                <h2>Round Trip</h2>
                <table>
                    <thead><tr><th>Mean</th><th>P50</th><th>P90</th><th>P95</th><th>P99</th></tr></thead>
                    <tbody><tr>
                        <td>{{formatFloat .Report.Stats.MeanRoundTripMs}} ms</td>
                        <td>{{formatFloat .Report.Stats.P50RoundTripMs}} ms</td>
                        <td>{{formatFloat .Report.Stats.P90RoundTripMs}} ms</td>
                        <td>{{formatFloat .Report.Stats.P95RoundTripMs}} ms</td>
                        <td>{{formatFloat .Report.Stats.P99RoundTripMs}} ms</td>
                    </tr></tbody>
                </table>
            </div>

            <div class="section">
                <h2>Results</h2>
                {{if .Report.Results}}
                <div id="duration-chart" class="chart"></div>
                <table>
                    <thead><tr><th>#</th><th>Duration (ms)</th><th>Work Units</th><th>Result</th><th>Throughput</th></tr></thead>
                    <tbody>
                    {{range $i, $r := .Report.Results}}
                        <tr>
                            <td>{{inc $i}}</td>
                            <td>{{formatFloat $r.DurationMs}}</td>
                            <td>{{$r.WorkUnits}}</td>
                            <td>{{$r.ResultValue}}</td>
                            <td>{{formatFloat $r.Throughput}}</td>
                        </tr>
                    {{end}}
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No successful requests</div>
                {{end}}
            </div>

            {{if .FailureRows}}
            <div class="section">
                <h2>Failures</h2>
                <table>
                    <thead><tr><th>Kind</th><th>Code</th><th>Count</th></tr></thead>
                    <tbody>
                    {{range .FailureRows}}
                        <tr><td>{{.Kind}}</td><td>{{.Code}}</td><td>{{.Count}}</td></tr>
                    {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
    <script>
        const points = {{.DurationsJSON}};
        const el = document.getElementById('duration-chart');
        if (el && points.length > 0 && typeof uPlot !== 'undefined') {
            new uPlot({
                width: el.clientWidth,
                height: 300,
                series: [
                    { label: 'Request' },
                    { label: 'Duration (ms)', stroke: '#0f766e', width: 2 },
                ],
                axes: [{}, { label: 'ms' }],
                scales: { x: { time: false } },
            }, [points.map(p => p.i), points.map(p => p.d)], el);
        }
    </script>
</body>
</html>
`
