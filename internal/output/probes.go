package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/torosent/benchboard/internal/health"
	"github.com/torosent/benchboard/internal/probe"
)

// PrintProbeResponses writes one block per probe: the indented JSON body on
// success, or the single failure message.
func PrintProbeResponses(w io.Writer, responses []probe.Response) {
	for _, resp := range responses {
		if resp.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", resp.Endpoint.Label, resp.Err)
			continue
		}
		fmt.Fprintf(w, "%s (%s, %s):\n", resp.Endpoint.Label, resp.Endpoint.Path, resp.Latency.Round(100*time.Microsecond))
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Body, "  ", "  "); err != nil {
			fmt.Fprintf(w, "  %s\n", resp.Body)
			continue
		}
		fmt.Fprintf(w, "  %s\n", buf.String())
	}
}

// PrintHealth writes a one-line health summary.
func PrintHealth(w io.Writer, s health.Snapshot) {
	fmt.Fprintf(w, "Status: %s | CPU: %.1f%% | Memory: %.1f%% | Users: %d | Req/s: %.1f | DB ops/s: %.1f\n",
		orDash(s.Status), s.CPULoad, s.MemoryUsage, s.ActiveUsers, s.RequestsPerSec, s.DBOpsPerSec)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
