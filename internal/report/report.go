package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/torosent/pulsefire/internal/metrics"
)

// PrintSummary outputs a human-readable run summary.
func PrintSummary(w io.Writer, s metrics.RunSummary) {
	fmt.Fprintln(w, "\n--- Traffic Run Results ---")
	fmt.Fprintf(w, "Total Requests:    %d\n", s.Attempted)
	fmt.Fprintf(w, "Successful:        %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failed)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", s.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", s.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", s.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", s.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", s.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", s.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", s.P99Latency)
	if s.ProbeMeanLatency > 0 {
		fmt.Fprintf(w, "  Probe Mean:      %s\n", s.ProbeMeanLatency)
	}

	if len(s.Phases) > 0 {
		fmt.Fprintln(w, "\nPhases:")
		for _, p := range s.Phases {
			fmt.Fprintf(
				w,
				"  - %s: attempted=%d, ok=%d, failed=%d, mean=%s, elapsed=%s\n",
				p.Name,
				p.Attempted,
				p.Succeeded,
				p.Failed,
				p.MeanLatency,
				p.Duration,
			)
			if len(p.LatenciesMs) > 0 {
				fmt.Fprintf(w, "    Samples: %s\n", joinLatencies(p.Latencies))
			}
		}
	}

	if len(s.Breakdown) > 0 {
		fmt.Fprintln(w, "\nOutcome Breakdown:")
		writeBreakdown(w, s.Breakdown, "  ")
	}
}

// PrintJSONSummary outputs a JSON-formatted run summary.
func PrintJSONSummary(w io.Writer, s metrics.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func writeBreakdown(w io.Writer, buckets map[metrics.Class]map[string]int, indent string) {
	rows := metrics.FlattenBreakdown(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, row.Class, row.Detail, row.Count)
	}
}

func joinLatencies(latencies []time.Duration) string {
	parts := make([]string, len(latencies))
	for i, l := range latencies {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}
