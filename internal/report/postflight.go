package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/httpclient"
)

// Series the demo target exports for request accounting.
const (
	requestTotalsMetric = "sample_service_requests_total"
	upMetric            = "sample_service_up"
)

// Postflight scrapes the target's metrics endpoint and prints the request
// totals and up gauge so the generated traffic can be eyeballed against what
// the service observed. The run is already complete when this executes, so
// scrape and parse problems are warnings, never failures.
func Postflight(ctx context.Context, baseURL string, w io.Writer, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := baseURL + "/metrics"

	families, err := scrape(ctx, url)
	if err != nil {
		logger.Warn("metrics scrape failed", zap.String("url", url), zap.Error(err))
		return
	}

	fmt.Fprintln(w, "\n--- Target Metrics ---")

	totals, ok := families[requestTotalsMetric]
	if !ok {
		logger.Warn("metric missing from target", zap.String("metric", requestTotalsMetric))
	} else {
		fmt.Fprintf(w, "%s:\n", requestTotalsMetric)
		for _, row := range metricRows(totals) {
			fmt.Fprintf(w, "  %s\n", row)
		}
	}

	up, ok := families[upMetric]
	if !ok {
		logger.Warn("metric missing from target", zap.String("metric", upMetric))
		return
	}
	if ms := up.GetMetric(); len(ms) > 0 {
		fmt.Fprintf(w, "%s: %s\n", upMetric, formatValue(metricValue(ms[0])))
	}
}

func scrape(ctx context.Context, url string) (map[string]*dto.MetricFamily, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpclient.NewClient(probeTimeout).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	return parser.TextToMetricFamilies(resp.Body)
}

// metricRows renders one "label=value ...: count" line per sample, sorted
// for stable output.
func metricRows(family *dto.MetricFamily) []string {
	rows := make([]string, 0, len(family.GetMetric()))
	for _, m := range family.GetMetric() {
		labels := make([]string, 0, len(m.GetLabel()))
		for _, pair := range m.GetLabel() {
			labels = append(labels, fmt.Sprintf("%s=%s", pair.GetName(), pair.GetValue()))
		}
		sort.Strings(labels)
		rows = append(rows, fmt.Sprintf("%s: %s", strings.Join(labels, " "), formatValue(metricValue(m))))
	}
	sort.Strings(rows)
	return rows
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetUntyped() != nil:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
