package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/pulsefire/internal/metrics"
)

func TestWriteHTMLReportBasic(t *testing.T) {
	s := metrics.RunSummary{
		Attempted:        45,
		Succeeded:        40,
		Failed:           5,
		Duration:         48 * time.Second,
		RequestsPerSec:   0.94,
		MinLatency:       2 * time.Millisecond,
		MaxLatency:       4 * time.Second,
		MeanLatency:      310 * time.Millisecond,
		P50Latency:       120 * time.Millisecond,
		P90Latency:       900 * time.Millisecond,
		P99Latency:       3 * time.Second,
		ProbeMeanLatency: 2300 * time.Millisecond,
		Breakdown: map[metrics.Class]map[string]int{
			metrics.ClassSuccess:     {"200": 40},
			metrics.ClassServerError: {"500": 4},
			metrics.ClassTransport:   {"timeout": 1},
		},
		Phases: []metrics.PhaseResult{
			{Name: "normal", Attempted: 20, Succeeded: 18, Failed: 2, MeanLatency: 250 * time.Millisecond, Duration: 36 * time.Second},
			{Name: "spike", Attempted: 30, Succeeded: 30, MeanLatency: 180 * time.Millisecond, Duration: 8 * time.Second},
			{
				Name:        "slow-probe",
				Attempted:   2,
				Succeeded:   2,
				MeanLatency: 2300 * time.Millisecond,
				Duration:    5 * time.Second,
				Latencies:   []time.Duration{2100 * time.Millisecond, 2500 * time.Millisecond},
				LatenciesMs: []float64{2100, 2500},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteHTMLReport(&buf, s, HTMLMetadata{TargetURL: "http://localhost:8080", RunID: "01JF5TESTRUN"}); err != nil {
		t.Fatalf("WriteHTMLReport() error = %v", err)
	}

	html := buf.String()

	requiredElements := []string{
		"<!DOCTYPE html>",
		"<html",
		"<head>",
		"<body>",
		"Pulsefire Traffic Report",
		"Total Requests",
		"Successful",
		"Failed",
		"Requests/sec",
		"Latency Statistics",
		"Phases",
		"Outcome Breakdown",
	}
	for _, elem := range requiredElements {
		if !strings.Contains(html, elem) {
			t.Errorf("HTML missing required element: %s", elem)
		}
	}

	// Verify data is embedded.
	if !strings.Contains(html, "45") {
		t.Errorf("HTML missing total requests count")
	}
	if !strings.Contains(html, "http://localhost:8080") {
		t.Errorf("HTML missing target URL")
	}
	if !strings.Contains(html, "01JF5TESTRUN") {
		t.Errorf("HTML missing run ID")
	}
	if !strings.Contains(html, "Probe Mean") {
		t.Errorf("HTML missing probe mean latency")
	}

	// Verify phase rows.
	for _, phase := range []string{"normal", "spike", "slow-probe"} {
		if !strings.Contains(html, "<strong>"+phase+"</strong>") {
			t.Errorf("HTML missing %s phase row", phase)
		}
	}
	if !strings.Contains(html, "Probe samples: 2.1s, 2.5s") {
		t.Errorf("HTML missing probe samples line")
	}

	// Verify outcome rows carry the right badges.
	if !strings.Contains(html, "badge-success") {
		t.Errorf("HTML missing success badge")
	}
	if !strings.Contains(html, "badge-error") {
		t.Errorf("HTML missing error badge")
	}
	for _, detail := range []string{"server-error", "timeout"} {
		if !strings.Contains(html, detail) {
			t.Errorf("HTML missing outcome %s", detail)
		}
	}
}

func TestWriteHTMLReportEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTMLReport(&buf, metrics.RunSummary{}, HTMLMetadata{}); err != nil {
		t.Fatalf("WriteHTMLReport() error = %v", err)
	}

	html := buf.String()

	if !strings.Contains(html, "Pulsefire Traffic Report") {
		t.Errorf("HTML missing title")
	}
	if !strings.Contains(html, "No outcomes recorded") {
		t.Errorf("HTML missing empty-breakdown placeholder")
	}
	if strings.Contains(html, "Probe Mean") {
		t.Errorf("HTML should not show probe mean without probe data")
	}
	if strings.Contains(html, "Probe samples") {
		t.Errorf("HTML should not show probe samples without probe data")
	}
}

func TestWriteHTMLReportEscapesTargetURL(t *testing.T) {
	s := metrics.RunSummary{Attempted: 1, Succeeded: 1}
	meta := HTMLMetadata{TargetURL: "http://localhost/<script>alert(1)</script>"}

	var buf bytes.Buffer
	if err := WriteHTMLReport(&buf, s, meta); err != nil {
		t.Fatalf("WriteHTMLReport() error = %v", err)
	}

	html := buf.String()

	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Errorf("HTML contains unescaped target URL")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("HTML missing escaped target URL")
	}
}
