package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/config"
	"github.com/torosent/pulsefire/internal/metrics"
)

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("run(--help) = %v, want nil", err)
	}
}

func TestRunInvalidDuration(t *testing.T) {
	err := run([]string{"--target", "http://localhost:8080", "5"})
	if err == nil {
		t.Fatal("expected validation error for a 5 second duration")
	}
	if !strings.Contains(err.Error(), "duration must be at least") {
		t.Errorf("error = %v, want duration validation message", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// captureStderr runs fn with os.Stderr redirected and returns what it wrote.
func captureStderr(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	old := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = old }()

	runErr := fn()
	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stderr: %v", err)
	}
	return string(data), runErr
}

func TestRunRejectedDurationPrintsUsage(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"below minimum", []string{"--target", "http://localhost:8080", "5"}},
		{"not an integer", []string{"ninety"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := captureStderr(t, func() error { return run(tc.args) })
			if err == nil {
				t.Fatal("expected error for rejected duration")
			}
			if !strings.Contains(output, "Usage:") {
				t.Errorf("expected usage text on stderr, got:\n%s", output)
			}
			if !strings.Contains(output, "--tunnel") {
				t.Errorf("expected flag listing in usage text, got:\n%s", output)
			}
		})
	}
}

func TestRunRejectsExtraArguments(t *testing.T) {
	err := run([]string{"60", "extra"})
	if err == nil || !strings.Contains(err.Error(), "unexpected arguments") {
		t.Errorf("error = %v, want unexpected arguments", err)
	}
}

func TestRunShowConfig(t *testing.T) {
	if err := run([]string{"--show-config"}); err != nil {
		t.Fatalf("run(--show-config) = %v, want nil", err)
	}
}

func TestWriteSummaryJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	cfg := &config.Config{Output: config.OutputJSON, OutputFile: path}
	summary := metrics.RunSummary{Attempted: 12, Succeeded: 10, Failed: 2}

	if err := writeSummary(cfg, summary); err != nil {
		t.Fatalf("writeSummary() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary file: %v", err)
	}
	var decoded metrics.RunSummary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("parse summary file: %v", err)
	}
	if decoded.Attempted != 12 || decoded.Failed != 2 {
		t.Errorf("decoded attempted=%d failed=%d, want 12 and 2", decoded.Attempted, decoded.Failed)
	}
}

func TestWriteSummaryTextToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	cfg := &config.Config{Output: config.OutputText, OutputFile: path}
	summary := metrics.RunSummary{
		Attempted: 3,
		Succeeded: 3,
		Duration:  2 * time.Second,
	}

	if err := writeSummary(cfg, summary); err != nil {
		t.Fatalf("writeSummary() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary file: %v", err)
	}
	if !strings.Contains(string(data), "Total Requests:    3") {
		t.Errorf("text summary missing request total:\n%s", data)
	}
}

func TestWriteSummaryBadPath(t *testing.T) {
	cfg := &config.Config{
		Output:     config.OutputText,
		OutputFile: filepath.Join(t.TempDir(), "missing-dir", "summary.txt"),
	}
	if err := writeSummary(cfg, metrics.RunSummary{}); err == nil {
		t.Fatal("expected error for unwritable output path")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	quiet, err := newLogger(false)
	if err != nil {
		t.Fatalf("newLogger(false) error: %v", err)
	}
	if quiet.Core().Enabled(zap.DebugLevel) {
		t.Error("default logger should not emit debug")
	}

	verbose, err := newLogger(true)
	if err != nil {
		t.Fatalf("newLogger(true) error: %v", err)
	}
	if !verbose.Core().Enabled(zap.DebugLevel) {
		t.Error("verbose logger should emit debug")
	}
}
