package config

import (
	"testing"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsFloat64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  float64
	}{
		{1.5, 1.5},
		{"0.25", 0.25},
		{10, 10.0},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asFloat64(tt.input)
		if err != nil {
			t.Errorf("asFloat64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asFloat64(%v) = %g, want %g", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{
		TunnelNamespace: DefaultNamespace,
		TunnelService:   DefaultService,
	}
	settings := map[string]interface{}{
		"target":      "http://example.com",
		"duration":    45,
		"seed":        "99",
		"html_output": "report.html",
		"tunnel": map[string]interface{}{
			"enabled":   true,
			"namespace": "loadtest",
		},
		"tracing": map[string]interface{}{
			"enabled":  true,
			"endpoint": "collector:4318",
			"protocol": "http",
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.TargetURL != "http://example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.DurationSeconds != 45 {
		t.Errorf("DurationSeconds = %d, want 45", cfg.DurationSeconds)
	}
	if cfg.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Seed)
	}
	if cfg.HTMLOutput != "report.html" {
		t.Errorf("HTMLOutput = %q, want report.html", cfg.HTMLOutput)
	}
	if !cfg.Tunnel {
		t.Error("Tunnel = false, want true")
	}
	if cfg.TunnelNamespace != "loadtest" {
		t.Errorf("TunnelNamespace = %q, want loadtest", cfg.TunnelNamespace)
	}
	if cfg.TunnelService != DefaultService {
		t.Errorf("TunnelService = %q, want default preserved", cfg.TunnelService)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Protocol != "http" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestApplyTunnelSettingsVariants(t *testing.T) {
	cfg := &Config{}
	if err := applyTunnelSettings(cfg, true); err != nil {
		t.Fatalf("bool form error = %v", err)
	}
	if !cfg.Tunnel {
		t.Error("bool form did not enable tunnel")
	}

	cfg = &Config{}
	if err := applyTunnelSettings(cfg, "true"); err != nil {
		t.Fatalf("string form error = %v", err)
	}
	if !cfg.Tunnel {
		t.Error("string form did not enable tunnel")
	}

	cfg = &Config{}
	entry := map[interface{}]interface{}{
		"Enabled":     true,
		"local_port":  "18080",
		"remote_port": 9090,
	}
	if err := applyTunnelSettings(cfg, entry); err != nil {
		t.Fatalf("map form error = %v", err)
	}
	if !cfg.Tunnel || cfg.LocalPort != 18080 || cfg.TunnelRemotePort != 9090 {
		t.Errorf("map form cfg = %+v", cfg)
	}
}

func TestLookupSettingCaseInsensitive(t *testing.T) {
	settings := map[string]interface{}{"localport": 9000}
	if _, ok := lookupSetting(settings, "LocalPort", "local_port"); !ok {
		t.Error("expected case-insensitive lookup to find localport")
	}
}

func TestToStringKeyMapRejectsNonMap(t *testing.T) {
	if _, err := toStringKeyMap("not a map"); err == nil {
		t.Error("expected error for non-map value")
	}
}
