package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Defaults for the traffic run. Target, namespace, service, and ports were
// historically baked-in constants; they remain the defaults and are now
// overridable via flags or a config file.
const (
	DefaultTargetURL  = "http://localhost:8080"
	DefaultDuration   = 60
	MinDuration       = 10
	DefaultNamespace  = "default"
	DefaultService    = "sample-service"
	DefaultLocalPort  = 8080
	DefaultRemotePort = 8080
)

type OutputMode string

const (
	OutputText OutputMode = "text"
	OutputJSON OutputMode = "json"
)

type Config struct {
	TargetURL        string        `mapstructure:"target"`
	DurationSeconds  int           `mapstructure:"duration"`
	Tunnel           bool          `mapstructure:"tunnel"`
	TunnelNamespace  string        `mapstructure:"namespace"`
	TunnelService    string        `mapstructure:"service"`
	TunnelRemotePort int           `mapstructure:"remote_port"`
	LocalPort        int           `mapstructure:"local_port"`
	Seed             int64         `mapstructure:"seed"`
	Flaky            bool          `mapstructure:"flaky"`
	Output           OutputMode    `mapstructure:"output"`
	OutputFile       string        `mapstructure:"output_file"`
	HTMLOutput       string        `mapstructure:"html_output"`
	Dashboard        bool          `mapstructure:"dashboard"`
	Verbose          bool          `mapstructure:"verbose"`
	ShowConfig       bool          `mapstructure:"-"`
	PaceScale        float64       `mapstructure:"pace_scale"`
	Tracing          TracingConfig `mapstructure:"tracing"`
	ConfigFile       string        `mapstructure:"-"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if parsed, err := url.Parse(target); err != nil {
		issues = append(issues, fmt.Sprintf("target %q is not a valid URL", target))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target scheme must be http or https, got %q", parsed.Scheme))
	}

	if c.DurationSeconds < MinDuration {
		issues = append(issues, fmt.Sprintf("duration must be at least %d seconds, got %d", MinDuration, c.DurationSeconds))
	}

	if c.Tunnel {
		if strings.TrimSpace(c.TunnelNamespace) == "" {
			issues = append(issues, "namespace is required when tunnel is enabled")
		}
		if strings.TrimSpace(c.TunnelService) == "" {
			issues = append(issues, "service is required when tunnel is enabled")
		}
	}
	if c.LocalPort < 1 || c.LocalPort > 65535 {
		issues = append(issues, fmt.Sprintf("local port must be between 1 and 65535, got %d", c.LocalPort))
	}
	if c.TunnelRemotePort < 1 || c.TunnelRemotePort > 65535 {
		issues = append(issues, fmt.Sprintf("remote port must be between 1 and 65535, got %d", c.TunnelRemotePort))
	}

	switch c.Output {
	case OutputText, OutputJSON:
	default:
		issues = append(issues, fmt.Sprintf("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output))
	}
	if c.Dashboard && c.Output == OutputJSON {
		issues = append(issues, "dashboard and json output are mutually exclusive")
	}

	if c.PaceScale <= 0 {
		issues = append(issues, fmt.Sprintf("pace scale must be > 0, got %g", c.PaceScale))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(tc TracingConfig) []string {
	var issues []string
	if !tc.Enabled {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(tc.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be \"grpc\" or \"http\", got %q", tc.Protocol))
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample rate must be between 0.0 and 1.0, got %g", tc.SampleRate))
	}
	return issues
}
