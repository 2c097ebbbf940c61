package config

import "gopkg.in/yaml.v3"

type resolvedConfig struct {
	Target   string         `yaml:"target"`
	Duration int            `yaml:"duration"`
	Tunnel   resolvedTunnel `yaml:"tunnel"`
	Seed     int64          `yaml:"seed"`
	Flaky    bool           `yaml:"flaky"`
	Output   resolvedOutput `yaml:"output"`
	Tracing  resolvedTrace  `yaml:"tracing"`
}

type resolvedTunnel struct {
	Enabled    bool   `yaml:"enabled"`
	Namespace  string `yaml:"namespace"`
	Service    string `yaml:"service"`
	LocalPort  int    `yaml:"local_port"`
	RemotePort int    `yaml:"remote_port"`
}

type resolvedOutput struct {
	Mode      OutputMode `yaml:"mode"`
	File      string     `yaml:"file,omitempty"`
	HTML      string     `yaml:"html,omitempty"`
	Dashboard bool       `yaml:"dashboard"`
}

type resolvedTrace struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint,omitempty"`
	Protocol   string  `yaml:"protocol"`
	SampleRate float64 `yaml:"sample_rate"`
	Service    string  `yaml:"service_name,omitempty"`
	Insecure   bool    `yaml:"insecure"`
}

// RenderYAML serializes the fully resolved configuration, after defaults,
// config file, and flag overrides have been applied.
func (c Config) RenderYAML() ([]byte, error) {
	resolved := resolvedConfig{
		Target:   c.TargetURL,
		Duration: c.DurationSeconds,
		Tunnel: resolvedTunnel{
			Enabled:    c.Tunnel,
			Namespace:  c.TunnelNamespace,
			Service:    c.TunnelService,
			LocalPort:  c.LocalPort,
			RemotePort: c.TunnelRemotePort,
		},
		Seed:  c.Seed,
		Flaky: c.Flaky,
		Output: resolvedOutput{
			Mode:      c.Output,
			File:      c.OutputFile,
			HTML:      c.HTMLOutput,
			Dashboard: c.Dashboard,
		},
		Tracing: resolvedTrace{
			Enabled:    c.Tracing.Enabled,
			Endpoint:   c.Tracing.Endpoint,
			Protocol:   c.Tracing.Protocol,
			SampleRate: c.Tracing.SampleRate,
			Service:    c.Tracing.ServiceName,
			Insecure:   c.Tracing.Insecure,
		},
	}
	return yaml.Marshal(resolved)
}
