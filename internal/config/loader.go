package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// The single optional positional argument is the run duration in whole seconds.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		TargetURL:        DefaultTargetURL,
		DurationSeconds:  DefaultDuration,
		TunnelNamespace:  DefaultNamespace,
		TunnelService:    DefaultService,
		TunnelRemotePort: DefaultRemotePort,
		LocalPort:        DefaultLocalPort,
		Output:           OutputText,
		PaceScale:        1.0,
		Tracing:          TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:       configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	positional := flagSet.Args()
	switch len(positional) {
	case 0:
	case 1:
		seconds, err := strconv.Atoi(strings.TrimSpace(positional[0]))
		if err != nil {
			return nil, fmt.Errorf("duration must be an integer number of seconds, got %q", positional[0])
		}
		cfg.DurationSeconds = seconds
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.DurationSeconds = val
	}

	if raw, ok := lookupSetting(settings, "tunnel"); ok {
		if err := applyTunnelSettings(cfg, raw); err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = int64(val)
	}

	if raw, ok := lookupSetting(settings, "flaky"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("flaky: %w", err)
		}
		cfg.Flaky = val
	}

	if raw, ok := lookupSetting(settings, "pacescale", "pace_scale", "pace-scale"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("paceScale: %w", err)
		}
		cfg.PaceScale = val
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if val != "" {
			cfg.Output = OutputMode(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "outputfile", "output_file", "output-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("outputFile: %w", err)
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		mergeTracing(&cfg.Tracing, tracing)
	}

	return nil
}

// applyTunnelSettings accepts either a bare boolean ("tunnel: true") or a
// nested map with enabled/namespace/service/port fields.
func applyTunnelSettings(cfg *Config, value interface{}) error {
	switch v := value.(type) {
	case bool:
		cfg.Tunnel = v
		return nil
	case string:
		enabled, err := asBool(v)
		if err != nil {
			return err
		}
		cfg.Tunnel = enabled
		return nil
	default:
		entry, err := toStringKeyMap(value)
		if err != nil {
			return err
		}
		if raw, ok := lookupSetting(entry, "enabled"); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("enabled: %w", err)
			}
			cfg.Tunnel = val
		}
		if raw, ok := lookupSetting(entry, "namespace"); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("namespace: %w", err)
			}
			if strings.TrimSpace(val) != "" {
				cfg.TunnelNamespace = strings.TrimSpace(val)
			}
		}
		if raw, ok := lookupSetting(entry, "service"); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("service: %w", err)
			}
			if strings.TrimSpace(val) != "" {
				cfg.TunnelService = strings.TrimSpace(val)
			}
		}
		if raw, ok := lookupSetting(entry, "localport", "local_port", "local-port"); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("local_port: %w", err)
			}
			cfg.LocalPort = val
		}
		if raw, ok := lookupSetting(entry, "remoteport", "remote_port", "remote-port"); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("remote_port: %w", err)
			}
			cfg.TunnelRemotePort = val
		}
		return nil
	}
}

func parseTracing(value interface{}) (TracingConfig, error) {
	if value == nil {
		return TracingConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	var tc TracingConfig
	if raw, ok := lookupSetting(entry, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("enabled: %w", err)
		}
		tc.Enabled = val
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	return tc, nil
}

func mergeTracing(dst *TracingConfig, src TracingConfig) {
	dst.Enabled = src.Enabled
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Protocol != "" {
		dst.Protocol = src.Protocol
	}
	if src.SampleRate > 0 {
		dst.SampleRate = src.SampleRate
	}
	if src.ServiceName != "" {
		dst.ServiceName = src.ServiceName
	}
	dst.Insecure = src.Insecure
}
