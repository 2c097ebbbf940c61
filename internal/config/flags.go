package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pulsefire [duration-seconds]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("target", DefaultTargetURL, "Base URL of the service under traffic")

	// Tunnel flags
	flags.Bool("tunnel", false, "Establish a kubectl port-forward tunnel before generating traffic")
	flags.StringP("namespace", "n", DefaultNamespace, "Kubernetes namespace of the target service")
	flags.String("service", DefaultService, "Kubernetes service to port-forward to")
	flags.Int("local-port", DefaultLocalPort, "Local port for the tunnel")
	flags.Int("remote-port", DefaultRemotePort, "Remote service port for the tunnel")

	// Traffic shaping flags
	flags.Int64("seed", 0, "Random seed for endpoint selection (0 means time-derived)")
	flags.Bool("flaky", false, "Include the flaky endpoint in the normal traffic mix")
	flags.Float64("pace-scale", 1.0, "Scale factor applied to pacing intervals")

	// Output flags
	flags.String("output", string(OutputText), "Report format: 'text' or 'json'")
	flags.String("output-file", "", "Write the final report to the specified file path")
	flags.String("html-output", "", "Write a standalone HTML report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard while phases run")
	flags.BoolP("verbose", "v", false, "Enable debug-level logging")
	flags.Bool("show-config", false, "Print the resolved configuration as YAML and exit")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.Bool("trace", false, "Emit OpenTelemetry spans per dispatched request")
	flags.String("trace-endpoint", "", "OTLP collector endpoint (falls back to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.String("trace-service", "", "Service name reported on spans")
	flags.Bool("trace-insecure", false, "Disable TLS when exporting spans")

	if f := flags.Lookup("pace-scale"); f != nil {
		f.Hidden = true
	}
}

// PrintUsage renders the usage block to w. Rejected arguments and failed
// validation show this alongside the error so the operator sees the
// accepted surface without re-running with --help.
func PrintUsage(w io.Writer) {
	cmd := newFlagCommand()
	cmd.SetOut(w)
	displayHelp(cmd)
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("tunnel") {
		val, err := fs.GetBool("tunnel")
		if err != nil {
			return err
		}
		cfg.Tunnel = val
	}
	if fs.Changed("namespace") {
		val, err := fs.GetString("namespace")
		if err != nil {
			return err
		}
		cfg.TunnelNamespace = strings.TrimSpace(val)
	}
	if fs.Changed("service") {
		val, err := fs.GetString("service")
		if err != nil {
			return err
		}
		cfg.TunnelService = strings.TrimSpace(val)
	}
	if fs.Changed("local-port") {
		val, err := fs.GetInt("local-port")
		if err != nil {
			return err
		}
		cfg.LocalPort = val
	}
	if fs.Changed("remote-port") {
		val, err := fs.GetInt("remote-port")
		if err != nil {
			return err
		}
		cfg.TunnelRemotePort = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("flaky") {
		val, err := fs.GetBool("flaky")
		if err != nil {
			return err
		}
		cfg.Flaky = val
	}
	if fs.Changed("pace-scale") {
		val, err := fs.GetFloat64("pace-scale")
		if err != nil {
			return err
		}
		cfg.PaceScale = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputMode(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("output-file") {
		val, err := fs.GetString("output-file")
		if err != nil {
			return err
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("show-config") {
		val, err := fs.GetBool("show-config")
		if err != nil {
			return err
		}
		cfg.ShowConfig = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-service") {
		val, err := fs.GetString("trace-service")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}

	return nil
}
