package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/config"
	"github.com/torosent/pulsefire/internal/dashboard"
	"github.com/torosent/pulsefire/internal/dispatch"
	"github.com/torosent/pulsefire/internal/metrics"
	"github.com/torosent/pulsefire/internal/pattern"
	"github.com/torosent/pulsefire/internal/report"
	"github.com/torosent/pulsefire/internal/tracing"
	"github.com/torosent/pulsefire/internal/tunnel"
)

const (
	progressInterval = time.Second
	shutdownGrace    = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		config.PrintUsage(os.Stderr)
		return err
	}
	if err := cfg.Validate(); err != nil {
		config.PrintUsage(os.Stderr)
		return err
	}

	if cfg.ShowConfig {
		rendered, err := cfg.RenderYAML()
		if err != nil {
			return err
		}
		os.Stdout.Write(rendered)
		return nil
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runID := ulid.Make().String()
	logger = logger.With(zap.String("run_id", runID))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Tunnel {
		tun := tunnel.New(tunnel.Options{
			Namespace:  cfg.TunnelNamespace,
			Service:    cfg.TunnelService,
			LocalPort:  cfg.LocalPort,
			RemotePort: cfg.TunnelRemotePort,
			Logger:     logger,
		})
		defer tun.Close()
		handle, err := tun.Open(ctx)
		if err != nil {
			return err
		}
		logger.Info("tunnel ready",
			zap.Int("pid", handle.PID),
			zap.Int("local_port", handle.LocalPort))
	}

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
		defer stop()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	if err := report.Preflight(ctx, cfg.TargetURL, logger); err != nil {
		return err
	}
	report.CheckReady(ctx, cfg.TargetURL, logger)

	agg := metrics.NewAggregator()
	agg.SetProbePhase(pattern.PhaseSlowProbe)

	dispatcher := dispatch.New(dispatch.Options{
		BaseURL: cfg.TargetURL,
		RunID:   runID,
		Tracer:  tracer,
		Logger:  logger,
	})

	sched, err := pattern.NewScheduler(pattern.Options{
		Dispatch: dispatcher.Do,
		Recorder: agg,
		Logger:   logger,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return err
	}

	duration := time.Duration(cfg.DurationSeconds) * time.Second
	phases := pattern.BuildPhases(duration, pattern.PlanOptions{
		Flaky:     cfg.Flaky,
		PaceScale: cfg.PaceScale,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(agg, dashboard.RunConfig{
			TargetURL:  cfg.TargetURL,
			Duration:   duration,
			Tunnel:     cfg.Tunnel,
			Flaky:      cfg.Flaky,
			Seed:       cfg.Seed,
			RunID:      runID,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *report.Progress
	if cfg.Output != config.OutputJSON && !cfg.Dashboard {
		progress = report.NewProgress(agg, progressInterval, os.Stdout)
		progress.Start()
	}

	logger.Info("traffic run starting",
		zap.String("target", cfg.TargetURL),
		zap.Duration("duration", duration),
		zap.Int("phases", len(phases)))

	start := time.Now()
	runErr := sched.Run(ctx, phases)
	elapsed := time.Since(start)

	// Live views release the terminal before the reports print.
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}
	if dash != nil {
		dash.Stop()
	}

	interrupted := errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)
	if runErr != nil && !interrupted {
		return runErr
	}

	if interrupted {
		logger.Warn("run interrupted, reporting partial results")
	} else {
		report.Postflight(ctx, cfg.TargetURL, os.Stdout, logger)
	}

	summary := agg.Summary(elapsed)
	if err := writeSummary(cfg, summary); err != nil {
		return err
	}
	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg, summary, runID); err != nil {
			return err
		}
		logger.Info("html report written", zap.String("path", cfg.HTMLOutput))
	}

	if interrupted {
		return errors.New("run interrupted before completion")
	}

	logger.Info("run complete",
		zap.Int64("attempted", summary.Attempted),
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
		zap.Duration("elapsed", elapsed))
	return nil
}

// writeSummary renders the final summary to stdout or, when --output-file is
// set, to that file instead.
func writeSummary(cfg *config.Config, summary metrics.RunSummary) error {
	out := io.Writer(os.Stdout)
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if cfg.Output == config.OutputJSON {
		return report.PrintJSONSummary(out, summary)
	}
	report.PrintSummary(out, summary)
	return nil
}

func writeHTMLReport(cfg *config.Config, summary metrics.RunSummary, runID string) error {
	f, err := os.Create(cfg.HTMLOutput)
	if err != nil {
		return fmt.Errorf("create html report file: %w", err)
	}
	defer f.Close()
	return report.WriteHTMLReport(f, summary, report.HTMLMetadata{
		TargetURL: cfg.TargetURL,
		RunID:     runID,
	})
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if !verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
