package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/httpclient"
)

const (
	probeTimeout  = 5 * time.Second
	maxProbeBytes = 64 * 1024
)

// Preflight verifies the target is reachable and reports healthy before any
// traffic is generated. Every failure is fatal to the run; the returned error
// carries remediation guidance for the operator.
func Preflight(ctx context.Context, baseURL string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := baseURL + "/health"

	body, status, err := probe(ctx, url)
	if err != nil {
		return fmt.Errorf("health check %s: %w; verify the target service is running and reachable (use --tunnel for in-cluster services)", url, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check %s returned %d; the target responded but is not healthy, check its logs", url, status)
	}
	if got := gjson.GetBytes(body, "status").String(); got != "healthy" {
		return fmt.Errorf("health check %s reported status %q, want \"healthy\"", url, got)
	}

	logger.Info("preflight passed",
		zap.String("target", baseURL),
		zap.String("service", gjson.GetBytes(body, "service").String()),
	)
	return nil
}

// CheckReady probes the readiness endpoint. Degraded readiness is logged
// as a warning and never fails the run; the health check already gates it.
func CheckReady(ctx context.Context, baseURL string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	url := baseURL + "/ready"

	body, status, err := probe(ctx, url)
	if err != nil {
		logger.Warn("readiness probe failed", zap.String("url", url), zap.Error(err))
		return
	}
	if status != http.StatusOK {
		logger.Warn("target not ready", zap.String("url", url), zap.Int("status", status))
		return
	}
	logger.Debug("target ready",
		zap.String("url", url),
		zap.String("status", gjson.GetBytes(body, "status").String()),
	)
}

func probe(ctx context.Context, url string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := httpclient.NewClient(probeTimeout).Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
