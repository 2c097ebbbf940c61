package dispatch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/httpclient"
	"github.com/torosent/pulsefire/internal/metrics"
	"github.com/torosent/pulsefire/internal/tracing"
)

const userAgent = "pulsefire"

// Bodies are drained so connections return to the pool; the limit guards
// against a misbehaving endpoint streaming forever.
const maxDrainBytes = 1 << 20

// Options configures a Dispatcher.
type Options struct {
	// BaseURL is the scheme://host:port prefix every endpoint path is
	// appended to.
	BaseURL string
	// RunID is stamped on every request as the X-Run-Id header.
	RunID string
	// DefaultTimeout applies when a dispatch does not carry its own.
	DefaultTimeout time.Duration
	Tracer         *tracing.Provider
	Logger         *zap.Logger
}

// Dispatcher issues single GET requests against the target service and
// classifies every result into a metrics.Outcome. Classification is total:
// transport failures and unexpected statuses become outcomes, never errors.
type Dispatcher struct {
	baseURL        string
	runID          string
	defaultTimeout time.Duration
	tracer         *tracing.Provider
	logger         *zap.Logger

	mu      sync.Mutex
	clients map[time.Duration]*http.Client
}

func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		runID:          opts.RunID,
		defaultTimeout: timeout,
		tracer:         opts.Tracer,
		logger:         logger,
		clients:        make(map[time.Duration]*http.Client),
	}
}

// Do issues one GET to path with the given timeout and classifies the result.
// A zero timeout falls back to the dispatcher default. The endpoint label is
// carried into the outcome and the request span.
func (d *Dispatcher) Do(ctx context.Context, endpoint, path string, timeout time.Duration) metrics.Outcome {
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqCtx, span := tracing.StartRequestSpan(reqCtx, d.tracer.Tracer(), endpoint, path)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		tracing.EndSpan(span, err)
		d.logger.Debug("request build failed",
			zap.String("endpoint", endpoint),
			zap.String("path", path),
			zap.Error(err),
		)
		return metrics.Outcome{
			Endpoint: endpoint,
			Class:    metrics.ClassTransport,
			Reason:   metrics.TransportReason(err),
		}
	}
	req.Header.Set("User-Agent", userAgent)
	if d.runID != "" {
		req.Header.Set("X-Run-Id", d.runID)
	}
	if d.tracer.ShouldPropagate() {
		tracing.InjectHTTPHeaders(reqCtx, req.Header)
	}

	start := time.Now()
	resp, err := d.client(timeout).Do(req)
	latency := time.Since(start)

	if err != nil {
		reason := metrics.TransportReason(err)
		tracing.EndSpan(span, err)
		d.logger.Debug("request failed",
			zap.String("endpoint", endpoint),
			zap.String("path", path),
			zap.String("reason", reason),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return metrics.Outcome{
			Endpoint: endpoint,
			Class:    metrics.ClassTransport,
			Latency:  latency,
			Reason:   reason,
		}
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()

	class := metrics.ClassifyStatus(resp.StatusCode)
	tracing.EndSpan(span, nil,
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.String("pulsefire.class", string(class)),
	)
	d.logger.Debug("request completed",
		zap.String("endpoint", endpoint),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("class", string(class)),
		zap.Duration("latency", latency),
	)

	return metrics.Outcome{
		Endpoint: endpoint,
		Class:    class,
		Status:   resp.StatusCode,
		Latency:  latency,
	}
}

// client returns the cached client for a timeout, building it on first use.
// One client per distinct timeout keeps connection pooling effective across
// requests that share a budget.
func (d *Dispatcher) client(timeout time.Duration) *http.Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.clients[timeout]
	if !ok {
		c = httpclient.NewClient(timeout)
		d.clients[timeout] = c
	}
	return c
}
