// Command sampleservice is a runnable stand-in for the demo target service.
// It serves the same endpoints and publishes the same Prometheus series, so
// a traffic run can be exercised end to end without a cluster.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// requestCount counts HTTP requests by method, endpoint, and status.
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sample_service_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// requestDuration tracks handler latency by method and endpoint.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "sample_service_request_duration_seconds",
		Help: "Request duration in seconds",
	}, []string{"method", "endpoint"})

	// serviceUp reads 1 while serving and 0 once shutdown begins.
	serviceUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sample_service_up",
		Help: "Service is up",
	})
)

type server struct {
	logger *zap.Logger
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(
		zap.String("service", "sample-service"),
		zap.String("version", "1.0.0"),
	)

	srv := &server{logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/ready", srv.handleReady)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/users", srv.handleUsers)
	mux.HandleFunc("/api/users/", srv.handleUserByID)
	mux.HandleFunc("/api/slow", srv.handleSlow)
	mux.HandleFunc("/api/error", srv.handleError)
	mux.HandleFunc("/api/flaky", srv.handleFlaky)
	mux.HandleFunc("/", srv.handleHome)

	serviceUp.Set(1)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: srv.withRequestLogging(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting sample service", zap.Int("port", *port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		serviceUp.Set(0)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
		logger.Info("sample service stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	}
}

// withRequestLogging mints a correlation id per request, returns it in the
// X-Correlation-ID header, and logs request start and completion.
func (s *server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := ulid.Make().String()
		w.Header().Set("X-Correlation-ID", correlationID)

		logger := s.logger.With(zap.String("correlation_id", correlationID))
		logger.Info("request started",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
		)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status_code", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "sample-service",
	})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"service": "sample-service",
	})
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	start := time.Now()

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the Sample Service!",
		"version": "1.0.0",
		"service": "sample-service",
		"endpoints": map[string]string{
			"health":  "/health",
			"ready":   "/ready",
			"metrics": "/metrics",
			"users":   "/api/users",
			"slow":    "/api/slow",
			"error":   "/api/error",
		},
	})
	observe(r.Method, "/", http.StatusOK, start)
}

func (s *server) handleUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	processing := sleepBetween(100*time.Millisecond, 500*time.Millisecond)

	// 10% of responses take an extra one to three seconds.
	if rand.Float64() < 0.1 {
		slow := sleepBetween(time.Second, 3*time.Second)
		s.logger.Warn("slow response detected",
			zap.String("operation", "list_users"),
			zap.Duration("slow_duration", slow),
			zap.String("reason", "database_slow_query"),
		)
	}

	n := 3 + rand.Intn(8)
	users := make([]map[string]any, 0, n)
	for i := 1; i < n; i++ {
		users = append(users, map[string]any{
			"id":    i,
			"name":  fmt.Sprintf("User %d", i),
			"email": fmt.Sprintf("user%d@example.com", i),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
	observe(r.Method, "/api/users", http.StatusOK, start)

	s.logger.Info("user list retrieved",
		zap.String("operation", "list_users"),
		zap.Int("user_count", len(users)),
		zap.Duration("processing_time", processing),
	)
}

func (s *server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	id, err := strconv.Atoi(rest)
	if err != nil || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}

	start := time.Now()
	sleepBetween(50*time.Millisecond, 200*time.Millisecond)

	// The labeled endpoint is normalized so ids do not explode cardinality.
	const endpoint = "/api/users/{id}"

	if id > 1000 {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "User not found"})
		observe(r.Method, endpoint, http.StatusNotFound, start)
		s.logger.Warn("user not found",
			zap.String("operation", "get_user"),
			zap.Int("user_id", id),
		)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"name":       fmt.Sprintf("User %d", id),
		"email":      fmt.Sprintf("user%d@example.com", id),
		"created_at": "2023-01-01T00:00:00Z",
	})
	observe(r.Method, endpoint, http.StatusOK, start)
}

func (s *server) handleSlow(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	operationType := pick("database_query", "external_api_call", "heavy_computation", "file_processing")
	slow := sleepBetween(2*time.Second, 5*time.Second)

	respondJSON(w, http.StatusOK, map[string]any{
		"message":         "This is a slow endpoint for testing monitoring",
		"processing_time": slow.Seconds(),
		"operation_type":  operationType,
	})
	observe(r.Method, "/api/slow", http.StatusOK, start)

	s.logger.Info("slow operation completed",
		zap.String("operation", "slow_endpoint"),
		zap.String("operation_type", operationType),
		zap.Duration("slow_duration", slow),
	)
}

func (s *server) handleError(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	errorType := pick("database_timeout", "external_service_down", "memory_limit", "invalid_state")
	errorID := fmt.Sprintf("%08x", rand.Uint32())

	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"error":      "Internal server error",
		"message":    "This endpoint always returns an error for testing",
		"error_type": errorType,
		"error_id":   errorID,
	})
	observe(r.Method, "/api/error", http.StatusInternalServerError, start)

	s.logger.Error("predictable error endpoint triggered",
		zap.String("operation", "error_endpoint"),
		zap.String("error_type", errorType),
		zap.String("error_id", errorID),
	)
}

func (s *server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// 30% of calls fail.
	if rand.Float64() < 0.3 {
		errorType := pick("network_timeout", "service_unavailable", "rate_limit", "circuit_breaker")
		errorID := fmt.Sprintf("%08x", rand.Uint32())

		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      "Service temporarily unavailable",
			"message":    "This endpoint fails intermittently for realistic testing",
			"error_type": errorType,
			"error_id":   errorID,
		})
		observe(r.Method, "/api/flaky", http.StatusInternalServerError, start)

		s.logger.Error("flaky endpoint error occurred",
			zap.String("operation", "flaky_endpoint"),
			zap.String("error_type", errorType),
			zap.String("error_id", errorID),
		)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Success! The flaky endpoint worked this time.",
	})
	observe(r.Method, "/api/flaky", http.StatusOK, start)
}

func observe(method, endpoint string, status int, start time.Time) {
	requestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	requestCount.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sleepBetween(min, max time.Duration) time.Duration {
	d := min + time.Duration(rand.Int63n(int64(max-min)))
	time.Sleep(d)
	return d
}

func pick(options ...string) string {
	return options[rand.Intn(len(options))]
}
