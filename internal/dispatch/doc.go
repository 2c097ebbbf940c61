// Package dispatch issues individual HTTP requests against the target
// service and classifies each result.
//
// [Dispatcher.Do] performs exactly one GET and always produces a
// [github.com/torosent/pulsefire/internal/metrics.Outcome]: a response maps
// to a class by status code, while timeouts and connection failures become
// transport outcomes with a short reason instead of surfacing as errors.
// Every request carries the run ID header and, when tracing is enabled, a
// client span with W3C context injected into the outgoing headers.
//
// Clients are cached per timeout so endpoints that share a budget also share
// a connection pool.
package dispatch
