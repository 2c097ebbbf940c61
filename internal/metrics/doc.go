// Package metrics classifies dispatched requests and aggregates them into
// per-phase and run-wide statistics.
//
// Every request produces an [Outcome]: endpoint, outcome class, HTTP status
// (zero for transport failures), and latency. [ClassifyStatus] buckets an
// observed status into success, client-error, server-error, or unexpected;
// transport failures carry a short reason derived with [TransportReason].
// Every outcome is counted somewhere: unexpected statuses are recorded as
// failures rather than dropped.
//
// # Aggregator
//
// The central [Aggregator] type accumulates outcomes for the whole run and
// for the phase currently in flight:
//
//	agg := metrics.NewAggregator()
//	agg.StartPhase("normal")
//	agg.Record(outcome)
//	result := agg.EndPhase()
//
//	summary := agg.Summary(elapsed)
//
// # Statistics
//
// [RunSummary] provides run-wide counts, latency percentiles (P50, P90, P99)
// backed by an HDR histogram, requests per second, and the completed
// [PhaseResult] list. Breakdown maps count outcomes by class and detail
// (status code or transport reason); [FlattenBreakdown] turns them into
// sorted rows for reporting.
//
// # Thread Safety
//
// Record and Summary are safe to call concurrently; the dashboard polls
// Summary while a run is active.
package metrics
