// Package report covers the run's outward-facing checks and rendering: the
// preflight health gate, the warn-only postflight metrics scrape, the final
// summary in text, JSON, or standalone HTML, and the live progress line.
//
// [Preflight] is the only member that can fail the run; it confirms the
// target answers its health endpoint with a healthy payload before the first
// phase. [Postflight] scrapes the target's Prometheus exposition afterwards
// and prints the request totals and up gauge, downgrading every problem to a
// warning since the traffic already ran.
package report
