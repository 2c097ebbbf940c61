// Package pattern defines the phased traffic plan and the engine that
// executes it.
//
// A run is a fixed progression of phases, each with its own endpoint mix,
// pacing, and termination rule:
//   - Time-bound phases draw endpoints from a weighted [EndpointSpec] table
//     until their window lapses.
//   - Fixed-count phases dispatch every entry of a Sequence serially per
//     iteration.
//
// # Standard Plan
//
// [BuildPhases] lays the standard four phases over the run duration:
//
//	phases := pattern.BuildPhases(60*time.Second, pattern.PlanOptions{})
//
//  1. normal: weighted steady traffic with 1-2s jitter for 60% of the total
//  2. spike: 15 paired listing/health iterations at 500ms
//  3. error-burst: 10 error endpoint hits at 800ms
//  4. slow-probe: 5 slow endpoint hits at 1s, each latency reported
//
// # Scheduler
//
// The [Scheduler] runs phases strictly in order, one dispatch at a time,
// recording every outcome:
//
//	s, err := pattern.NewScheduler(pattern.Options{
//		Dispatch: dispatcher.Do,
//		Recorder: aggregator,
//		Seed:     42,
//	})
//	err = s.Run(ctx, phases)
//
// Pacing spaces dispatches without delaying phase starts: fixed paces ride a
// rate.Limiter, jittered paces draw uniform delays from the scheduler's
// seeded random source. The same source drives endpoint selection, so a
// fixed seed reproduces the full traffic shape.
package pattern
