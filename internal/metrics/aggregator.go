package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Aggregator accumulates classified outcomes for a whole run and for the
// phase currently in flight. Phases run one at a time; the scheduler brackets
// each phase loop with StartPhase and EndPhase. Record is safe to call
// concurrently with Summary, which the dashboard polls during a run.
type Aggregator struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	run        counts
	breakdown  map[Class]map[string]int
	current    *phaseState
	phases     []PhaseResult
	probePhase string
}

type counts struct {
	attempted  int64
	succeeded  int64
	failed     int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

func (c *counts) observe(o Outcome) {
	c.attempted++
	if o.Success() {
		c.succeeded++
	} else {
		c.failed++
	}
	c.sumLatency += o.Latency
	if c.minLatency == 0 || o.Latency < c.minLatency {
		c.minLatency = o.Latency
	}
	if o.Latency > c.maxLatency {
		c.maxLatency = o.Latency
	}
}

func (c counts) mean() time.Duration {
	if c.attempted == 0 {
		return 0
	}
	return time.Duration(int64(c.sumLatency) / c.attempted)
}

type phaseState struct {
	name      string
	start     time.Time
	counts    counts
	breakdown map[Class]map[string]int
	latencies []time.Duration
}

// PhaseResult is the aggregated outcome of one completed phase.
type PhaseResult struct {
	Name        string        `json:"name"`
	Attempted   int64         `json:"attempted"`
	Succeeded   int64         `json:"succeeded"`
	Failed      int64         `json:"failed"`
	Duration    time.Duration `json:"-"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	DurationMs    float64 `json:"duration_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`

	Breakdown map[Class]map[string]int `json:"breakdown,omitempty"`

	// Latencies holds every recorded latency in dispatch order. LatenciesMs
	// is populated only for the probe phase, which reports each sample.
	Latencies   []time.Duration `json:"-"`
	LatenciesMs []float64       `json:"latencies_ms,omitempty"`
}

// RunSummary represents aggregated metrics for the whole run.
type RunSummary struct {
	Attempted int64 `json:"attempted"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`

	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	DurationMs    float64 `json:"duration_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	Breakdown map[Class]map[string]int `json:"breakdown,omitempty"`
	Phases    []PhaseResult            `json:"phases,omitempty"`

	ProbeMeanLatency   time.Duration `json:"-"`
	ProbeMeanLatencyMs float64       `json:"probe_mean_latency_ms,omitempty"`
}

func NewAggregator() *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Aggregator{
		hist:      hdrhistogram.New(1, 60_000_000, 3),
		breakdown: make(map[Class]map[string]int),
	}
}

// SetProbePhase names the phase whose individual samples are surfaced in
// results. Empty disables per-sample reporting.
func (a *Aggregator) SetProbePhase(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.probePhase = name
}

// StartPhase begins attributing recorded outcomes to the named phase. A phase
// still in flight is finished first.
func (a *Aggregator) StartPhase(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.phases = append(a.phases, a.finishCurrentLocked())
	}
	a.current = &phaseState{
		name:      name,
		start:     time.Now(),
		breakdown: make(map[Class]map[string]int),
	}
}

// Record folds one outcome into the run totals and into the active phase.
// Outcomes recorded between phases still count toward the run totals.
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.run.observe(o)
	if o.Latency > 0 {
		us := o.Latency.Microseconds()
		if us < a.hist.LowestTrackableValue() {
			us = a.hist.LowestTrackableValue()
		}
		if us > a.hist.HighestTrackableValue() {
			us = a.hist.HighestTrackableValue()
		}
		_ = a.hist.RecordValue(us)
	}
	bumpBreakdown(a.breakdown, o)

	if a.current != nil {
		a.current.counts.observe(o)
		bumpBreakdown(a.current.breakdown, o)
		a.current.latencies = append(a.current.latencies, o.Latency)
	}
}

// EndPhase closes the active phase and returns its result. Calling EndPhase
// with no phase in flight returns a zero result.
func (a *Aggregator) EndPhase() PhaseResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return PhaseResult{}
	}
	res := a.finishCurrentLocked()
	a.phases = append(a.phases, res)
	return res
}

// Phases returns the results of all completed phases in execution order.
func (a *Aggregator) Phases() []PhaseResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]PhaseResult(nil), a.phases...)
}

// Summary computes run-wide statistics for the given elapsed wall time.
// Completed phases are included in execution order; a phase still in flight
// is reported from its counts at the time of the call.
func (a *Aggregator) Summary(elapsed time.Duration) RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := RunSummary{
		Attempted:   a.run.attempted,
		Succeeded:   a.run.succeeded,
		Failed:      a.run.failed,
		MinLatency:  a.run.minLatency,
		MaxLatency:  a.run.maxLatency,
		MeanLatency: a.run.mean(),
	}

	if a.hist.TotalCount() > 0 {
		s.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		s.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		s.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	s.MinLatencyMs = float64(s.MinLatency) / float64(time.Millisecond)
	s.MaxLatencyMs = float64(s.MaxLatency) / float64(time.Millisecond)
	s.MeanLatencyMs = float64(s.MeanLatency) / float64(time.Millisecond)
	s.P50LatencyMs = float64(s.P50Latency) / float64(time.Millisecond)
	s.P90LatencyMs = float64(s.P90Latency) / float64(time.Millisecond)
	s.P99LatencyMs = float64(s.P99Latency) / float64(time.Millisecond)

	s.Duration = elapsed
	s.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && s.Attempted > 0 {
		s.RequestsPerSec = float64(s.Attempted) / elapsed.Seconds()
	}

	if len(a.breakdown) > 0 {
		s.Breakdown = copyBreakdown(a.breakdown)
	}

	s.Phases = append([]PhaseResult(nil), a.phases...)
	if a.current != nil {
		s.Phases = append(s.Phases, a.phaseResultLocked(a.current))
	}

	for _, p := range s.Phases {
		if a.probePhase != "" && p.Name == a.probePhase {
			s.ProbeMeanLatency = p.MeanLatency
			s.ProbeMeanLatencyMs = p.MeanLatencyMs
		}
	}

	return s
}

func (a *Aggregator) finishCurrentLocked() PhaseResult {
	res := a.phaseResultLocked(a.current)
	a.current = nil
	return res
}

func (a *Aggregator) phaseResultLocked(ps *phaseState) PhaseResult {
	res := PhaseResult{
		Name:        ps.name,
		Attempted:   ps.counts.attempted,
		Succeeded:   ps.counts.succeeded,
		Failed:      ps.counts.failed,
		Duration:    time.Since(ps.start),
		MinLatency:  ps.counts.minLatency,
		MaxLatency:  ps.counts.maxLatency,
		MeanLatency: ps.counts.mean(),
		Latencies:   append([]time.Duration(nil), ps.latencies...),
	}

	res.DurationMs = float64(res.Duration) / float64(time.Millisecond)
	res.MinLatencyMs = float64(res.MinLatency) / float64(time.Millisecond)
	res.MaxLatencyMs = float64(res.MaxLatency) / float64(time.Millisecond)
	res.MeanLatencyMs = float64(res.MeanLatency) / float64(time.Millisecond)

	if len(ps.breakdown) > 0 {
		res.Breakdown = copyBreakdown(ps.breakdown)
	}
	if a.probePhase != "" && ps.name == a.probePhase {
		res.LatenciesMs = make([]float64, len(res.Latencies))
		for i, l := range res.Latencies {
			res.LatenciesMs[i] = float64(l) / float64(time.Millisecond)
		}
	}
	return res
}

func bumpBreakdown(buckets map[Class]map[string]int, o Outcome) {
	details := buckets[o.Class]
	if details == nil {
		details = make(map[string]int)
		buckets[o.Class] = details
	}
	details[breakdownDetail(o)]++
}

func copyBreakdown(buckets map[Class]map[string]int) map[Class]map[string]int {
	out := make(map[Class]map[string]int, len(buckets))
	for class, details := range buckets {
		inner := make(map[string]int, len(details))
		for detail, count := range details {
			inner[detail] = count
		}
		out[class] = inner
	}
	return out
}
