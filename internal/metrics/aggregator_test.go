package metrics_test

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/torosent/pulsefire/internal/metrics"
)

func success(latency time.Duration) metrics.Outcome {
	return metrics.Outcome{
		Endpoint: "/api/users",
		Class:    metrics.ClassSuccess,
		Status:   200,
		Latency:  latency,
	}
}

func TestAggregatorLatencyStats(t *testing.T) {
	agg := metrics.NewAggregator()

	// Record deterministic latencies.
	agg.Record(success(10 * time.Millisecond))
	agg.Record(success(20 * time.Millisecond))
	agg.Record(success(30 * time.Millisecond))
	agg.Record(success(40 * time.Millisecond))
	agg.Record(success(50 * time.Millisecond))

	s := agg.Summary(0)

	if s.Attempted != 5 {
		t.Errorf("expected attempted 5, got %d", s.Attempted)
	}
	if s.Succeeded != 5 {
		t.Errorf("expected succeeded 5, got %d", s.Succeeded)
	}
	if s.Failed != 0 {
		t.Errorf("expected failed 0, got %d", s.Failed)
	}
	if s.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", s.MinLatency)
	}
	if s.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", s.MaxLatency)
	}
	if s.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", s.MeanLatency)
	}
}

func TestAggregatorPercentiles(t *testing.T) {
	agg := metrics.NewAggregator()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		agg.Record(success(time.Duration(i) * time.Millisecond))
	}

	s := agg.Summary(0)

	// P50 should be around 50ms or 51ms (depends on interpolation).
	if s.P50Latency < 49*time.Millisecond || s.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", s.P50Latency)
	}
	if s.P90Latency < 89*time.Millisecond || s.P90Latency > 91*time.Millisecond {
		t.Errorf("expected P90 ~90ms, got %s", s.P90Latency)
	}
	if s.P99Latency < 98*time.Millisecond || s.P99Latency > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", s.P99Latency)
	}
}

func TestAggregatorPhaseAttribution(t *testing.T) {
	agg := metrics.NewAggregator()

	agg.StartPhase("normal")
	agg.Record(success(10 * time.Millisecond))
	agg.Record(metrics.Outcome{Endpoint: "/api/error", Class: metrics.ClassServerError, Status: 500, Latency: 5 * time.Millisecond})
	normal := agg.EndPhase()

	agg.StartPhase("spike")
	agg.Record(success(20 * time.Millisecond))
	spike := agg.EndPhase()

	if normal.Name != "normal" {
		t.Fatalf("expected phase name normal, got %q", normal.Name)
	}
	if normal.Attempted != 2 || normal.Succeeded != 1 || normal.Failed != 1 {
		t.Fatalf("unexpected normal counts: attempted=%d succeeded=%d failed=%d", normal.Attempted, normal.Succeeded, normal.Failed)
	}
	if spike.Attempted != 1 || spike.Succeeded != 1 {
		t.Fatalf("unexpected spike counts: attempted=%d succeeded=%d", spike.Attempted, spike.Succeeded)
	}

	phases := agg.Phases()
	if len(phases) != 2 {
		t.Fatalf("expected 2 completed phases, got %d", len(phases))
	}
	if phases[0].Name != "normal" || phases[1].Name != "spike" {
		t.Fatalf("expected phases in execution order, got %q then %q", phases[0].Name, phases[1].Name)
	}

	s := agg.Summary(time.Second)
	if s.Attempted != 3 || s.Succeeded != 2 || s.Failed != 1 {
		t.Fatalf("unexpected run counts: attempted=%d succeeded=%d failed=%d", s.Attempted, s.Succeeded, s.Failed)
	}
	if len(s.Phases) != 2 {
		t.Fatalf("expected 2 phases in summary, got %d", len(s.Phases))
	}
}

func TestAggregatorBreakdown(t *testing.T) {
	agg := metrics.NewAggregator()

	agg.StartPhase("error-burst")
	agg.Record(metrics.Outcome{Endpoint: "/api/error", Class: metrics.ClassServerError, Status: 500, Latency: time.Millisecond})
	agg.Record(metrics.Outcome{Endpoint: "/api/error", Class: metrics.ClassServerError, Status: 500, Latency: time.Millisecond})
	agg.Record(metrics.Outcome{Endpoint: "/api/users/2000", Class: metrics.ClassClientError, Status: 404, Latency: time.Millisecond})
	agg.Record(metrics.Outcome{Endpoint: "/api/slow", Class: metrics.ClassTransport, Reason: "timeout"})
	res := agg.EndPhase()

	if got := res.Breakdown[metrics.ClassServerError]["500"]; got != 2 {
		t.Errorf("expected two 500s, got %d", got)
	}
	if got := res.Breakdown[metrics.ClassClientError]["404"]; got != 1 {
		t.Errorf("expected one 404, got %d", got)
	}
	if got := res.Breakdown[metrics.ClassTransport]["timeout"]; got != 1 {
		t.Errorf("expected one timeout, got %d", got)
	}

	rows := metrics.FlattenBreakdown(res.Breakdown)
	if len(rows) != 3 {
		t.Fatalf("expected 3 breakdown rows, got %d", len(rows))
	}
	if rows[0].Class != metrics.ClassServerError || rows[0].Detail != "500" || rows[0].Count != 2 {
		t.Fatalf("expected 500x2 first, got %+v", rows[0])
	}
}

func TestAggregatorRecordWithoutPhase(t *testing.T) {
	agg := metrics.NewAggregator()

	// Outcomes recorded outside any phase count toward run totals only.
	agg.Record(success(10 * time.Millisecond))

	s := agg.Summary(0)
	if s.Attempted != 1 {
		t.Fatalf("expected attempted 1, got %d", s.Attempted)
	}
	if len(s.Phases) != 0 {
		t.Fatalf("expected no phases, got %d", len(s.Phases))
	}
	if res := agg.EndPhase(); res.Name != "" || res.Attempted != 0 {
		t.Fatalf("expected zero result from EndPhase with no active phase, got %+v", res)
	}
}

func TestAggregatorProbePhaseSamples(t *testing.T) {
	agg := metrics.NewAggregator()
	agg.SetProbePhase("slow-probe")

	agg.StartPhase("slow-probe")
	agg.Record(success(100 * time.Millisecond))
	agg.Record(success(300 * time.Millisecond))
	res := agg.EndPhase()

	if len(res.Latencies) != 2 {
		t.Fatalf("expected 2 recorded latencies, got %d", len(res.Latencies))
	}
	if len(res.LatenciesMs) != 2 {
		t.Fatalf("expected per-sample ms values for probe phase, got %d", len(res.LatenciesMs))
	}
	if res.LatenciesMs[0] != 100 || res.LatenciesMs[1] != 300 {
		t.Fatalf("unexpected sample values: %v", res.LatenciesMs)
	}

	s := agg.Summary(time.Second)
	if s.ProbeMeanLatency != 200*time.Millisecond {
		t.Errorf("expected probe mean 200ms, got %s", s.ProbeMeanLatency)
	}
}

func TestAggregatorSummaryIdempotent(t *testing.T) {
	agg := metrics.NewAggregator()
	agg.SetProbePhase("slow-probe")

	agg.StartPhase("normal")
	agg.Record(success(10 * time.Millisecond))
	agg.Record(metrics.Outcome{Endpoint: "/api/error", Class: metrics.ClassServerError, Status: 500, Latency: 5 * time.Millisecond})
	agg.EndPhase()

	agg.StartPhase("slow-probe")
	agg.Record(success(100 * time.Millisecond))
	agg.Record(success(300 * time.Millisecond))
	agg.EndPhase()

	first := agg.Summary(10 * time.Second)
	second := agg.Summary(10 * time.Second)

	// Summary is a read-only snapshot; computing it must not consume
	// histogram state or mutate sealed phases.
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated Summary calls diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregatorSummaryIncludesActivePhase(t *testing.T) {
	agg := metrics.NewAggregator()

	agg.StartPhase("normal")
	agg.Record(success(10 * time.Millisecond))

	s := agg.Summary(time.Second)
	if len(s.Phases) != 1 {
		t.Fatalf("expected in-flight phase in summary, got %d phases", len(s.Phases))
	}
	if s.Phases[0].Name != "normal" || s.Phases[0].Attempted != 1 {
		t.Fatalf("unexpected in-flight phase snapshot: %+v", s.Phases[0])
	}

	// The snapshot must not close the phase.
	agg.Record(success(20 * time.Millisecond))
	res := agg.EndPhase()
	if res.Attempted != 2 {
		t.Fatalf("expected phase to keep accumulating after snapshot, got %d", res.Attempted)
	}
}

func TestJSONSummarySchema(t *testing.T) {
	agg := metrics.NewAggregator()

	agg.StartPhase("normal")
	agg.Record(success(15 * time.Millisecond))
	agg.Record(success(25 * time.Millisecond))
	agg.EndPhase()

	s := agg.Summary(100 * time.Millisecond)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("failed to marshal summary: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredFields := []string{"attempted", "succeeded", "failed", "min_latency_ms", "max_latency_ms", "mean_latency_ms", "p50_latency_ms", "p90_latency_ms", "p99_latency_ms", "duration_ms", "requests_per_sec", "phases"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
}

func TestConcurrentRecording(t *testing.T) {
	agg := metrics.NewAggregator()
	agg.StartPhase("normal")

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				agg.Record(success(time.Millisecond))
			}
		}()
	}
	wg.Wait()

	res := agg.EndPhase()
	expected := int64(workers * recordsPerWorker)
	if res.Attempted != expected {
		t.Errorf("expected attempted %d, got %d", expected, res.Attempted)
	}
}
