package pattern

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestPickEndpointWeightedSplit(t *testing.T) {
	table := []EndpointSpec{
		{Name: "users", Weight: 60},
		{Name: "user-by-id", Weight: 20},
		{Name: "health", Weight: 10},
		{Name: "slow", Weight: 10},
	}

	rng := rand.New(rand.NewSource(42))
	draws := 10000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		counts[pickEndpoint(table, rng).Name]++
	}

	expected := map[string]float64{
		"users":      0.60,
		"user-by-id": 0.20,
		"health":     0.10,
		"slow":       0.10,
	}
	for name, want := range expected {
		got := float64(counts[name]) / float64(draws)
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("endpoint %s: expected share ~%.2f, got %.3f (%d/%d)", name, want, got, counts[name], draws)
		}
	}
}

func TestPickEndpointSkipsZeroWeight(t *testing.T) {
	table := []EndpointSpec{
		{Name: "never", Weight: 0},
		{Name: "always", Weight: 5},
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		if got := pickEndpoint(table, rng).Name; got != "always" {
			t.Fatalf("draw %d: expected always, got %q", i, got)
		}
	}
}

func TestPickEndpointEmptyTable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := pickEndpoint(nil, rng); got.Name != "" {
		t.Fatalf("expected zero spec for empty table, got %+v", got)
	}
}

func TestPickEndpointAllZeroWeights(t *testing.T) {
	table := []EndpointSpec{{Name: "first"}, {Name: "second"}}
	rng := rand.New(rand.NewSource(1))
	if got := pickEndpoint(table, rng).Name; got != "first" {
		t.Fatalf("expected first entry fallback, got %q", got)
	}
}

func TestRenderPath(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	static := EndpointSpec{Name: "users", Path: "/api/users"}
	if got := static.RenderPath(rng); got != "/api/users" {
		t.Fatalf("expected static path, got %q", got)
	}

	detail := EndpointSpec{
		Name:    "user-by-id",
		Timeout: 10 * time.Second,
		PathFn: func(r *rand.Rand) string {
			return "/api/users/7"
		},
	}
	if got := detail.RenderPath(rng); got != "/api/users/7" {
		t.Fatalf("expected rendered path, got %q", got)
	}
}

func TestDetailPathRange(t *testing.T) {
	phases := BuildPhases(time.Minute, PlanOptions{})
	var detail EndpointSpec
	for _, ep := range phases[0].Table {
		if ep.Name == "user-by-id" {
			detail = ep
		}
	}
	if detail.PathFn == nil {
		t.Fatalf("expected user-by-id endpoint with path function")
	}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		path := detail.PathFn(rng)
		if !strings.HasPrefix(path, "/api/users/") {
			t.Fatalf("unexpected path %q", path)
		}
		id := strings.TrimPrefix(path, "/api/users/")
		switch id {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9", "10":
		default:
			t.Fatalf("detail id out of range: %q", path)
		}
	}
}
