package pattern

import (
	"fmt"
	"math/rand"
	"time"
)

// Phase names in execution order.
const (
	PhaseNormal     = "normal"
	PhaseSpike      = "spike"
	PhaseErrorBurst = "error-burst"
	PhaseSlowProbe  = "slow-probe"
)

// Phase is one stage of the traffic plan. Exactly one of Duration or
// Iterations is set, and exactly one of Table or Sequence: a time-bound
// phase draws weighted endpoints from Table until its window lapses, a
// fixed-count phase dispatches every Sequence endpoint serially per
// iteration.
type Phase struct {
	Name       string
	Table      []EndpointSpec
	Sequence   []EndpointSpec
	Duration   time.Duration
	Iterations int
	Pace       PaceSpec
}

// PlanOptions tune the standard plan.
type PlanOptions struct {
	// Flaky adds the intermittently failing endpoint to the normal phase
	// table.
	Flaky bool
	// PaceScale multiplies every pace bound and the normal phase window.
	// Values <= 0 or == 1 leave the plan at full speed.
	PaceScale float64
}

// BuildPhases lays out the standard four-phase plan over the total run
// duration: steady weighted traffic for 60% of the total, a fixed burst of
// paired listing/health dispatches, an error burst, and a slow endpoint
// probe whose individual latencies feed the final report.
func BuildPhases(total time.Duration, opts PlanOptions) []Phase {
	const (
		defaultTimeout = 10 * time.Second
		slowTimeout    = 15 * time.Second
		burstTimeout   = 5 * time.Second
	)

	usersWeight := 60
	if opts.Flaky {
		usersWeight = 50
	}

	users := EndpointSpec{Name: "users", Path: "/api/users", Timeout: defaultTimeout, Weight: usersWeight}
	detail := EndpointSpec{
		Name: "user-by-id",
		PathFn: func(r *rand.Rand) string {
			return fmt.Sprintf("/api/users/%d", 1+r.Intn(10))
		},
		Timeout: defaultTimeout,
		Weight:  20,
	}
	health := EndpointSpec{Name: "health", Path: "/health", Timeout: defaultTimeout, Weight: 10}
	slow := EndpointSpec{Name: "slow", Path: "/api/slow", Timeout: slowTimeout, Weight: 10}

	table := []EndpointSpec{users, detail, health, slow}
	if opts.Flaky {
		table = append(table, EndpointSpec{Name: "flaky", Path: "/api/flaky", Timeout: defaultTimeout, Weight: 10})
	}

	phases := []Phase{
		{
			Name:     PhaseNormal,
			Table:    table,
			Duration: total * 60 / 100,
			Pace:     PaceSpec{Min: time.Second, Max: 2 * time.Second},
		},
		{
			Name:       PhaseSpike,
			Sequence:   []EndpointSpec{users, health},
			Iterations: 15,
			Pace:       PaceSpec{Min: 500 * time.Millisecond, Max: 500 * time.Millisecond},
		},
		{
			Name:       PhaseErrorBurst,
			Sequence:   []EndpointSpec{{Name: "error", Path: "/api/error", Timeout: burstTimeout}},
			Iterations: 10,
			Pace:       PaceSpec{Min: 800 * time.Millisecond, Max: 800 * time.Millisecond},
		},
		{
			Name:       PhaseSlowProbe,
			Sequence:   []EndpointSpec{{Name: "slow", Path: "/api/slow", Timeout: slowTimeout}},
			Iterations: 5,
			Pace:       PaceSpec{Min: time.Second, Max: time.Second},
		},
	}

	if opts.PaceScale > 0 && opts.PaceScale != 1 {
		for i := range phases {
			phases[i].Duration = time.Duration(float64(phases[i].Duration) * opts.PaceScale)
			phases[i].Pace = phases[i].Pace.scale(opts.PaceScale)
		}
	}

	return phases
}
