package pattern

import (
	"math/rand"
	"time"
)

// EndpointSpec describes one target endpoint a phase can dispatch against.
// Path is the literal request path; PathFn, when set, renders a fresh path
// per dispatch from the scheduler's random source.
type EndpointSpec struct {
	Name    string
	Path    string
	PathFn  func(r *rand.Rand) string
	Timeout time.Duration
	Weight  int
}

// RenderPath returns the request path for one dispatch.
func (e EndpointSpec) RenderPath(r *rand.Rand) string {
	if e.PathFn != nil {
		return e.PathFn(r)
	}
	return e.Path
}

// pickEndpoint selects one table entry with probability proportional to its
// weight. Entries with weight <= 0 are never drawn.
func pickEndpoint(table []EndpointSpec, r *rand.Rand) EndpointSpec {
	if len(table) == 0 {
		return EndpointSpec{}
	}
	total := 0
	for _, ep := range table {
		if ep.Weight > 0 {
			total += ep.Weight
		}
	}
	if total <= 0 {
		return table[0]
	}
	n := r.Intn(total)
	cumulative := 0
	for _, ep := range table {
		if ep.Weight <= 0 {
			continue
		}
		cumulative += ep.Weight
		if n < cumulative {
			return ep
		}
	}
	return table[len(table)-1]
}
