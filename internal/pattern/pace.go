package pattern

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// PaceSpec bounds the delay between consecutive dispatches. Min == Max gives
// fixed pacing; Min < Max draws a uniform delay from [Min, Max] before each
// dispatch after the first.
type PaceSpec struct {
	Min time.Duration
	Max time.Duration
}

func (p PaceSpec) scale(factor float64) PaceSpec {
	if factor <= 0 || factor == 1 {
		return p
	}
	return PaceSpec{
		Min: time.Duration(float64(p.Min) * factor),
		Max: time.Duration(float64(p.Max) * factor),
	}
}

type pacer interface {
	Wait(ctx context.Context) error
}

// newPacer builds the arrival controller for one phase. The first Wait never
// blocks: pacing spaces dispatches, it does not delay the phase start.
func newPacer(spec PaceSpec, rng *rand.Rand) pacer {
	if spec.Max > spec.Min {
		return &jitterPacer{min: spec.Min, max: spec.Max, rng: rng}
	}
	return newFixedPacer(spec.Min)
}

// fixedPacer delegates pacing to a rate.Limiter (uniform spacing). The
// limiter starts with a full token, so the first Wait returns immediately.
type fixedPacer struct {
	limiter *rate.Limiter
}

func newFixedPacer(interval time.Duration) *fixedPacer {
	if interval <= 0 {
		return &fixedPacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &fixedPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (f *fixedPacer) Wait(ctx context.Context) error {
	if f == nil || f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

// jitterPacer sleeps a uniform random delay drawn per dispatch.
type jitterPacer struct {
	min     time.Duration
	max     time.Duration
	rng     *rand.Rand
	started bool
}

func (j *jitterPacer) Wait(ctx context.Context) error {
	if !j.started {
		j.started = true
		return ctx.Err()
	}

	delay := j.min
	if span := int64(j.max - j.min); span > 0 {
		delay += time.Duration(j.rng.Int63n(span + 1))
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
