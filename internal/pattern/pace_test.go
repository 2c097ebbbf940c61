package pattern

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestFixedPacerFirstWaitImmediate(t *testing.T) {
	p := newFixedPacer(100 * time.Millisecond)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Fatalf("expected immediate first wait, took %s", elapsed)
	}

	start = time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Fatalf("expected ~100ms second wait, took %s", elapsed)
	}
}

func TestFixedPacerZeroInterval(t *testing.T) {
	p := newFixedPacer(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected unpaced waits, took %s", elapsed)
	}
}

func TestJitterPacerBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := newPacer(PaceSpec{Min: 20 * time.Millisecond, Max: 50 * time.Millisecond}, rng)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 15*time.Millisecond {
		t.Fatalf("expected immediate first wait, took %s", elapsed)
	}

	for i := 0; i < 5; i++ {
		start = time.Now()
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
		elapsed := time.Since(start)
		if elapsed < 15*time.Millisecond || elapsed > 200*time.Millisecond {
			t.Fatalf("wait %d outside jitter bounds: %s", i, elapsed)
		}
	}
}

func TestJitterPacerCancellation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := &jitterPacer{min: time.Second, max: 2 * time.Second, rng: rng, started: true}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("expected prompt cancellation, took %s", elapsed)
	}
}

func TestJitterPacerCanceledBeforeFirstWait(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := &jitterPacer{min: time.Second, max: 2 * time.Second, rng: rng}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled on first wait, got %v", err)
	}
}

func TestPaceSpecScale(t *testing.T) {
	spec := PaceSpec{Min: time.Second, Max: 2 * time.Second}

	scaled := spec.scale(0.5)
	if scaled.Min != 500*time.Millisecond || scaled.Max != time.Second {
		t.Errorf("expected halved pace, got %+v", scaled)
	}

	if got := spec.scale(0); got != spec {
		t.Errorf("expected zero factor to leave spec untouched, got %+v", got)
	}
	if got := spec.scale(1); got != spec {
		t.Errorf("expected unit factor to leave spec untouched, got %+v", got)
	}
}
