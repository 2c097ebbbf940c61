package pattern

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/pulsefire/internal/metrics"
)

// DispatchFunc issues one request and classifies the result.
type DispatchFunc func(ctx context.Context, endpoint, path string, timeout time.Duration) metrics.Outcome

// Recorder receives phase boundaries and every classified outcome.
type Recorder interface {
	StartPhase(name string)
	Record(o metrics.Outcome)
	EndPhase() metrics.PhaseResult
}

// Options configure the Scheduler.
type Options struct {
	Dispatch DispatchFunc // request executor (required)
	Recorder Recorder     // outcome sink (required)
	Logger   *zap.Logger
	Seed     int64 // 0 seeds from the clock
}

// Scheduler drives phases strictly in order, one dispatch at a time. All
// randomness (endpoint draws, path ids, pace jitter) flows from a single
// seeded source, so a fixed seed replays the same traffic shape.
type Scheduler struct {
	dispatch DispatchFunc
	recorder Recorder
	logger   *zap.Logger
	rng      *rand.Rand
}

func NewScheduler(opt Options) (*Scheduler, error) {
	if opt.Dispatch == nil {
		return nil, errors.New("dispatch func is required")
	}
	if opt.Recorder == nil {
		return nil, errors.New("recorder is required")
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		dispatch: opt.Dispatch,
		recorder: opt.Recorder,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Run executes the phases in order. Cancelling ctx stops the run between
// dispatches and returns the context error; outcomes already recorded stay
// in the recorder, so a partial summary remains printable.
func (s *Scheduler) Run(ctx context.Context, phases []Phase) error {
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validatePhase(phase); err != nil {
			return err
		}
		if err := s.runPhase(ctx, phase); err != nil {
			return err
		}
	}
	return nil
}

func validatePhase(p Phase) error {
	if (p.Duration > 0) == (p.Iterations > 0) {
		return fmt.Errorf("phase %q: exactly one of duration or iterations must be set", p.Name)
	}
	if (len(p.Table) > 0) == (len(p.Sequence) > 0) {
		return fmt.Errorf("phase %q: exactly one of table or sequence must be set", p.Name)
	}
	return nil
}

func (s *Scheduler) runPhase(ctx context.Context, phase Phase) error {
	pace := newPacer(phase.Pace, s.rng)

	fields := []zap.Field{zap.String("phase", phase.Name)}
	if phase.Duration > 0 {
		fields = append(fields, zap.Duration("window", phase.Duration))
	} else {
		fields = append(fields, zap.Int("iterations", phase.Iterations))
	}
	s.logger.Info("phase starting", fields...)

	s.recorder.StartPhase(phase.Name)
	var runErr error
	if phase.Duration > 0 {
		runErr = s.runTimeBound(ctx, phase, pace)
	} else {
		runErr = s.runFixedCount(ctx, phase, pace)
	}
	result := s.recorder.EndPhase()

	s.logger.Info("phase finished",
		zap.String("phase", phase.Name),
		zap.Int64("attempted", result.Attempted),
		zap.Int64("succeeded", result.Succeeded),
		zap.Int64("failed", result.Failed),
		zap.Duration("elapsed", result.Duration),
	)
	return runErr
}

func (s *Scheduler) runTimeBound(ctx context.Context, phase Phase, pace pacer) error {
	deadline := time.Now().Add(phase.Duration)
	for time.Now().Before(deadline) {
		if err := pace.Wait(ctx); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			break
		}
		s.dispatchOnce(ctx, phase)
	}
	return ctx.Err()
}

func (s *Scheduler) runFixedCount(ctx context.Context, phase Phase, pace pacer) error {
	for i := 0; i < phase.Iterations; i++ {
		if err := pace.Wait(ctx); err != nil {
			return err
		}
		s.dispatchOnce(ctx, phase)
	}
	return ctx.Err()
}

func (s *Scheduler) dispatchOnce(ctx context.Context, phase Phase) {
	if len(phase.Sequence) > 0 {
		for _, ep := range phase.Sequence {
			if ctx.Err() != nil {
				return
			}
			s.recorder.Record(s.dispatch(ctx, ep.Name, ep.RenderPath(s.rng), ep.Timeout))
		}
		return
	}
	ep := pickEndpoint(phase.Table, s.rng)
	s.recorder.Record(s.dispatch(ctx, ep.Name, ep.RenderPath(s.rng), ep.Timeout))
}
