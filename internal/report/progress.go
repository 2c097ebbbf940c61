package report

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/pulsefire/internal/metrics"
)

// Progress displays a single-line live view of the run while phases execute.
type Progress struct {
	agg      *metrics.Aggregator
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgress creates a progress reporter that rewrites its line at the given
// interval.
func NewProgress(agg *metrics.Aggregator, interval time.Duration, writer io.Writer) *Progress {
	if writer == nil {
		writer = io.Discard
	}
	return &Progress{
		agg:      agg,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *Progress) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *Progress) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *Progress) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			s := p.agg.Summary(elapsed)
			phase := "starting"
			if len(s.Phases) > 0 {
				phase = s.Phases[len(s.Phases)-1].Name
			}
			fmt.Fprintf(p.writer, "\r[%s] Elapsed: %s | Requests: %d | OK: %d | Failed: %d | RPS: %.1f",
				phase, elapsed.Round(time.Second), s.Attempted, s.Succeeded, s.Failed, s.RequestsPerSec)
		case <-p.done:
			return
		}
	}
}
