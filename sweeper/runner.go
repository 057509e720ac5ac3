package sweeper

import (
	"context"
	"log"
	"sync"
	"time"
)

// Runner drives the sweeper as an independent periodic background
// task, decoupled from request-serving paths.
type Runner struct {
	sweeper  *Sweeper
	interval time.Duration

	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRunner creates a runner sweeping on the given interval.
func NewRunner(sweeper *Sweeper, interval time.Duration) *Runner {
	return &Runner{
		sweeper:  sweeper,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Safe to call once; later calls are
// no-ops.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		go r.loop(ctx)
		log.Printf("[SWEEPER] Runner started, interval %s", r.interval)
	})
}

// Stop shuts the loop down: no new cycles begin, and the in-flight
// tenant aborts cleanly between I/O steps (its ledger stays
// consistent). Blocks until the loop exits.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if r.cancel != nil {
			r.cancel()
		}
		<-r.done
		log.Printf("[SWEEPER] Runner stopped")
	})
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if _, err := r.sweeper.SweepAll(ctx); err != nil {
				log.Printf("[SWEEPER] Sweep cycle failed: %v", err)
			}
		}
	}
}
