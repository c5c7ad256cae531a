// Package schedule contains the periodic producers that feed and groom the
// task store: condition scans that enqueue work, the subscription refresh
// sweep, and the retention sweeper. Each producer is a free-running loop on
// its own timer; none of them call each other.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Producer is one periodic evaluator. Run executes a single pass; the loop
// driver handles timing and error logging.
type Producer interface {
	// Name identifies the producer in logs.
	Name() string

	// Interval is the time between the start of consecutive passes.
	Interval() time.Duration

	// Run executes one pass. An error aborts the current pass only; the
	// loop continues on the next tick.
	Run(ctx context.Context) error
}

// Loop drives a producer: one pass immediately at startup, then one per tick
// until the context is done. A single goroutine owns the loop, so passes
// never overlap; a tick that fires while a pass is still running is
// coalesced into the next one.
func Loop(ctx context.Context, p Producer, log *slog.Logger) {
	log = log.With("producer", p.Name())

	runOnce := func() {
		if err := p.Run(ctx); err != nil {
			log.Error("producer pass failed", "error", err)
		}
	}

	log.Info("producer started", "interval", p.Interval())
	runOnce()

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("producer stopped")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
