package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxrelay/relay-api/internal/store"
	"github.com/inboxrelay/relay-api/internal/task"
)

// DemoProducer enqueues a Demo task on every pass. It exists to exercise the
// enqueue/execute pipeline end to end and is disabled unless explicitly
// configured with a non-zero interval.
type DemoProducer struct {
	tasks    store.TaskStore
	interval time.Duration
	logger   *slog.Logger
}

func NewDemoProducer(tasks store.TaskStore, interval time.Duration, logger *slog.Logger) *DemoProducer {
	return &DemoProducer{
		tasks:    tasks,
		interval: interval,
		logger:   logger.With("component", "demo_producer"),
	}
}

func (p *DemoProducer) Name() string { return "demo" }

func (p *DemoProducer) Interval() time.Duration { return p.interval }

func (p *DemoProducer) Run(ctx context.Context) error {
	payload, err := json.Marshal(task.DemoPayload{Message: "Hello, world!"})
	if err != nil {
		return fmt.Errorf("failed to marshal demo payload: %w", err)
	}
	created, err := p.tasks.Enqueue(ctx, task.TypeDemo, payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue demo task: %w", err)
	}
	p.logger.Debug("enqueued demo task", "task_id", created.ID)
	return nil
}
