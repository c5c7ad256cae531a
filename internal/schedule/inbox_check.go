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

// InboxCheckProducer scans for watched accounts due for an inbox check and
// enqueues one CheckInbox task per eligible account. It only produces work;
// the actual inbox fetch happens later on the worker pool.
type InboxCheckProducer struct {
	accounts store.AccountStore
	tasks    store.TaskStore
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger
}

// NewInboxCheckProducer creates the producer. cooldown is the minimum time
// between checks of the same account; accounts checked more recently are
// skipped this pass.
func NewInboxCheckProducer(
	accounts store.AccountStore,
	tasks store.TaskStore,
	interval time.Duration,
	cooldown time.Duration,
	logger *slog.Logger,
) *InboxCheckProducer {
	return &InboxCheckProducer{
		accounts: accounts,
		tasks:    tasks,
		interval: interval,
		cooldown: cooldown,
		logger:   logger.With("component", "inbox_check_producer"),
	}
}

func (p *InboxCheckProducer) Name() string { return "inbox_check" }

func (p *InboxCheckProducer) Interval() time.Duration { return p.interval }

// Run enqueues one CheckInbox task for every account due this pass. A store
// failure aborts the pass; accounts already enqueued keep their tasks.
func (p *InboxCheckProducer) Run(ctx context.Context) error {
	ids, err := p.accounts.DueForCheck(ctx, p.cooldown)
	if err != nil {
		return fmt.Errorf("failed to list accounts due for check: %w", err)
	}
	if len(ids) == 0 {
		p.logger.Debug("no accounts due for check")
		return nil
	}

	for _, id := range ids {
		payload, err := json.Marshal(task.CheckInboxPayload{AccountID: id})
		if err != nil {
			return fmt.Errorf("failed to marshal check payload for account %d: %w", id, err)
		}
		if _, err := p.tasks.Enqueue(ctx, task.TypeCheckInbox, payload); err != nil {
			return fmt.Errorf("failed to enqueue check for account %d: %w", id, err)
		}
	}

	p.logger.Info("enqueued inbox checks", "count", len(ids))
	return nil
}
