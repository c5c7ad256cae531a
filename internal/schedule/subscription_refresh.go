package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inboxrelay/relay-api/internal/store"
)

// SubscriptionVerifier answers whether a customer currently holds an active
// subscription. Implemented by the RevenueCat client.
type SubscriptionVerifier interface {
	IsSubscribed(ctx context.Context, customerID string) (bool, error)
}

// SubscriptionRefreshProducer periodically re-verifies every customer flagged
// as subscribed against the billing provider and writes the refreshed flag
// back. Verification happens inline on the producer goroutine, paced by a
// fixed pause between customers to stay inside the provider's rate limits.
type SubscriptionRefreshProducer struct {
	customers store.CustomerStore
	verifier  SubscriptionVerifier
	interval  time.Duration
	pause     time.Duration
	logger    *slog.Logger
}

func NewSubscriptionRefreshProducer(
	customers store.CustomerStore,
	verifier SubscriptionVerifier,
	interval time.Duration,
	pause time.Duration,
	logger *slog.Logger,
) *SubscriptionRefreshProducer {
	return &SubscriptionRefreshProducer{
		customers: customers,
		verifier:  verifier,
		interval:  interval,
		pause:     pause,
		logger:    logger.With("component", "subscription_refresh_producer"),
	}
}

func (p *SubscriptionRefreshProducer) Name() string { return "subscription_refresh" }

func (p *SubscriptionRefreshProducer) Interval() time.Duration { return p.interval }

// Run re-verifies each currently-subscribed customer. A verification or
// write failure aborts the pass; customers already refreshed keep their new
// flag. The pause applies between customers, not after the last one.
func (p *SubscriptionRefreshProducer) Run(ctx context.Context) error {
	ids, err := p.customers.ListSubscribedIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribed customers: %w", err)
	}
	if len(ids) == 0 {
		p.logger.Debug("no subscribed customers to refresh")
		return nil
	}

	lapsed := 0
	for i, id := range ids {
		active, err := p.verifier.IsSubscribed(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to verify subscription for %s: %w", id, err)
		}
		if err := p.customers.SetSubscribed(ctx, id, active); err != nil {
			return fmt.Errorf("failed to update subscription for %s: %w", id, err)
		}
		if !active {
			lapsed++
			p.logger.Info("subscription lapsed", "customer_id", id)
		}

		if i < len(ids)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.pause):
			}
		}
	}

	p.logger.Info("subscription refresh complete", "checked", len(ids), "lapsed", lapsed)
	return nil
}
