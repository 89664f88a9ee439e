package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

// OutboxRelay publishes events that handlers committed to the outbox table.
// A crash between a handler's commit and the publish can no longer drop the
// event: the row stays pending and the next pass retries it.
type OutboxRelay struct {
	ledger    port.Ledger
	publisher port.Publisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	stats     *metrics.Registry
}

func NewOutboxRelay(ledger port.Ledger, publisher port.Publisher, interval time.Duration, batchSize int, logger *zap.Logger, stats *metrics.Registry) *OutboxRelay {
	return &OutboxRelay{
		ledger:    ledger,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		stats:     stats,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.PublishPending(ctx); err != nil {
				r.logger.Error("outbox pass failed", zap.Error(err))
			}
		}
	}
}

// PublishPending delivers pending events oldest first, stopping at the first
// publish failure so per-order ordering is roughly preserved.
func (r *OutboxRelay) PublishPending(ctx context.Context) error {
	events, err := r.ledger.PendingOutbox(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := r.publisher.Publish(ctx, ev.Topic, []byte(ev.Key), ev.Payload); err != nil {
			r.stats.OutboxPublishFailures.Inc()
			r.logger.Warn("outbox publish failed, will retry",
				zap.String("event_id", ev.ID),
				zap.String("topic", ev.Topic),
				zap.Error(err))
			return nil
		}
		if err := r.ledger.MarkOutboxPublished(ctx, ev.ID); err != nil {
			return err
		}
		r.stats.OutboxPublished.Inc()
	}
	return nil
}
