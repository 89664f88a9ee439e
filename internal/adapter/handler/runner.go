package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

const (
	defaultRetryBase = time.Second
	defaultRetryMax  = time.Minute
)

// MessageHandler processes one delivered message. A nil return acks the
// message; an error means the delivery must be retried.
type MessageHandler interface {
	Handle(ctx context.Context, msg port.Message) error
}

// Runner drives one consumer: fetch, handle, commit. A failed message is
// retried in place with capped backoff — the runner never fetches past an
// uncommitted message, because committing a later offset on the same
// partition would permanently ack the earlier one.
type Runner struct {
	name      string
	consumer  port.Consumer
	handler   MessageHandler
	logger    *zap.Logger
	stats     *metrics.Registry
	retryBase time.Duration
	retryMax  time.Duration
}

func NewRunner(name string, consumer port.Consumer, h MessageHandler, logger *zap.Logger, stats *metrics.Registry) *Runner {
	return &Runner{
		name:      name,
		consumer:  consumer,
		handler:   h,
		logger:    logger,
		stats:     stats,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
	}
}

func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("consumer started", zap.String("consumer", r.name))

	for {
		msg, err := r.consumer.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Info("consumer stopping", zap.String("consumer", r.name))
				return
			}
			r.logger.Error("fetch failed", zap.String("consumer", r.name), zap.Error(err))
			continue
		}

		if !r.handleWithRetry(ctx, msg) {
			// Shutdown mid-retry: the message was never committed, so it
			// is redelivered after restart.
			return
		}

		if err := r.consumer.Commit(ctx, msg); err != nil {
			r.logger.Error("commit failed",
				zap.String("consumer", r.name),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
}

// handleWithRetry processes msg until the handler succeeds, backing off
// between attempts. Returns false only when ctx is done.
func (r *Runner) handleWithRetry(ctx context.Context, msg port.Message) bool {
	delay := r.retryBase

	for {
		start := time.Now()
		err := r.handler.Handle(ctx, msg)
		if err == nil {
			r.stats.HandleLatencySec.Observe(time.Since(start).Seconds())
			return true
		}

		r.stats.HandlerFailures.Inc()
		r.logger.Error("handler failed, retrying message",
			zap.String("consumer", r.name),
			zap.String("message_id", msg.ID),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.retryMax {
			delay = r.retryMax
		}
	}
}
