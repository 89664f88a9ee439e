package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/core/service"
	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

// ReservationHandler decodes "order placed" messages and hands them to the
// reservation service. Malformed messages are dead-lettered and acked instead
// of being retried forever.
type ReservationHandler struct {
	svc       *service.ReservationService
	publisher port.Publisher
	dlqTopic  string
	logger    *zap.Logger
	stats     *metrics.Registry
}

func NewReservationHandler(svc *service.ReservationService, publisher port.Publisher, dlqTopic string, logger *zap.Logger, stats *metrics.Registry) *ReservationHandler {
	return &ReservationHandler{
		svc:       svc,
		publisher: publisher,
		dlqTopic:  dlqTopic,
		logger:    logger,
		stats:     stats,
	}
}

func (h *ReservationHandler) Handle(ctx context.Context, msg port.Message) error {
	var ev domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return deadLetter(ctx, h.publisher, h.dlqTopic, msg, err, h.logger, h.stats)
	}
	if err := ev.Validate(); err != nil {
		return deadLetter(ctx, h.publisher, h.dlqTopic, msg, err, h.logger, h.stats)
	}

	return h.svc.HandleOrderPlaced(ctx, msg.ID, ev)
}

// deadLetter forwards the raw payload to the dead-letter topic and acks the
// original. If the forward itself fails, the error propagates so the message
// is redelivered rather than lost.
func deadLetter(ctx context.Context, publisher port.Publisher, topic string, msg port.Message, cause error, logger *zap.Logger, stats *metrics.Registry) error {
	logger.Warn("dead-lettering malformed message",
		zap.String("message_id", msg.ID),
		zap.Error(cause))

	if err := publisher.Publish(ctx, topic, msg.Key, msg.Value); err != nil {
		return fmt.Errorf("dead-letter publish: %w", err)
	}
	stats.DeadLettered.Inc()
	return nil
}
