package handler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/core/service"
	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

// ConfirmationHandler decodes confirmation-request messages for the
// confirmation service.
type ConfirmationHandler struct {
	svc       *service.ConfirmationService
	publisher port.Publisher
	dlqTopic  string
	logger    *zap.Logger
	stats     *metrics.Registry
}

func NewConfirmationHandler(svc *service.ConfirmationService, publisher port.Publisher, dlqTopic string, logger *zap.Logger, stats *metrics.Registry) *ConfirmationHandler {
	return &ConfirmationHandler{
		svc:       svc,
		publisher: publisher,
		dlqTopic:  dlqTopic,
		logger:    logger,
		stats:     stats,
	}
}

func (h *ConfirmationHandler) Handle(ctx context.Context, msg port.Message) error {
	var ev domain.ConfirmationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return deadLetter(ctx, h.publisher, h.dlqTopic, msg, err, h.logger, h.stats)
	}
	if err := ev.Validate(); err != nil {
		return deadLetter(ctx, h.publisher, h.dlqTopic, msg, err, h.logger, h.stats)
	}

	return h.svc.HandleConfirmationRequested(ctx, msg.ID, ev)
}
