package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

// ReservationService consumes "order placed" events: it upserts the order as
// reserved, applies inventory decrements, upserts order items, and enqueues a
// confirmation event — all in one transaction. The decrement applies no floor;
// underflow and missing rows are logged, never fatal.
type ReservationService struct {
	ledger       port.Ledger
	dedup        port.DedupCache
	confirmTopic string
	logger       *zap.Logger
	stats        *metrics.Registry
}

func NewReservationService(ledger port.Ledger, dedup port.DedupCache, confirmTopic string, logger *zap.Logger, stats *metrics.Registry) *ReservationService {
	return &ReservationService{
		ledger:       ledger,
		dedup:        dedup,
		confirmTopic: confirmTopic,
		logger:       logger,
		stats:        stats,
	}
}

func (s *ReservationService) HandleOrderPlaced(ctx context.Context, messageID string, ev domain.OrderEvent) error {
	if s.duplicateFastPath(ctx, messageID) {
		return nil
	}

	var duplicate bool
	err := s.ledger.InTx(ctx, func(tx port.LedgerTx) error {
		fresh, err := tx.MarkProcessed(ctx, messageID)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}

		outcome, err := tx.UpsertReserved(ctx, ev.OrderID, ev.WarehouseID)
		if err != nil {
			return err
		}
		if outcome == port.AlreadyReserved {
			s.logger.Info("order already existed, status reset to reserved",
				zap.Int64("order_id", ev.OrderID))
		}

		for _, it := range ev.Items {
			out, err := tx.DecrementInventory(ctx, it.ProductID, ev.WarehouseID, it.Quantity)
			if err != nil {
				return err
			}
			switch out {
			case port.DecrementNotFound:
				s.logger.Warn("no inventory row for item, decrement skipped",
					zap.Int64("product_id", it.ProductID),
					zap.Int64("warehouse_id", ev.WarehouseID))
			case port.DecrementUnderflow:
				s.logger.Warn("inventory went negative",
					zap.Int64("product_id", it.ProductID),
					zap.Int64("warehouse_id", ev.WarehouseID),
					zap.Int("quantity", it.Quantity))
			}
		}

		for _, it := range ev.Items {
			if err := tx.UpsertOrderItem(ctx, ev.OrderID, it.ProductID, it.Quantity, it.Price); err != nil {
				return err
			}
		}

		payload, err := json.Marshal(domain.ConfirmationEvent{OrderID: ev.OrderID})
		if err != nil {
			return fmt.Errorf("marshal confirmation event: %w", err)
		}
		return tx.EnqueueOutbox(ctx, domain.OutboxEvent{
			ID:        uuid.NewString(),
			Topic:     s.confirmTopic,
			Key:       strconv.FormatInt(ev.OrderID, 10),
			Payload:   payload,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("reserve order %d: %w", ev.OrderID, err)
	}

	if duplicate {
		s.stats.DuplicateDeliveries.Inc()
		s.logger.Info("duplicate delivery skipped", zap.String("message_id", messageID))
		return nil
	}

	s.stats.OrdersReserved.Inc()
	s.logger.Info("order reserved",
		zap.Int64("order_id", ev.OrderID),
		zap.Int("items", len(ev.Items)))
	return nil
}

// duplicateFastPath drops a redelivery without opening a transaction when the
// cache has already seen the message. Cache errors never fail the handler.
func (s *ReservationService) duplicateFastPath(ctx context.Context, messageID string) bool {
	if s.dedup == nil {
		return false
	}
	first, err := s.dedup.FirstDelivery(ctx, messageID)
	if err != nil {
		s.logger.Warn("dedup cache unavailable", zap.Error(err))
		return false
	}
	if !first {
		s.stats.DuplicateDeliveries.Inc()
		s.logger.Info("duplicate delivery dropped by cache", zap.String("message_id", messageID))
		return true
	}
	return false
}
