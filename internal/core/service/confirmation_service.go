package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/metrics"
	"github.com/smartinv/fulfillment/internal/port"
)

// ConfirmationService finalizes a reserved order: marks it confirmed, computes
// the total, records the invoice, renders and uploads the document, and stores
// the blob URL. A confirmation for an unknown order is a benign skip.
type ConfirmationService struct {
	ledger   port.Ledger
	dedup    port.DedupCache
	renderer port.InvoiceRenderer
	blobs    port.BlobStore
	logger   *zap.Logger
	stats    *metrics.Registry
}

func NewConfirmationService(ledger port.Ledger, dedup port.DedupCache, renderer port.InvoiceRenderer, blobs port.BlobStore, logger *zap.Logger, stats *metrics.Registry) *ConfirmationService {
	return &ConfirmationService{
		ledger:   ledger,
		dedup:    dedup,
		renderer: renderer,
		blobs:    blobs,
		logger:   logger,
		stats:    stats,
	}
}

func (s *ConfirmationService) HandleConfirmationRequested(ctx context.Context, messageID string, ev domain.ConfirmationEvent) error {
	if s.dedup != nil {
		first, err := s.dedup.FirstDelivery(ctx, messageID)
		if err != nil {
			s.logger.Warn("dedup cache unavailable", zap.Error(err))
		} else if !first {
			s.stats.DuplicateDeliveries.Inc()
			s.logger.Info("duplicate delivery dropped by cache", zap.String("message_id", messageID))
			return nil
		}
	}

	var (
		order     *domain.Order
		items     []domain.OrderItem
		duplicate bool
		issuedAt  = time.Now()
	)
	err := s.ledger.InTx(ctx, func(tx port.LedgerTx) error {
		fresh, err := tx.MarkProcessed(ctx, messageID)
		if err != nil {
			return err
		}

		order, err = tx.FetchOrder(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return nil
		}

		if !fresh {
			// The ledger mutations committed on an earlier delivery. If
			// the blob URL is still empty the upload failed afterwards,
			// so read the items back and resume it below.
			duplicate = true
			if order.InvoiceBlobURL != "" {
				return nil
			}
			items, err = tx.FetchOrderItems(ctx, ev.OrderID)
			return err
		}

		if err := tx.MarkConfirmed(ctx, ev.OrderID); err != nil {
			return err
		}

		items, err = tx.FetchOrderItems(ctx, ev.OrderID)
		if err != nil {
			return err
		}

		return tx.InsertInvoiceRecord(ctx, ev.OrderID, issuedAt)
	})
	if err != nil {
		return fmt.Errorf("confirm order %d: %w", ev.OrderID, err)
	}

	if order == nil {
		s.stats.ConfirmationsSkipped.Inc()
		s.logger.Warn("order not found, skipping invoice", zap.Int64("order_id", ev.OrderID))
		return nil
	}
	if duplicate {
		s.stats.DuplicateDeliveries.Inc()
		if order.InvoiceBlobURL != "" {
			s.logger.Info("duplicate delivery skipped", zap.String("message_id", messageID))
			return nil
		}
		s.logger.Info("duplicate delivery with missing invoice, resuming upload",
			zap.String("message_id", messageID),
			zap.Int64("order_id", ev.OrderID))
	}

	total := domain.InvoiceTotal(items)

	doc, err := s.renderer.Render(domain.InvoiceData{
		OrderID:     ev.OrderID,
		WarehouseID: order.WarehouseID,
		IssuedAt:    issuedAt,
		Items:       items,
		Total:       total,
	})
	if err != nil {
		return fmt.Errorf("render invoice for order %d: %w", ev.OrderID, err)
	}

	url, err := s.blobs.Upload(ctx, InvoiceBlobKey(ev.OrderID), "application/pdf", doc)
	if err != nil {
		return fmt.Errorf("upload invoice for order %d: %w", ev.OrderID, err)
	}

	err = s.ledger.InTx(ctx, func(tx port.LedgerTx) error {
		return tx.SetInvoiceBlobURL(ctx, ev.OrderID, url)
	})
	if err != nil {
		return fmt.Errorf("record invoice url for order %d: %w", ev.OrderID, err)
	}

	if !duplicate {
		s.stats.OrdersConfirmed.Inc()
	}
	s.logger.Info("order confirmed, invoice uploaded",
		zap.Int64("order_id", ev.OrderID),
		zap.Float64("total", total),
		zap.String("url", url))
	return nil
}

// InvoiceBlobKey is the deterministic object key for an order's invoice, so a
// re-upload for the same order overwrites the previous document.
func InvoiceBlobKey(orderID int64) string {
	return fmt.Sprintf("invoice_order_%d.pdf", orderID)
}
