package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedEvent marks an event that is missing required fields. Handlers
// dead-letter these instead of retrying forever.
var ErrMalformedEvent = errors.New("malformed event")

// OrderEvent is the "order placed" message consumed from the orders queue.
type OrderEvent struct {
	OrderID     int64            `json:"order_id"`
	WarehouseID int64            `json:"warehouse_id"`
	Items       []OrderEventItem `json:"items"`
}

type OrderEventItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

func (e OrderEvent) Validate() error {
	if e.OrderID <= 0 {
		return fmt.Errorf("%w: missing order_id", ErrMalformedEvent)
	}
	if e.WarehouseID <= 0 {
		return fmt.Errorf("%w: missing warehouse_id", ErrMalformedEvent)
	}
	if len(e.Items) == 0 {
		return fmt.Errorf("%w: order %d has no items", ErrMalformedEvent, e.OrderID)
	}
	// Only missing required fields are malformed. Zero quantities and odd
	// prices pass through: a zero decrement is harmless and pricing is not
	// this pipeline's rule to enforce.
	for i, it := range e.Items {
		if it.ProductID <= 0 {
			return fmt.Errorf("%w: item %d missing product_id", ErrMalformedEvent, i)
		}
	}
	return nil
}

// ConfirmationEvent is the message chained from reservation to confirmation.
type ConfirmationEvent struct {
	OrderID int64 `json:"order_id"`
}

func (e ConfirmationEvent) Validate() error {
	if e.OrderID <= 0 {
		return fmt.Errorf("%w: missing order_id", ErrMalformedEvent)
	}
	return nil
}

// OutboxEvent is a pending publish persisted alongside the transaction that
// produced it, so a crash between commit and publish cannot drop the event.
type OutboxEvent struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}
