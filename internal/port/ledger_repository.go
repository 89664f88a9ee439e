package port

import (
	"context"
	"time"

	"github.com/smartinv/fulfillment/internal/core/domain"
)

// ReserveOutcome reports whether UpsertReserved inserted a new order row or
// overwrote an existing one.
type ReserveOutcome int

const (
	Reserved ReserveOutcome = iota
	AlreadyReserved
)

// DecrementOutcome reports what a decrement did. Underflow and NotFound are
// informational: the decrement is never rejected and no floor is enforced.
type DecrementOutcome int

const (
	DecrementApplied DecrementOutcome = iota
	DecrementUnderflow
	DecrementNotFound
)

// Ledger is the transactional order/inventory store. All multi-step mutation
// sequences within one handler invocation run inside a single InTx scope.
type Ledger interface {
	// InTx runs fn inside one transaction: commits if fn returns nil,
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// PendingOutbox returns up to limit unpublished outbox events, oldest first.
	PendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error)

	// MarkOutboxPublished records that the relay delivered the event.
	MarkOutboxPublished(ctx context.Context, id string) error
}

type LedgerTx interface {
	// MarkProcessed records a delivery token; returns false if the same
	// message was already processed in a committed transaction.
	MarkProcessed(ctx context.Context, messageID string) (bool, error)

	// UpsertReserved inserts the order as "reserved", or overwrites the
	// status to "reserved" unconditionally if the row exists.
	UpsertReserved(ctx context.Context, orderID, warehouseID int64) (ReserveOutcome, error)

	// DecrementInventory subtracts qty from the matching row. No row is a
	// silent no-op (DecrementNotFound); a negative result is allowed
	// (DecrementUnderflow).
	DecrementInventory(ctx context.Context, productID, warehouseID int64, qty int) (DecrementOutcome, error)

	// UpsertOrderItem inserts or, on (order_id, product_id) conflict,
	// overwrites quantity and price.
	UpsertOrderItem(ctx context.Context, orderID, productID int64, qty int, price float64) error

	// FetchOrder returns nil, nil when no such order exists.
	FetchOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// MarkConfirmed sets the status to "confirmed" unconditionally.
	MarkConfirmed(ctx context.Context, orderID int64) error

	// FetchOrderItems returns the order's items in insertion order.
	FetchOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)

	InsertInvoiceRecord(ctx context.Context, orderID int64, createdAt time.Time) error

	SetInvoiceBlobURL(ctx context.Context, orderID int64, url string) error

	// EnqueueOutbox persists an event to publish after commit.
	EnqueueOutbox(ctx context.Context, ev domain.OutboxEvent) error
}
