package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/port"
)

// MySQLAdapter implements port.Ledger against the fulfillment schema
// (schema.sql at the repo root).
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) InTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *MySQLAdapter) PendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, topic, msg_key, payload, created_at
		FROM outbox WHERE published_at IS NULL
		ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Topic, &ev.Key, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (m *MySQLAdapter) MarkOutboxPublished(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = NOW() WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT IGNORE INTO processed_messages (message_id, processed_at)
		VALUES (?, NOW())`, messageID)
	if err != nil {
		return false, fmt.Errorf("mark processed: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (t *mysqlTx) UpsertReserved(ctx context.Context, orderID, warehouseID int64) (port.ReserveOutcome, error) {
	var existing int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT order_id FROM orders WHERE order_id = ?`, orderID).Scan(&existing)

	if errors.Is(err, sql.ErrNoRows) {
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO orders (order_id, warehouse_id, status)
			VALUES (?, ?, ?)`, orderID, warehouseID, domain.OrderStatusReserved)
		if err != nil {
			return 0, fmt.Errorf("insert order: %w", err)
		}
		return port.Reserved, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query order: %w", err)
	}

	_, err = t.tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE order_id = ?`,
		domain.OrderStatusReserved, orderID)
	if err != nil {
		return 0, fmt.Errorf("update order status: %w", err)
	}
	return port.AlreadyReserved, nil
}

func (t *mysqlTx) DecrementInventory(ctx context.Context, productID, warehouseID int64, qty int) (port.DecrementOutcome, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?
		WHERE product_id = ? AND warehouse_id = ?`,
		qty, productID, warehouseID)
	if err != nil {
		return 0, fmt.Errorf("decrement inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.DecrementNotFound, nil
	}

	var remaining int
	err = t.tx.QueryRowContext(ctx, `
		SELECT quantity FROM inventory
		WHERE product_id = ? AND warehouse_id = ?`,
		productID, warehouseID).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("query inventory: %w", err)
	}
	if remaining < 0 {
		return port.DecrementUnderflow, nil
	}
	return port.DecrementApplied, nil
}

func (t *mysqlTx) UpsertOrderItem(ctx context.Context, orderID, productID int64, qty int, price float64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity), price = VALUES(price)`,
		orderID, productID, qty, price)
	if err != nil {
		return fmt.Errorf("upsert order item: %w", err)
	}
	return nil
}

func (t *mysqlTx) FetchOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var (
		order domain.Order
		blob  sql.NullString
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT order_id, warehouse_id, status, invoice_blob
		FROM orders WHERE order_id = ?`, orderID,
	).Scan(&order.OrderID, &order.WarehouseID, &order.Status, &blob)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	order.InvoiceBlobURL = blob.String
	return &order, nil
}

func (t *mysqlTx) MarkConfirmed(ctx context.Context, orderID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE order_id = ?`,
		domain.OrderStatusConfirmed, orderID)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	return nil
}

func (t *mysqlTx) FetchOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT product_id, quantity, price
		FROM order_items WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		it := domain.OrderItem{OrderID: orderID}
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *mysqlTx) InsertInvoiceRecord(ctx context.Context, orderID int64, createdAt time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO invoice (order_id, created_at) VALUES (?, ?)`,
		orderID, createdAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (t *mysqlTx) SetInvoiceBlobURL(ctx context.Context, orderID int64, url string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET invoice_blob = ? WHERE order_id = ?`, url, orderID)
	if err != nil {
		return fmt.Errorf("set invoice blob url: %w", err)
	}
	return nil
}

func (t *mysqlTx) EnqueueOutbox(ctx context.Context, ev domain.OutboxEvent) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox (id, topic, msg_key, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Topic, ev.Key, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}
