package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func cleanupOrder(db *sql.DB, orderID int64) {
	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID)
	db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID)
	db.ExecContext(ctx, `DELETE FROM invoice WHERE order_id = ?`, orderID)
}

func TestReservationRoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	orderID := time.Now().UnixNano() % 1_000_000_000
	cleanupOrder(db, orderID)
	defer cleanupOrder(db, orderID)

	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, warehouse_id, quantity) VALUES (9001, 5, 10)
		ON DUPLICATE KEY UPDATE quantity = 10`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err = adapter.InTx(ctx, func(tx port.LedgerTx) error {
		outcome, err := tx.UpsertReserved(ctx, orderID, 5)
		if err != nil {
			return err
		}
		if outcome != port.Reserved {
			t.Errorf("expected Reserved outcome, got %v", outcome)
		}

		decOut, err := tx.DecrementInventory(ctx, 9001, 5, 2)
		if err != nil {
			return err
		}
		if decOut != port.DecrementApplied {
			t.Errorf("expected DecrementApplied, got %v", decOut)
		}

		return tx.UpsertOrderItem(ctx, orderID, 9001, 2, 9.50)
	})
	if err != nil {
		t.Fatalf("reservation tx failed: %v", err)
	}

	var qty int
	db.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE product_id = 9001 AND warehouse_id = 5`).Scan(&qty)
	if qty != 8 {
		t.Errorf("expected quantity 8, got %d", qty)
	}

	err = adapter.InTx(ctx, func(tx port.LedgerTx) error {
		order, err := tx.FetchOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			t.Fatal("order not found")
		}
		if order.Status != domain.OrderStatusReserved {
			t.Errorf("expected reserved, got %s", order.Status)
		}

		items, err := tx.FetchOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		if len(items) != 1 || items[0].Quantity != 2 || items[0].Price != 9.50 {
			t.Errorf("unexpected items: %+v", items)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("fetch tx failed: %v", err)
	}
}

func TestUpsertOrderItem_OverwritesOnConflict(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	orderID := time.Now().UnixNano() % 1_000_000_000
	cleanupOrder(db, orderID)
	defer cleanupOrder(db, orderID)

	err := adapter.InTx(ctx, func(tx port.LedgerTx) error {
		if _, err := tx.UpsertReserved(ctx, orderID, 5); err != nil {
			return err
		}
		if err := tx.UpsertOrderItem(ctx, orderID, 9002, 1, 1.00); err != nil {
			return err
		}
		return tx.UpsertOrderItem(ctx, orderID, 9002, 3, 2.50)
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	var (
		count int
		qty   int
		price float64
	)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = ?`, orderID).Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 item row, got %d", count)
	}
	db.QueryRowContext(ctx,
		`SELECT quantity, price FROM order_items WHERE order_id = ? AND product_id = 9002`,
		orderID).Scan(&qty, &price)
	if qty != 3 || price != 2.50 {
		t.Errorf("expected overwrite to 3 @ 2.50, got %d @ %v", qty, price)
	}
}

func TestDecrementInventory_NoRowIsNoOp(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	err := adapter.InTx(ctx, func(tx port.LedgerTx) error {
		out, err := tx.DecrementInventory(ctx, 404_404, 404, 1)
		if err != nil {
			return err
		}
		if out != port.DecrementNotFound {
			t.Errorf("expected DecrementNotFound, got %v", out)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}
}

func TestDecrementInventory_Underflow(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, warehouse_id, quantity) VALUES (9003, 5, 1)
		ON DUPLICATE KEY UPDATE quantity = 1`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err = adapter.InTx(ctx, func(tx port.LedgerTx) error {
		out, err := tx.DecrementInventory(ctx, 9003, 5, 5)
		if err != nil {
			return err
		}
		if out != port.DecrementUnderflow {
			t.Errorf("expected DecrementUnderflow, got %v", out)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	var qty int
	db.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE product_id = 9003 AND warehouse_id = 5`).Scan(&qty)
	if qty != -4 {
		t.Errorf("expected quantity -4, got %d", qty)
	}
}

func TestMarkProcessed_Dedup(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	messageID := fmt.Sprintf("test/0/%d", time.Now().UnixNano())
	defer db.ExecContext(ctx, `DELETE FROM processed_messages WHERE message_id = ?`, messageID)

	for i, want := range []bool{true, false} {
		var fresh bool
		err := adapter.InTx(ctx, func(tx port.LedgerTx) error {
			var err error
			fresh, err = tx.MarkProcessed(ctx, messageID)
			return err
		})
		if err != nil {
			t.Fatalf("tx %d failed: %v", i, err)
		}
		if fresh != want {
			t.Errorf("delivery %d: expected fresh=%v, got %v", i, want, fresh)
		}
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	ev := domain.OutboxEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().UnixNano()),
		Topic:     "order-confirmations",
		Key:       "1",
		Payload:   []byte(`{"order_id":1}`),
		CreatedAt: time.Now(),
	}
	defer db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, ev.ID)

	err := adapter.InTx(ctx, func(tx port.LedgerTx) error {
		return tx.EnqueueOutbox(ctx, ev)
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := adapter.PendingOutbox(ctx, 1000)
	if err != nil {
		t.Fatalf("PendingOutbox failed: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == ev.ID {
			found = true
			if p.Topic != ev.Topic || string(p.Payload) != string(ev.Payload) {
				t.Errorf("unexpected pending event: %+v", p)
			}
		}
	}
	if !found {
		t.Fatal("enqueued event not pending")
	}

	if err := adapter.MarkOutboxPublished(ctx, ev.ID); err != nil {
		t.Fatalf("MarkOutboxPublished failed: %v", err)
	}

	pending, err = adapter.PendingOutbox(ctx, 1000)
	if err != nil {
		t.Fatalf("PendingOutbox failed: %v", err)
	}
	for _, p := range pending {
		if p.ID == ev.ID {
			t.Error("published event still pending")
		}
	}
}

func TestInTx_RollbackOnError(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	orderID := time.Now().UnixNano() % 1_000_000_000
	cleanupOrder(db, orderID)
	defer cleanupOrder(db, orderID)

	err := adapter.InTx(ctx, func(tx port.LedgerTx) error {
		if _, err := tx.UpsertReserved(ctx, orderID, 5); err != nil {
			return err
		}
		return fmt.Errorf("forced abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE order_id = ?`, orderID).Scan(&count)
	if count != 0 {
		t.Error("order row should have been rolled back")
	}
}
