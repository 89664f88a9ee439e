package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smartinv/fulfillment/internal/core/domain"
	"github.com/smartinv/fulfillment/internal/port"
)

var errInjected = errors.New("injected failure")

type invKey struct {
	productID   int64
	warehouseID int64
}

type invoiceRow struct {
	orderID   int64
	createdAt time.Time
}

// fakeLedger is an in-memory port.Ledger. InTx holds the lock for the whole
// scope and restores a snapshot when fn fails, so per-invocation atomicity and
// cross-invocation serialization match what MySQL provides.
type fakeLedger struct {
	mu        sync.Mutex
	orders    map[int64]*domain.Order
	inventory map[invKey]int
	items     map[int64][]domain.OrderItem
	invoices  []invoiceRow
	processed map[string]bool
	outbox    []domain.OutboxEvent
	published map[string]bool

	failUpsertItem bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		orders:    make(map[int64]*domain.Order),
		inventory: make(map[invKey]int),
		items:     make(map[int64][]domain.OrderItem),
		processed: make(map[string]bool),
		published: make(map[string]bool),
	}
}

func (l *fakeLedger) snapshot() *fakeLedger {
	s := newFakeLedger()
	for k, v := range l.orders {
		o := *v
		s.orders[k] = &o
	}
	for k, v := range l.inventory {
		s.inventory[k] = v
	}
	for k, v := range l.items {
		s.items[k] = append([]domain.OrderItem(nil), v...)
	}
	s.invoices = append([]invoiceRow(nil), l.invoices...)
	for k, v := range l.processed {
		s.processed[k] = v
	}
	s.outbox = append([]domain.OutboxEvent(nil), l.outbox...)
	for k, v := range l.published {
		s.published[k] = v
	}
	return s
}

func (l *fakeLedger) restore(s *fakeLedger) {
	l.orders = s.orders
	l.inventory = s.inventory
	l.items = s.items
	l.invoices = s.invoices
	l.processed = s.processed
	l.outbox = s.outbox
	l.published = s.published
}

func (l *fakeLedger) InTx(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot()
	if err := fn(&fakeTx{l: l}); err != nil {
		l.restore(snap)
		return err
	}
	return nil
}

func (l *fakeLedger) PendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pending []domain.OutboxEvent
	for _, ev := range l.outbox {
		if !l.published[ev.ID] {
			pending = append(pending, ev)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (l *fakeLedger) MarkOutboxPublished(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published[id] = true
	return nil
}

func (l *fakeLedger) pendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.outbox {
		if !l.published[ev.ID] {
			n++
		}
	}
	return n
}

type fakeTx struct {
	l *fakeLedger
}

func (t *fakeTx) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	if t.l.processed[messageID] {
		return false, nil
	}
	t.l.processed[messageID] = true
	return true, nil
}

func (t *fakeTx) UpsertReserved(ctx context.Context, orderID, warehouseID int64) (port.ReserveOutcome, error) {
	if o, ok := t.l.orders[orderID]; ok {
		o.Status = domain.OrderStatusReserved
		return port.AlreadyReserved, nil
	}
	t.l.orders[orderID] = &domain.Order{
		OrderID:     orderID,
		WarehouseID: warehouseID,
		Status:      domain.OrderStatusReserved,
	}
	return port.Reserved, nil
}

func (t *fakeTx) DecrementInventory(ctx context.Context, productID, warehouseID int64, qty int) (port.DecrementOutcome, error) {
	key := invKey{productID, warehouseID}
	if _, ok := t.l.inventory[key]; !ok {
		return port.DecrementNotFound, nil
	}
	t.l.inventory[key] -= qty
	if t.l.inventory[key] < 0 {
		return port.DecrementUnderflow, nil
	}
	return port.DecrementApplied, nil
}

func (t *fakeTx) UpsertOrderItem(ctx context.Context, orderID, productID int64, qty int, price float64) error {
	if t.l.failUpsertItem {
		return errInjected
	}
	items := t.l.items[orderID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = qty
			items[i].Price = price
			return nil
		}
	}
	t.l.items[orderID] = append(items, domain.OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  qty,
		Price:     price,
	})
	return nil
}

func (t *fakeTx) FetchOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, ok := t.l.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (t *fakeTx) MarkConfirmed(ctx context.Context, orderID int64) error {
	if o, ok := t.l.orders[orderID]; ok {
		o.Status = domain.OrderStatusConfirmed
	}
	return nil
}

func (t *fakeTx) FetchOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), t.l.items[orderID]...), nil
}

func (t *fakeTx) InsertInvoiceRecord(ctx context.Context, orderID int64, createdAt time.Time) error {
	t.l.invoices = append(t.l.invoices, invoiceRow{orderID: orderID, createdAt: createdAt})
	return nil
}

func (t *fakeTx) SetInvoiceBlobURL(ctx context.Context, orderID int64, url string) error {
	if o, ok := t.l.orders[orderID]; ok {
		o.InvoiceBlobURL = url
	}
	return nil
}

func (t *fakeTx) EnqueueOutbox(ctx context.Context, ev domain.OutboxEvent) error {
	t.l.outbox = append(t.l.outbox, ev)
	return nil
}

type publishedMsg struct {
	topic string
	key   string
	value string
}

type fakePublisher struct {
	mu        sync.Mutex
	messages  []publishedMsg
	failTimes int
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTimes > 0 {
		p.failTimes--
		return errInjected
	}
	p.messages = append(p.messages, publishedMsg{topic: topic, key: string(key), value: string(value)})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type fakeRenderer struct {
	rendered []domain.InvoiceData
}

func (r *fakeRenderer) Render(inv domain.InvoiceData) ([]byte, error) {
	r.rendered = append(r.rendered, inv)
	return []byte("%PDF-fake"), nil
}

type fakeBlobStore struct {
	objects map[string][]byte
	uploads int
	fail    bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (b *fakeBlobStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if b.fail {
		return "", errInjected
	}
	b.objects[key] = data
	b.uploads++
	return "http://blobs.local/invoices/" + key, nil
}
