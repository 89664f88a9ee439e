package domain

import "time"

// InvoiceData is everything the renderer needs to produce an invoice document.
type InvoiceData struct {
	OrderID     int64
	WarehouseID int64
	IssuedAt    time.Time
	Items       []OrderItem
	Total       float64
}

// Total sums quantity x price over the items as floating-point currency.
func InvoiceTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return total
}
