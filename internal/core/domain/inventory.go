package domain

// InventoryRecord is keyed by (product_id, warehouse_id). Quantity may go
// negative: reservation applies no floor check.
type InventoryRecord struct {
	ProductID   int64
	WarehouseID int64
	Quantity    int
}
