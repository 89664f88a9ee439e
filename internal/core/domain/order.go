package domain

type OrderStatus string

const (
	OrderStatusReserved  OrderStatus = "reserved"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

type Order struct {
	OrderID        int64
	WarehouseID    int64
	Status         OrderStatus
	InvoiceBlobURL string
}

type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     float64
}
