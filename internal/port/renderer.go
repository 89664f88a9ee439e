package port

import "github.com/smartinv/fulfillment/internal/core/domain"

type InvoiceRenderer interface {
	Render(inv domain.InvoiceData) ([]byte, error)
}
