package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/smartinv/fulfillment/internal/core/domain"
)

const (
	companyName   = "SMART INVENTORY SOLUTIONS PVT. LTD."
	footerThanks  = "Thank you for your business!"
	footerContact = "Contact: support@smartinventory.com"
)

// PDFRenderer renders an invoice document: company header, order details,
// per-item rows and a grand-total row.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(inv domain.InvoiceData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-25)
		pdf.SetDrawColor(180, 180, 180)
		pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 10, footerThanks, "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 10, footerContact, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 15, companyName, "", 1, "C", true, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Invoice #: INV-%04d", inv.OrderID), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 8, "Date: "+inv.IssuedAt.Format("2006-01-02 15:04:05"), "", 1, "R", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 10, "Invoice Details", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(100, 8, fmt.Sprintf("Order ID: %d", inv.OrderID), "", 1, "L", false, 0, "")
	pdf.CellFormat(100, 8, fmt.Sprintf("Warehouse ID: %d", inv.WarehouseID), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(50, 10, "Product ID", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 10, "Quantity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 10, "Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 10, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	for _, it := range inv.Items {
		lineTotal := float64(it.Quantity) * it.Price
		pdf.CellFormat(50, 10, fmt.Sprintf("%d", it.ProductID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 10, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 10, fmt.Sprintf("%.2f", it.Price), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 10, fmt.Sprintf("%.2f", lineTotal), "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(140, 10, "Grand Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 10, fmt.Sprintf("%.2f", inv.Total), "1", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
