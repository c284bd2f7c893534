package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

// invoiceRecord is the JSON form of an invoice kept by the Redis log.
type invoiceRecord struct {
	ID            string              `json:"id"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	Lines         []invoiceLineRecord `json:"lines"`
	Total         decimal.Decimal     `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
}

type invoiceLineRecord struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func newInvoiceRecord(inv domain.Invoice) invoiceRecord {
	lines := make([]invoiceLineRecord, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = invoiceLineRecord{Product: l.ProductName, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return invoiceRecord{
		ID:            inv.ID,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Lines:         lines,
		Total:         inv.Total,
		CreatedAt:     inv.CreatedAt,
	}
}

func (r invoiceRecord) toDomain() domain.Invoice {
	lines := make([]domain.InvoiceLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.InvoiceLine{ProductName: l.Product, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return domain.Invoice{
		ID:            r.ID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Lines:         lines,
		Total:         r.Total,
		CreatedAt:     r.CreatedAt,
	}
}
