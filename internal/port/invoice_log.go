package port

import (
	"context"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

type InvoiceLog interface {
	// Append stores a completed invoice; invoices are never updated afterwards
	Append(ctx context.Context, invoice domain.Invoice) error
}
