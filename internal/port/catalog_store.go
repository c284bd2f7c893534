package port

import (
	"context"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

type CatalogStore interface {
	// ReadAll returns every product row
	ReadAll(ctx context.Context) ([]domain.Product, error)

	// UpdateStock sets the new stock for a product, failing with ErrStockConflict
	// when the stored stock no longer equals update.OldStock
	UpdateStock(ctx context.Context, update domain.StockUpdate) error

	// UpsertProduct inserts a product or replaces its price and stock
	UpsertProduct(ctx context.Context, product domain.Product) error
}
