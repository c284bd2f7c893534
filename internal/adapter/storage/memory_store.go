package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

// MemoryStore implements CatalogStore and InvoiceLog with in-memory storage
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	invoices []domain.Invoice
}

// NewMemoryStore creates a store seeded with the given products
func NewMemoryStore(products ...domain.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		s.products[p.Name] = p
	}
	return s
}

// ReadAll returns all products ordered by name
func (s *MemoryStore) ReadAll(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// UpdateStock applies the update if the stored stock still matches OldStock
func (s *MemoryStore) UpdateStock(ctx context.Context, update domain.StockUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[update.ProductName]
	if !exists {
		return domain.ErrUnknownProduct
	}
	if p.Stock != update.OldStock {
		return domain.ErrStockConflict
	}

	p.Stock = update.NewStock
	s.products[update.ProductName] = p
	return nil
}

// UpsertProduct inserts or replaces a product
func (s *MemoryStore) UpsertProduct(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.Name] = product
	return nil
}

// Append records an invoice
func (s *MemoryStore) Append(ctx context.Context, invoice domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invoices = append(s.invoices, invoice)
	return nil
}

// Invoices returns a copy of the recorded invoices in append order
func (s *MemoryStore) Invoices() []domain.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Invoice(nil), s.invoices...)
}
