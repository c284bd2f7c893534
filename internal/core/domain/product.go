package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places a price may carry. Stores persist
// prices at this scale.
const PriceScale = 2

type Product struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// Validate checks the catalog invariants for a single row.
func (p Product) Validate() error {
	switch {
	case p.Name == "":
		return &ProductError{Name: p.Name, Reason: "name is required"}
	case p.Price.IsNegative():
		return &ProductError{Name: p.Name, Reason: "price cannot be negative"}
	case !p.Price.Equal(p.Price.Round(PriceScale)):
		return &ProductError{Name: p.Name, Reason: fmt.Sprintf("price %s has more than %d decimal places", p.Price, PriceScale)}
	case p.Stock < 0:
		return &ProductError{Name: p.Name, Reason: "stock cannot be negative"}
	}
	return nil
}

// Snapshot is a read-only view of the catalog taken once per transaction.
type Snapshot map[string]Product

func NewSnapshot(products []Product) Snapshot {
	s := make(Snapshot, len(products))
	for _, p := range products {
		s[p.Name] = p
	}
	return s
}

func (s Snapshot) Lookup(name string) (Product, bool) {
	p, ok := s[name]
	return p, ok
}

// StockUpdate sets NewStock for a product. OldStock is the value observed in the
// snapshot and is used by stores as a compare-and-set guard.
type StockUpdate struct {
	ProductName string
	OldStock    int
	NewStock    int
}
