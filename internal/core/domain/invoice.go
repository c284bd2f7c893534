package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "$"

type LineRequest struct {
	ProductName string
	Quantity    int
}

type InvoiceLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func (l InvoiceLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Text renders the line as "<Product> x <Quantity> (<Currency><UnitPrice>)".
func (l InvoiceLine) Text(currency string) string {
	return fmt.Sprintf("%s x %d (%s%s)", l.ProductName, l.Quantity, currency, l.UnitPrice.String())
}

type PricedOrder struct {
	Lines []InvoiceLine
	Total decimal.Decimal
}

type Invoice struct {
	ID            string
	CustomerName  string
	CustomerPhone string
	Lines         []InvoiceLine
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// ProductsText flattens the lines for backends that store them in a single cell.
func (inv Invoice) ProductsText(currency string) string {
	parts := make([]string, len(inv.Lines))
	for i, l := range inv.Lines {
		parts[i] = l.Text(currency)
	}
	return strings.Join(parts, ", ")
}

type CommitResult struct {
	StockUpdates []StockUpdate
	Invoice      Invoice
}
