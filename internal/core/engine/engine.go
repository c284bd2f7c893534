// Package engine holds the sale rules: validating a multi-line request against a
// catalog snapshot, deriving stock updates and the invoice, and rendering the
// customer message. Nothing here touches storage.
package engine

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

const messagingBaseURL = "https://wa.me/"

// DuplicatePolicy decides what happens when a product appears on more than one line.
type DuplicatePolicy string

const (
	RejectDuplicates DuplicatePolicy = "reject"
	MergeDuplicates  DuplicatePolicy = "merge"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RejectDuplicates, MergeDuplicates:
		return p, nil
	case "":
		return RejectDuplicates, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

type Engine struct {
	policy   DuplicatePolicy
	currency string
	now      func() time.Time
	newID    func() string
}

type Option func(*Engine)

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithCurrency(symbol string) Option {
	return func(e *Engine) { e.currency = symbol }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		policy:   RejectDuplicates,
		currency: domain.DefaultCurrency,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Currency() string { return e.currency }

// ValidateAndPrice checks every requested line against the snapshot and prices it
// with the snapshot price. Quantities of a repeated product are summed before the
// stock check when the engine merges duplicates.
func (e *Engine) ValidateAndPrice(snapshot domain.Snapshot, requested []domain.LineRequest) (domain.PricedOrder, error) {
	if len(requested) == 0 {
		return domain.PricedOrder{}, domain.ErrEmptyOrder
	}

	lines := make([]domain.InvoiceLine, 0, len(requested))
	firstIndex := make(map[string]int, len(requested))
	position := make(map[string]int, len(requested))

	for i, req := range requested {
		product, ok := snapshot.Lookup(req.ProductName)
		if !ok {
			return domain.PricedOrder{}, lineError(i, req.ProductName, domain.ErrUnknownProduct)
		}
		if req.Quantity <= 0 {
			return domain.PricedOrder{}, lineError(i, req.ProductName, domain.ErrInvalidQuantity)
		}

		if pos, seen := position[req.ProductName]; seen {
			if e.policy != MergeDuplicates {
				return domain.PricedOrder{}, lineError(i, req.ProductName, domain.ErrDuplicateProduct)
			}
			if req.Quantity > product.Stock-lines[pos].Quantity {
				return domain.PricedOrder{}, lineError(i, req.ProductName,
					fmt.Errorf("%w: requested %d more, available %d", domain.ErrInsufficientStock,
						req.Quantity, product.Stock-lines[pos].Quantity))
			}
			lines[pos].Quantity += req.Quantity
			continue
		}

		position[req.ProductName] = len(lines)
		firstIndex[req.ProductName] = i
		lines = append(lines, domain.InvoiceLine{
			ProductName: product.Name,
			Quantity:    req.Quantity,
			UnitPrice:   product.Price,
		})
	}

	total := decimal.Zero
	for _, line := range lines {
		product := snapshot[line.ProductName]
		if line.Quantity > product.Stock {
			return domain.PricedOrder{}, lineError(firstIndex[line.ProductName], line.ProductName,
				fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientStock, line.Quantity, product.Stock))
		}
		total = total.Add(line.Subtotal())
	}

	return domain.PricedOrder{Lines: lines, Total: total}, nil
}

// Commit derives the stock updates and the invoice for an order already priced
// against the same snapshot. It performs no writes.
func (e *Engine) Commit(snapshot domain.Snapshot, priced domain.PricedOrder, customerName, customerPhone string) (domain.CommitResult, error) {
	customerName = strings.TrimSpace(customerName)
	customerPhone = strings.TrimSpace(customerPhone)
	if customerName == "" || customerPhone == "" {
		return domain.CommitResult{}, domain.ErrMissingCustomerInfo
	}
	if len(priced.Lines) == 0 {
		return domain.CommitResult{}, domain.ErrEmptyOrder
	}

	updates := make([]domain.StockUpdate, 0, len(priced.Lines))
	index := make(map[string]int, len(priced.Lines))
	for i, line := range priced.Lines {
		product, ok := snapshot.Lookup(line.ProductName)
		if !ok {
			return domain.CommitResult{}, lineError(i, line.ProductName, domain.ErrUnknownProduct)
		}

		if j, seen := index[line.ProductName]; seen {
			updates[j].NewStock -= line.Quantity
		} else {
			index[line.ProductName] = len(updates)
			updates = append(updates, domain.StockUpdate{
				ProductName: line.ProductName,
				OldStock:    product.Stock,
				NewStock:    product.Stock - line.Quantity,
			})
		}

		if updates[index[line.ProductName]].NewStock < 0 {
			return domain.CommitResult{}, lineError(i, line.ProductName, domain.ErrInsufficientStock)
		}
	}

	invoice := domain.Invoice{
		ID:            e.newID(),
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		Lines:         append([]domain.InvoiceLine(nil), priced.Lines...),
		Total:         priced.Total,
		CreatedAt:     e.now().UTC(),
	}

	return domain.CommitResult{StockUpdates: updates, Invoice: invoice}, nil
}

// FormatCustomerMessage renders the invoice text sent to the customer.
func (e *Engine) FormatCustomerMessage(invoice domain.Invoice, businessName, promoText string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hello %s, thank you for buying from %s! Your invoice:\n", invoice.CustomerName, businessName)
	for _, line := range invoice.Lines {
		b.WriteString(line.Text(e.currency))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total: %s%s", e.currency, invoice.Total.String())

	if promo := strings.TrimSpace(promoText); promo != "" {
		b.WriteByte('\n')
		b.WriteString(promo)
	}

	return b.String()
}

// ValidatePhone accepts only a non-empty run of ASCII digits (country code included).
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: phone is empty", domain.ErrInvalidPhone)
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q contains non-digit characters", domain.ErrInvalidPhone, phone)
		}
	}
	return nil
}

// BuildMessagingLink returns the wa.me link that opens a chat pre-filled with message.
func BuildMessagingLink(phone, message string) (string, error) {
	if err := ValidatePhone(phone); err != nil {
		return "", err
	}
	return messagingBaseURL + phone + "?text=" + encodeMessage(message), nil
}

// QueryEscape turns spaces into '+', which messaging clients show literally.
func encodeMessage(message string) string {
	return strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

func lineError(index int, name string, err error) error {
	return &domain.LineError{Index: index, ProductName: name, Err: err}
}
