package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProduct      = errors.New("unknown product")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateProduct    = errors.New("duplicate product")
	ErrInvalidPhone        = errors.New("invalid phone")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrMissingCustomerInfo = errors.New("missing customer info")
	ErrEmptyOrder          = errors.New("no products selected")
	ErrStockConflict       = errors.New("stock changed since snapshot")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

// LineError reports which requested line failed validation.
type LineError struct {
	Index       int
	ProductName string
	Err         error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Index+1, e.ProductName, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

type ProductError struct {
	Name   string
	Reason string
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("product %q: %s", e.Name, e.Reason)
}

func (e *ProductError) Unwrap() error { return ErrInvalidProduct }

type CommitStage string

const (
	StageStockUpdate   CommitStage = "stock_update"
	StageInvoiceAppend CommitStage = "invoice_append"
)

// CommitError is returned when a write fails after validation. Applied lists the
// stock updates that already reached the catalog; nothing is rolled back.
type CommitError struct {
	Stage   CommitStage
	Applied []StockUpdate
	Invoice Invoice
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed at %s (invoice %s, %d stock updates applied): %v",
		e.Stage, e.Invoice.ID, len(e.Applied), e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a caller mistake rather than a store failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUnknownProduct, ErrInvalidQuantity, ErrInsufficientStock, ErrDuplicateProduct,
		ErrInvalidPhone, ErrMissingCustomerInfo, ErrEmptyOrder, ErrInvalidProduct,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
