package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/port"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
}

// BreakerStore guards a remote catalog and invoice log with one circuit breaker.
// While the breaker is open every call fails fast with ErrStoreUnavailable.
type BreakerStore struct {
	catalog  port.CatalogStore
	invoices port.InvoiceLog
	cb       *gobreaker.CircuitBreaker[any]
}

func NewBreakerStore(catalog port.CatalogStore, invoices port.InvoiceLog, settings BreakerSettings, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerStore{catalog: catalog, invoices: invoices, cb: cb}
}

func (b *BreakerStore) ReadAll(ctx context.Context) ([]domain.Product, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.catalog.ReadAll(ctx)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	products, _ := v.([]domain.Product)
	return products, nil
}

func (b *BreakerStore) UpdateStock(ctx context.Context, update domain.StockUpdate) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.catalog.UpdateStock(ctx, update)
	})
	return breakerError(err)
}

func (b *BreakerStore) UpsertProduct(ctx context.Context, product domain.Product) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.catalog.UpsertProduct(ctx, product)
	})
	return breakerError(err)
}

func (b *BreakerStore) Append(ctx context.Context, invoice domain.Invoice) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.invoices.Append(ctx, invoice)
	})
	return breakerError(err)
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

// Domain answers mean the store is reachable and must not trip the breaker.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrStockConflict) || errors.Is(err, domain.ErrUnknownProduct)
}
