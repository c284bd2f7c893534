package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/core/engine"
	"github.com/rl1809/pos-invoice/internal/port"
)

const (
	checkoutLockKey      = "lock:checkout"
	defaultLockTTL       = 10 * time.Second
	idempotencyKeyPrefix = "checkout:"
)

type CheckoutRequest struct {
	RequestID     string
	CustomerName  string
	CustomerPhone string
	Lines         []domain.LineRequest
}

type Receipt struct {
	Invoice domain.Invoice
	Message string
	Link    string
}

type InvoiceService struct {
	catalog     port.CatalogStore
	invoices    port.InvoiceLog
	locker      port.Locker
	lockTTL     time.Duration
	idempotency port.IdempotencyStore
	engine      *engine.Engine
	logger      *zap.Logger

	businessName string
	promoText    string
}

type Option func(*InvoiceService)

// WithLocker serializes checkouts from snapshot read to the last write.
func WithLocker(locker port.Locker, ttl time.Duration) Option {
	return func(s *InvoiceService) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *InvoiceService) { s.idempotency = store }
}

func WithBranding(businessName, promoText string) Option {
	return func(s *InvoiceService) {
		s.businessName = businessName
		s.promoText = promoText
	}
}

func NewInvoiceService(catalog port.CatalogStore, invoices port.InvoiceLog, eng *engine.Engine, logger *zap.Logger, opts ...Option) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InvoiceService{
		catalog:  catalog,
		invoices: invoices,
		lockTTL:  defaultLockTTL,
		engine:   eng,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout validates and records a sale, then builds the customer message link.
// All validation happens before the first write. A write failure is returned as
// *domain.CommitError describing which write failed.
func (s *InvoiceService) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" || phone == "" {
		return nil, domain.ErrMissingCustomerInfo
	}
	if err := engine.ValidatePhone(phone); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, checkoutLockKey, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: acquire checkout lock: %w", domain.ErrStoreUnavailable, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("checkout_lock_release_failed", zap.Error(err))
			}
		}()
	}

	products, err := s.catalog.ReadAll(ctx)
	if err != nil {
		return nil, storeError("read catalog", err)
	}
	snapshot := domain.NewSnapshot(products)

	priced, err := s.engine.ValidateAndPrice(snapshot, req.Lines)
	if err != nil {
		s.logger.Info("checkout_rejected", zap.String("customer", name), zap.Error(err))
		return nil, err
	}

	result, err := s.engine.Commit(snapshot, priced, name, phone)
	if err != nil {
		return nil, err
	}
	invoice := result.Invoice

	// Claimed after validation; a rejected request may be resubmitted with the same ID.
	if req.RequestID != "" && s.idempotency != nil {
		ok, err := s.idempotency.SetIdempotency(ctx, idempotencyKeyPrefix+req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("%w: idempotency check failed: %w", domain.ErrStoreUnavailable, err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	applied := make([]domain.StockUpdate, 0, len(result.StockUpdates))
	for _, update := range result.StockUpdates {
		if err := s.catalog.UpdateStock(ctx, update); err != nil {
			commitErr := &domain.CommitError{
				Stage:   domain.StageStockUpdate,
				Applied: applied,
				Invoice: invoice,
				Err:     storeError("update stock "+update.ProductName, err),
			}
			s.logger.Error("checkout_commit_failed",
				zap.String("invoice_id", invoice.ID),
				zap.String("stage", string(commitErr.Stage)),
				zap.String("product", update.ProductName),
				zap.Int("applied", len(applied)),
				zap.Error(err),
			)
			return nil, commitErr
		}
		applied = append(applied, update)
	}

	if err := s.invoices.Append(ctx, invoice); err != nil {
		commitErr := &domain.CommitError{
			Stage:   domain.StageInvoiceAppend,
			Applied: applied,
			Invoice: invoice,
			Err:     storeError("append invoice", err),
		}
		s.logger.Error("checkout_commit_failed",
			zap.String("invoice_id", invoice.ID),
			zap.String("stage", string(commitErr.Stage)),
			zap.Int("applied", len(applied)),
			zap.Error(err),
		)
		return nil, commitErr
	}

	message := s.engine.FormatCustomerMessage(invoice, s.businessName, s.promoText)
	link, err := engine.BuildMessagingLink(phone, message)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice_created",
		zap.String("invoice_id", invoice.ID),
		zap.String("customer", invoice.CustomerName),
		zap.Int("lines", len(invoice.Lines)),
		zap.String("total", invoice.Total.String()),
	)

	return &Receipt{Invoice: invoice, Message: message, Link: link}, nil
}

func (s *InvoiceService) Currency() string { return s.engine.Currency() }

func (s *InvoiceService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.catalog.ReadAll(ctx)
	if err != nil {
		return nil, storeError("read catalog", err)
	}
	return products, nil
}

// AvailableProducts returns only the products that can still be sold.
func (s *InvoiceService) AvailableProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Stock > 0 {
			available = append(available, p)
		}
	}
	return available, nil
}

func (s *InvoiceService) UpsertProduct(ctx context.Context, product domain.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if err := product.Validate(); err != nil {
		return err
	}
	if err := s.catalog.UpsertProduct(ctx, product); err != nil {
		return storeError("upsert product", err)
	}
	s.logger.Info("product_upserted",
		zap.String("product", product.Name),
		zap.String("price", product.Price.String()),
		zap.Int("stock", product.Stock),
	)
	return nil
}

// storeError keeps domain errors reported by a store and marks everything else as
// the store being unavailable.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrStockConflict) ||
		errors.Is(err, domain.ErrUnknownProduct) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
