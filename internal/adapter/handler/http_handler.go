package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/core/service"
)

type HTTPHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
	timeout        time.Duration
}

type LineHTTPRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type CheckoutHTTPRequest struct {
	RequestID     string            `json:"request_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Lines         []LineHTTPRequest `json:"lines"`
}

type InvoiceLineHTTP struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Text      string          `json:"text"`
}

type InvoiceHTTP struct {
	ID            string            `json:"id"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Lines         []InvoiceLineHTTP `json:"lines"`
	Total         decimal.Decimal   `json:"total"`
	CreatedAt     time.Time         `json:"created_at"`
}

type CheckoutHTTPResponse struct {
	Invoice      InvoiceHTTP `json:"invoice"`
	Message      string      `json:"message"`
	WhatsAppLink string      `json:"whatsapp_link"`
}

type ProductHTTP struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type UpsertProductHTTPRequest struct {
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

type ErrorHTTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Stage     string `json:"stage,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
}

func NewHTTPHandler(invoiceService *service.InvoiceService, logger *zap.Logger, timeout time.Duration) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{invoiceService: invoiceService, logger: logger, timeout: timeout}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	if h.timeout > 0 {
		r.Use(middleware.Timeout(h.timeout))
	}

	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Put("/products/{name}", h.UpsertProduct)
		r.Post("/invoices", h.Checkout)
	})
	return r
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	lines := make([]domain.LineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.LineRequest{ProductName: l.Product, Quantity: l.Quantity})
	}

	receipt, err := h.invoiceService.Checkout(r.Context(), service.CheckoutRequest{
		RequestID:     req.RequestID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         lines,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutHTTPResponse{
		Invoice:      toInvoiceHTTP(receipt.Invoice, h.invoiceService.Currency()),
		Message:      receipt.Message,
		WhatsAppLink: receipt.Link,
	})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if r.URL.Query().Get("available") == "true" {
		products, err = h.invoiceService.AvailableProducts(r.Context())
	} else {
		products, err = h.invoiceService.ListProducts(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ProductHTTP, 0, len(products))
	for _, p := range products {
		resp = append(resp, ProductHTTP{Name: p.Name, Price: p.Price, Stock: p.Stock})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	name, err := productNameParam(r)
	if err != nil || strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid product name"})
		return
	}

	var req UpsertProductHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.Price == nil || req.Stock == nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "price and stock are required"})
		return
	}

	product := domain.Product{Name: strings.TrimSpace(name), Price: *req.Price, Stock: *req.Stock}
	if err := h.invoiceService.UpsertProduct(r.Context(), product); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductHTTP{Name: product.Name, Price: product.Price, Stock: product.Stock})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	class := classify(err)
	resp := ErrorHTTPResponse{Message: class.message}

	var commitErr *domain.CommitError
	if errors.As(err, &commitErr) {
		resp.Stage = string(commitErr.Stage)
		resp.InvoiceID = commitErr.Invoice.ID
	}
	if class.httpStatus >= http.StatusInternalServerError {
		h.logger.Error("http_request_failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, class.httpStatus, resp)
}

// productNameParam returns the decoded {name} segment. chi matches on RawPath
// when the request carries one (e.g. an escaped "/"), leaving the param escaped.
func productNameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	return url.PathUnescape(name)
}

func toInvoiceHTTP(inv domain.Invoice, currency string) InvoiceHTTP {
	lines := make([]InvoiceLineHTTP, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, InvoiceLineHTTP{
			Product:   l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
			Text:      l.Text(currency),
		})
	}
	return InvoiceHTTP{
		ID:            inv.ID,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Lines:         lines,
		Total:         inv.Total,
		CreatedAt:     inv.CreatedAt,
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http_request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
