package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pos-invoice/internal/adapter/handler/posrpc"
	"github.com/rl1809/pos-invoice/internal/core/domain"
	"github.com/rl1809/pos-invoice/internal/core/service"
)

type GRPCHandler struct {
	posrpc.UnimplementedInvoiceServiceServer
	invoiceService *service.InvoiceService
}

func NewGRPCHandler(invoiceService *service.InvoiceService) *GRPCHandler {
	return &GRPCHandler{invoiceService: invoiceService}
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *posrpc.CheckoutRequest) (*posrpc.CheckoutResponse, error) {
	lines := make([]domain.LineRequest, 0, len(req.Lines))
	for i, l := range req.Lines {
		if l == nil {
			return nil, status.Errorf(codes.InvalidArgument, "line %d is empty", i+1)
		}
		lines = append(lines, domain.LineRequest{ProductName: l.Product, Quantity: int(l.Quantity)})
	}

	receipt, err := h.invoiceService.Checkout(ctx, service.CheckoutRequest{
		RequestID:     req.GetRequestId(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         lines,
	})
	if err != nil {
		return nil, grpcError(err)
	}

	currency := h.invoiceService.Currency()
	inv := receipt.Invoice
	out := &posrpc.Invoice{
		Id:            inv.ID,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Total:         inv.Total,
		CreatedAt:     inv.CreatedAt,
	}
	for _, l := range inv.Lines {
		out.Lines = append(out.Lines, &posrpc.InvoiceLine{
			Product:   l.ProductName,
			Quantity:  int64(l.Quantity),
			UnitPrice: l.UnitPrice,
			Text:      l.Text(currency),
		})
	}

	return &posrpc.CheckoutResponse{
		Invoice:         out,
		CustomerMessage: receipt.Message,
		WhatsappLink:    receipt.Link,
	}, nil
}

func (h *GRPCHandler) ListProducts(ctx context.Context, req *posrpc.ListProductsRequest) (*posrpc.ListProductsResponse, error) {
	var (
		products []domain.Product
		err      error
	)
	if req.AvailableOnly {
		products, err = h.invoiceService.AvailableProducts(ctx)
	} else {
		products, err = h.invoiceService.ListProducts(ctx)
	}
	if err != nil {
		return nil, grpcError(err)
	}

	resp := &posrpc.ListProductsResponse{Products: make([]*posrpc.Product, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, &posrpc.Product{Name: p.Name, Price: p.Price, Stock: int64(p.Stock)})
	}
	return resp, nil
}

func (h *GRPCHandler) UpsertProduct(ctx context.Context, req *posrpc.UpsertProductRequest) (*posrpc.UpsertProductResponse, error) {
	p := req.GetProduct()
	if p == nil {
		return nil, status.Error(codes.InvalidArgument, "product is required")
	}

	product := domain.Product{Name: p.Name, Price: p.Price, Stock: int(p.Stock)}
	if err := h.invoiceService.UpsertProduct(ctx, product); err != nil {
		return nil, grpcError(err)
	}
	return &posrpc.UpsertProductResponse{Product: p}, nil
}

func grpcError(err error) error {
	class := classify(err)
	return status.Error(class.grpcCode, class.message)
}

func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if status.Code(err) == codes.Internal || status.Code(err) == codes.Unavailable {
			logger.Error("grpc_request_failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc_request", fields...)
		}
		return resp, err
	}
}
