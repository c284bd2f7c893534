package posrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "pos.v1.InvoiceService"

	InvoiceServiceCheckoutFullMethodName      = "/pos.v1.InvoiceService/Checkout"
	InvoiceServiceListProductsFullMethodName  = "/pos.v1.InvoiceService/ListProducts"
	InvoiceServiceUpsertProductFullMethodName = "/pos.v1.InvoiceService/UpsertProduct"
)

type InvoiceServiceServer interface {
	Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	UpsertProduct(context.Context, *UpsertProductRequest) (*UpsertProductResponse, error)
}

// UnimplementedInvoiceServiceServer can be embedded to keep servers forward compatible.
type UnimplementedInvoiceServiceServer struct{}

func (UnimplementedInvoiceServiceServer) Checkout(context.Context, *CheckoutRequest) (*CheckoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Checkout not implemented")
}

func (UnimplementedInvoiceServiceServer) ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListProducts not implemented")
}

func (UnimplementedInvoiceServiceServer) UpsertProduct(context.Context, *UpsertProductRequest) (*UpsertProductResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpsertProduct not implemented")
}

func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceServiceDesc, srv)
}

var InvoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: checkoutHandler},
		{MethodName: "ListProducts", Handler: listProductsHandler},
		{MethodName: "UpsertProduct", Handler: upsertProductHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/v1/invoice_service",
}

func checkoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvoiceServiceCheckoutFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).Checkout(ctx, req.(*CheckoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listProductsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListProductsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).ListProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvoiceServiceListProductsFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).ListProducts(ctx, req.(*ListProductsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func upsertProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(UpsertProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).UpsertProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvoiceServiceUpsertProductFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).UpsertProduct(ctx, req.(*UpsertProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type InvoiceServiceClient interface {
	Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error)
	ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error)
	UpsertProduct(ctx context.Context, in *UpsertProductRequest, opts ...grpc.CallOption) (*UpsertProductResponse, error)
}

type invoiceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceServiceClient(cc grpc.ClientConnInterface) InvoiceServiceClient {
	return &invoiceServiceClient{cc: cc}
}

func (c *invoiceServiceClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	if err := c.cc.Invoke(ctx, InvoiceServiceCheckoutFullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *invoiceServiceClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*ListProductsResponse, error) {
	out := new(ListProductsResponse)
	if err := c.cc.Invoke(ctx, InvoiceServiceListProductsFullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *invoiceServiceClient) UpsertProduct(ctx context.Context, in *UpsertProductRequest, opts ...grpc.CallOption) (*UpsertProductResponse, error) {
	out := new(UpsertProductResponse)
	if err := c.cc.Invoke(ctx, InvoiceServiceUpsertProductFullMethodName, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(ContentSubtype)}, opts...)
}
