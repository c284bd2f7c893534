package posrpc

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
}

type Line struct {
	Product  string `json:"product"`
	Quantity int64  `json:"quantity"`
}

type InvoiceLine struct {
	Product   string          `json:"product"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Text      string          `json:"text"`
}

type Invoice struct {
	Id            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Lines         []*InvoiceLine  `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CheckoutRequest struct {
	RequestId     string  `json:"request_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	Lines         []*Line `json:"lines"`
}

type CheckoutResponse struct {
	Invoice         *Invoice `json:"invoice"`
	CustomerMessage string   `json:"customer_message"`
	WhatsappLink    string   `json:"whatsapp_link"`
}

type ListProductsRequest struct {
	AvailableOnly bool `json:"available_only"`
}

type ListProductsResponse struct {
	Products []*Product `json:"products"`
}

type UpsertProductRequest struct {
	Product *Product `json:"product"`
}

type UpsertProductResponse struct {
	Product *Product `json:"product"`
}

func (r *CheckoutRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *UpsertProductRequest) GetProduct() *Product {
	if r == nil {
		return nil
	}
	return r.Product
}
