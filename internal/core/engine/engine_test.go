package engine

import (
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "inv-1" }),
	}
	return New(append(base, opts...)...)
}

func snapshotOf(products ...domain.Product) domain.Snapshot {
	return domain.NewSnapshot(products)
}

func product(name string, price int64, stock int) domain.Product {
	return domain.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock}
}

func TestValidateAndPrice_SingleLine(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 5))

	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Mug", Quantity: 2}})
	require.NoError(t, err)

	require.Len(t, priced.Lines, 1)
	assert.Equal(t, "20", priced.Total.String())
	assert.Equal(t, "Mug x 2 ($10)", priced.Lines[0].Text(e.Currency()))
}

func TestValidateAndPrice_InsufficientStock(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 1))

	_, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Mug", Quantity: 2}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var lineErr *domain.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 0, lineErr.Index)
	assert.Equal(t, "Mug", lineErr.ProductName)
}

func TestValidateAndPrice_EmptyCatalog(t *testing.T) {
	e := newTestEngine()

	_, err := e.ValidateAndPrice(domain.Snapshot{}, []domain.LineRequest{{ProductName: "Mug", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestValidateAndPrice_EmptyRequest(t *testing.T) {
	e := newTestEngine()

	_, err := e.ValidateAndPrice(snapshotOf(product("Mug", 10, 5)), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestValidateAndPrice_InvalidQuantity(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 5))

	for _, qty := range []int{0, -1, -100} {
		_, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Mug", Quantity: qty}})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "quantity %d", qty)
	}
}

func TestValidateAndPrice_UnknownBeforeQuantity(t *testing.T) {
	e := newTestEngine()

	_, err := e.ValidateAndPrice(snapshotOf(product("Mug", 10, 5)),
		[]domain.LineRequest{{ProductName: "Plate", Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestValidateAndPrice_NamesAreCaseSensitive(t *testing.T) {
	e := newTestEngine()

	_, err := e.ValidateAndPrice(snapshotOf(product("Mug", 10, 5)),
		[]domain.LineRequest{{ProductName: "mug", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestValidateAndPrice_RejectsDuplicatesByDefault(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 5), product("Plate", 4, 3))

	_, err := e.ValidateAndPrice(snap, []domain.LineRequest{
		{ProductName: "Mug", Quantity: 1},
		{ProductName: "Plate", Quantity: 1},
		{ProductName: "Mug", Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)

	var lineErr *domain.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 2, lineErr.Index)
}

func TestValidateAndPrice_MergeSumsBeforeStockCheck(t *testing.T) {
	e := newTestEngine(WithDuplicatePolicy(MergeDuplicates))
	snap := snapshotOf(product("Mug", 10, 5), product("Plate", 4, 3))

	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{
		{ProductName: "Mug", Quantity: 2},
		{ProductName: "Plate", Quantity: 1},
		{ProductName: "Mug", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, priced.Lines, 2)
	assert.Equal(t, "Mug", priced.Lines[0].ProductName)
	assert.Equal(t, 5, priced.Lines[0].Quantity)
	assert.Equal(t, "54", priced.Total.String())

	_, err = e.ValidateAndPrice(snap, []domain.LineRequest{
		{ProductName: "Mug", Quantity: 3},
		{ProductName: "Mug", Quantity: 3},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestValidateAndPrice_MergeDoesNotOverflowQuantity(t *testing.T) {
	e := newTestEngine(WithDuplicatePolicy(MergeDuplicates))
	snap := snapshotOf(product("Mug", 10, 5))

	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{
		{ProductName: "Mug", Quantity: math.MaxInt},
		{ProductName: "Mug", Quantity: 2},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, priced.Lines)

	var lineErr *domain.LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 1, lineErr.Index)
}

func TestValidateAndPrice_UsesSnapshotPrice(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(domain.Product{Name: "Card", Price: decimal.RequireFromString("2.50"), Stock: 10})

	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Card", Quantity: 3}})
	require.NoError(t, err)

	// Later catalog edits must not leak into an already priced order.
	snap["Card"] = domain.Product{Name: "Card", Price: decimal.NewFromInt(99), Stock: 10}

	assert.Equal(t, "7.5", priced.Total.String())
	assert.Equal(t, "Card x 3 ($2.5)", priced.Lines[0].Text("$"))
}

func TestValidateAndPrice_TotalMatchesIndependentSum(t *testing.T) {
	e := newTestEngine()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var products []domain.Product
		var requested []domain.LineRequest
		expected := decimal.Zero

		n := 1 + rng.Intn(6)
		for i := 0; i < n; i++ {
			price := decimal.New(rng.Int63n(100000), -2)
			stock := 1 + rng.Intn(50)
			qty := 1 + rng.Intn(stock)
			name := fmt.Sprintf("item-%d", i)

			products = append(products, domain.Product{Name: name, Price: price, Stock: stock})
			requested = append(requested, domain.LineRequest{ProductName: name, Quantity: qty})
			expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}

		priced, err := e.ValidateAndPrice(domain.NewSnapshot(products), requested)
		require.NoError(t, err)
		assert.True(t, expected.Equal(priced.Total), "round %d: want %s got %s", round, expected, priced.Total)
	}
}

func TestCommit_DerivesStockAndInvoice(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 5))

	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Mug", Quantity: 2}})
	require.NoError(t, err)

	result, err := e.Commit(snap, priced, " Asha ", "919876543210")
	require.NoError(t, err)

	assert.Equal(t, []domain.StockUpdate{{ProductName: "Mug", OldStock: 5, NewStock: 3}}, result.StockUpdates)
	assert.Equal(t, "inv-1", result.Invoice.ID)
	assert.Equal(t, "Asha", result.Invoice.CustomerName)
	assert.Equal(t, "919876543210", result.Invoice.CustomerPhone)
	assert.Equal(t, fixedNow, result.Invoice.CreatedAt)
	assert.Equal(t, "20", result.Invoice.Total.String())
	assert.Equal(t, "Mug x 2 ($10)", result.Invoice.ProductsText("$"))

	// The snapshot is left untouched.
	assert.Equal(t, 5, snap["Mug"].Stock)
}

func TestCommit_MissingCustomerInfo(t *testing.T) {
	e := newTestEngine()
	snap := snapshotOf(product("Mug", 10, 5))
	priced, err := e.ValidateAndPrice(snap, []domain.LineRequest{{ProductName: "Mug", Quantity: 1}})
	require.NoError(t, err)

	_, err = e.Commit(snap, priced, "Asha", "")
	assert.ErrorIs(t, err, domain.ErrMissingCustomerInfo)

	_, err = e.Commit(snap, priced, "   ", "919876543210")
	assert.ErrorIs(t, err, domain.ErrMissingCustomerInfo)
}

func TestCommit_NeverProducesNegativeStock(t *testing.T) {
	e := newTestEngine(WithDuplicatePolicy(MergeDuplicates))
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		var products []domain.Product
		var requested []domain.LineRequest
		for i := 0; i < 1+rng.Intn(5); i++ {
			name := fmt.Sprintf("p%d", rng.Intn(4))
			products = append(products, product(name, 1+rng.Int63n(20), rng.Intn(6)))
			requested = append(requested, domain.LineRequest{ProductName: name, Quantity: 1 + rng.Intn(4)})
		}
		snap := domain.NewSnapshot(products)

		priced, err := e.ValidateAndPrice(snap, requested)
		if err != nil {
			continue
		}
		result, err := e.Commit(snap, priced, "c", "1")
		require.NoError(t, err)
		for _, u := range result.StockUpdates {
			assert.GreaterOrEqual(t, u.NewStock, 0)
			assert.Equal(t, snap[u.ProductName].Stock, u.OldStock)
		}
	}
}

func TestCommit_RejectsOrderNotCoveredBySnapshot(t *testing.T) {
	e := newTestEngine()
	priced := domain.PricedOrder{
		Lines: []domain.InvoiceLine{{ProductName: "Mug", Quantity: 4, UnitPrice: decimal.NewFromInt(10)}},
		Total: decimal.NewFromInt(40),
	}

	_, err := e.Commit(snapshotOf(product("Mug", 10, 3)), priced, "Asha", "1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = e.Commit(domain.Snapshot{}, priced, "Asha", "1")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestFormatCustomerMessage(t *testing.T) {
	e := newTestEngine()
	invoice := domain.Invoice{
		CustomerName: "Asha",
		Lines: []domain.InvoiceLine{
			{ProductName: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
			{ProductName: "Brush Set", Quantity: 1, UnitPrice: decimal.RequireFromString("4.75")},
		},
		Total: decimal.RequireFromString("24.75"),
	}

	msg := e.FormatCustomerMessage(invoice, "The Artsy Retreat", "We run workshops too!")

	assert.Equal(t, "Hello Asha, thank you for buying from The Artsy Retreat! Your invoice:\n"+
		"Mug x 2 ($10)\n"+
		"Brush Set x 1 ($4.75)\n"+
		"Total: $24.75\n"+
		"We run workshops too!", msg)

	noPromo := e.FormatCustomerMessage(invoice, "The Artsy Retreat", "")
	assert.NotContains(t, noPromo, "workshops")
	assert.Contains(t, noPromo, "Total: $24.75")
}

func TestFormatCustomerMessage_Currency(t *testing.T) {
	e := newTestEngine(WithCurrency("₹"))
	invoice := domain.Invoice{
		CustomerName: "Ravi",
		Lines:        []domain.InvoiceLine{{ProductName: "Mug", Quantity: 1, UnitPrice: decimal.NewFromInt(250)}},
		Total:        decimal.NewFromInt(250),
	}

	assert.Contains(t, e.FormatCustomerMessage(invoice, "Shop", ""), "Mug x 1 (₹250)\nTotal: ₹250")
}

func TestBuildMessagingLink(t *testing.T) {
	link, err := BuildMessagingLink("919876543210", "Hello Asha\nTotal: $20")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/919876543210?text=Hello%20Asha%0ATotal%3A%20%2420", link)
}

func TestBuildMessagingLink_InvalidPhone(t *testing.T) {
	for _, phone := range []string{"", "+919876543210", "98765 43210", "98-76", "٣٣٣"} {
		_, err := BuildMessagingLink(phone, "hi")
		assert.ErrorIs(t, err, domain.ErrInvalidPhone, "phone %q", phone)
	}
}

func TestBuildMessagingLink_RoundTrip(t *testing.T) {
	e := newTestEngine()
	invoice := domain.Invoice{
		CustomerName: "Zoë & Co",
		Lines: []domain.InvoiceLine{
			{ProductName: "Salt+Pepper 50%", Quantity: 2, UnitPrice: decimal.RequireFromString("3.5")},
			{ProductName: "A/B ?=#", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
		},
		Total: decimal.NewFromInt(8),
	}
	msg := e.FormatCustomerMessage(invoice, "Shop", "Ping us back!")

	link, err := BuildMessagingLink("15551234567", msg)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", parsed.Host)
	assert.Equal(t, "/15551234567", parsed.Path)
	assert.Equal(t, msg, parsed.Query().Get("text"))
	assert.NotContains(t, parsed.RawQuery, "+")
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejectDuplicates, p)

	p, err = ParseDuplicatePolicy(" Merge ")
	require.NoError(t, err)
	assert.Equal(t, MergeDuplicates, p)

	_, err = ParseDuplicatePolicy("sum")
	assert.Error(t, err)
}
