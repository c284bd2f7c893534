package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/pos?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	require.NoError(t, RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	return db
}

func TestMySQL_UpsertAndReadAll(t *testing.T) {
	db := getMySQLDB(t)
	ctx := context.Background()
	adapter := NewMySQLAdapter(db, "$")

	name := "test-mug-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.ExecContext(ctx, `DELETE FROM products WHERE name = ?`, name) })

	require.NoError(t, adapter.UpsertProduct(ctx, domain.Product{Name: name, Price: decimal.RequireFromString("10.50"), Stock: 5}))
	require.NoError(t, adapter.UpsertProduct(ctx, domain.Product{Name: name, Price: decimal.RequireFromString("12.25"), Stock: 8}))

	products, err := adapter.ReadAll(ctx)
	require.NoError(t, err)

	var found *domain.Product
	for i := range products {
		if products[i].Name == name {
			found = &products[i]
		}
	}
	require.NotNil(t, found, "product not found in database")
	assert.Equal(t, "12.25", found.Price.String())
	assert.Equal(t, 8, found.Stock)

	var version int
	db.QueryRowContext(ctx, `SELECT version FROM products WHERE name = ?`, name).Scan(&version)
	assert.Equal(t, 1, version)
}

func TestMySQL_UpdateStock_OptimisticLock(t *testing.T) {
	db := getMySQLDB(t)
	ctx := context.Background()
	adapter := NewMySQLAdapter(db, "$")

	name := "lock-test-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.ExecContext(ctx, `DELETE FROM products WHERE name = ?`, name) })
	require.NoError(t, adapter.UpsertProduct(ctx, domain.Product{Name: name, Price: decimal.NewFromInt(1), Stock: 100}))

	require.NoError(t, adapter.UpdateStock(ctx, domain.StockUpdate{ProductName: name, OldStock: 100, NewStock: 90}))

	var stock int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE name = ?`, name).Scan(&stock)
	assert.Equal(t, 90, stock)

	// Stale snapshot
	err := adapter.UpdateStock(ctx, domain.StockUpdate{ProductName: name, OldStock: 100, NewStock: 80})
	assert.ErrorIs(t, err, domain.ErrStockConflict)

	err = adapter.UpdateStock(ctx, domain.StockUpdate{ProductName: "nonexistent-" + name, OldStock: 1, NewStock: 0})
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestMySQL_AppendAndGetInvoice(t *testing.T) {
	db := getMySQLDB(t)
	ctx := context.Background()
	adapter := NewMySQLAdapter(db, "$")

	invoice := domain.Invoice{
		ID:            uuid.NewString(),
		CustomerName:  "Asha",
		CustomerPhone: "919876543210",
		Lines: []domain.InvoiceLine{
			{ProductName: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
			{ProductName: "Brush", Quantity: 1, UnitPrice: decimal.RequireFromString("4.75")},
		},
		Total:     decimal.RequireFromString("24.75"),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, invoice.ID)
		db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, invoice.ID)
	})

	require.NoError(t, adapter.Append(ctx, invoice))

	var productsText string
	db.QueryRowContext(ctx, `SELECT products_text FROM invoices WHERE id = ?`, invoice.ID).Scan(&productsText)
	assert.Equal(t, "Mug x 2 ($10), Brush x 1 ($4.75)", productsText)

	got, err := adapter.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Asha", got.CustomerName)
	assert.Equal(t, "24.75", got.Total.String())
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Brush", got.Lines[1].ProductName)
	assert.Equal(t, "4.75", got.Lines[1].UnitPrice.String())
}

func TestMySQL_GetInvoice_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db, "$")

	got, err := adapter.GetInvoice(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}
