package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type MySQLAdapter struct {
	db       *sql.DB
	currency string
}

func NewMySQLAdapter(db *sql.DB, currency string) *MySQLAdapter {
	return &MySQLAdapter{db: db, currency: currency}
}

// RunMigrations brings the products, invoices and invoice_lines tables up to date.
func RunMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) ReadAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT name, price, stock
		FROM products
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (m *MySQLAdapter) UpdateStock(ctx context.Context, update domain.StockUpdate) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = ?, version = version + 1
		WHERE name = ? AND stock = ?`,
		update.NewStock, update.ProductName, update.OldStock,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var exists int
	err = m.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE name = ?`, update.ProductName).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUnknownProduct
	}
	if err != nil {
		return fmt.Errorf("query product: %w", err)
	}

	return domain.ErrStockConflict
}

func (m *MySQLAdapter) UpsertProduct(ctx context.Context, product domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, price, stock, version)
		VALUES (?, ?, ?, 0)
		ON DUPLICATE KEY UPDATE price = VALUES(price), stock = VALUES(stock), version = version + 1`,
		product.Name, product.Price, product.Stock,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Append(ctx context.Context, invoice domain.Invoice) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, customer_name, customer_phone, products_text, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		invoice.ID, invoice.CustomerName, invoice.CustomerPhone,
		invoice.ProductsText(m.currency), invoice.Total, invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i, line := range invoice.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (invoice_id, position, product_name, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?)`,
			invoice.ID, i, line.ProductName, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert invoice line %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetInvoice loads an invoice with its lines, or returns nil if it does not exist.
func (m *MySQLAdapter) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_phone, total, created_at
		FROM invoices WHERE id = ?`, id,
	).Scan(&inv.ID, &inv.CustomerName, &inv.CustomerPhone, &inv.Total, &inv.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query invoice: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_name, quantity, unit_price
		FROM invoice_lines WHERE invoice_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.InvoiceLine
		if err := rows.Scan(&line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice lines: %w", err)
	}

	return &inv, nil
}
