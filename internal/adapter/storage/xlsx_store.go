package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

var (
	productHeader = []string{"Product", "Price", "Stock"}
	invoiceHeader = []string{"Name", "Mobile", "Products", "Total", "Invoice ID", "Created At"}
)

// XLSXStore keeps the catalog and the invoice log in two local workbooks, one
// row per product and one row per invoice. Every write rewrites the whole
// workbook through a temporary file and a rename.
type XLSXStore struct {
	mu           sync.Mutex
	productsPath string
	invoicesPath string
	currency     string
}

// InvoiceRow is one line of the invoice workbook.
type InvoiceRow struct {
	Name      string
	Mobile    string
	Products  string
	Total     string
	InvoiceID string
	CreatedAt string
}

func NewXLSXStore(productsPath, invoicesPath, currency string) *XLSXStore {
	return &XLSXStore{
		productsPath: productsPath,
		invoicesPath: invoicesPath,
		currency:     currency,
	}
}

func (s *XLSXStore) ReadAll(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadProducts()
}

func (s *XLSXStore) UpdateStock(ctx context.Context, update domain.StockUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts()
	if err != nil {
		return err
	}

	for i := range products {
		if products[i].Name != update.ProductName {
			continue
		}
		if products[i].Stock != update.OldStock {
			return domain.ErrStockConflict
		}
		products[i].Stock = update.NewStock
		return s.saveProducts(products)
	}

	return domain.ErrUnknownProduct
}

func (s *XLSXStore) UpsertProduct(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts()
	if err != nil {
		return err
	}

	replaced := false
	for i := range products {
		if products[i].Name == product.Name {
			products[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		products = append(products, product)
	}

	return s.saveProducts(products)
}

func (s *XLSXStore) Append(ctx context.Context, invoice domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.loadInvoiceRows()
	if err != nil {
		return err
	}
	rows = append(rows, InvoiceRow{
		Name:      invoice.CustomerName,
		Mobile:    invoice.CustomerPhone,
		Products:  invoice.ProductsText(s.currency),
		Total:     invoice.Total.String(),
		InvoiceID: invoice.ID,
		CreatedAt: invoice.CreatedAt.UTC().Format(time.RFC3339),
	})

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := writeRow(f, sheet, 1, toAny(invoiceHeader)); err != nil {
		return err
	}
	for i, r := range rows {
		row := []any{r.Name, r.Mobile, r.Products, r.Total, r.InvoiceID, r.CreatedAt}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
		if total, err := decimal.NewFromString(r.Total); err == nil {
			if err := setDecimalCell(f, sheet, 4, i+2, total); err != nil {
				return err
			}
		}
	}

	return saveWorkbook(f, s.invoicesPath)
}

// InvoiceRows returns the invoice workbook rows in append order.
func (s *XLSXStore) InvoiceRows(ctx context.Context) ([]InvoiceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadInvoiceRows()
}

func (s *XLSXStore) loadProducts() ([]domain.Product, error) {
	rows, err := readSheet(s.productsPath)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	cols := columnIndex(rows[0], productHeader)
	products := make([]domain.Product, 0, len(rows)-1)
	seen := make(map[string]int, len(rows)-1)
	for n, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, cols["Product"]))
		if name == "" {
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(cell(row, cols["Price"])))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parse price: %w", s.productsPath, n+2, err)
		}
		stock, err := decimal.NewFromString(strings.TrimSpace(cell(row, cols["Stock"])))
		if err != nil || !stock.IsInteger() {
			return nil, fmt.Errorf("%s row %d: stock %q is not a whole number", s.productsPath, n+2, cell(row, cols["Stock"]))
		}

		if first, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s row %d: product %q already listed at row %d", s.productsPath, n+2, name, first)
		}
		seen[name] = n + 2

		product := domain.Product{Name: name, Price: price, Stock: int(stock.IntPart())}
		if err := product.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.productsPath, n+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *XLSXStore) saveProducts(products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := writeRow(f, sheet, 1, toAny(productHeader)); err != nil {
		return err
	}
	for i, p := range products {
		if err := writeRow(f, sheet, i+2, []any{p.Name, nil, p.Stock}); err != nil {
			return err
		}
		if err := setDecimalCell(f, sheet, 2, i+2, p.Price); err != nil {
			return err
		}
	}

	return saveWorkbook(f, s.productsPath)
}

func (s *XLSXStore) loadInvoiceRows() ([]InvoiceRow, error) {
	rows, err := readSheet(s.invoicesPath)
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	cols := columnIndex(rows[0], invoiceHeader)
	result := make([]InvoiceRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		result = append(result, InvoiceRow{
			Name:      cell(row, cols["Name"]),
			Mobile:    cell(row, cols["Mobile"]),
			Products:  cell(row, cols["Products"]),
			Total:     cell(row, cols["Total"]),
			InvoiceID: cell(row, cols["Invoice ID"]),
			CreatedAt: cell(row, cols["Created At"]),
		})
	}
	return result, nil
}

// readSheet returns the raw rows of the first sheet, or nil if the file does not exist yet.
func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func saveWorkbook(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".pos-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// setDecimalCell stores d as an untyped cell holding its exact decimal text, which
// spreadsheet apps read as a number.
func setDecimalCell(f *excelize.File, sheet string, col, row int, d decimal.Decimal) error {
	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellDefault(sheet, cellName, d.String()); err != nil {
		return fmt.Errorf("write cell %s: %w", cellName, err)
	}
	return nil
}

// columnIndex maps known header names to their column, falling back to the
// default layout for headers that are missing.
func columnIndex(header []string, known []string) map[string]int {
	idx := make(map[string]int, len(known))
	for i, name := range known {
		idx[name] = i
	}
	for i, h := range header {
		for _, name := range known {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				idx[name] = i
			}
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
