package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/inventory"
	"stockbook/internal/infrastructure/storage/postgres"
)

const productTable = "products"

// ProductRepo implements product.Repository, plus the narrow projection
// the inventory engine locks rows through.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*product.Product](
			txm,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			[]string{"name", "sku", "category"},
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindBySKU retrieves a product by its unique SKU.
func (r *ProductRepo) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	p, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(productTable, sku)
		}
		return nil, err
	}
	return p, nil
}

// FindBySupplier lists products linked to a supplier.
func (r *ProductRepo) FindBySupplier(ctx context.Context, supplierID id.ID) ([]*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"supplier_id": supplierID}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*product.Product
	if err := pgxscan.Select(ctx, r.Querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("find by supplier: %w", err)
	}
	return out, nil
}

// FindLowStock lists products with stock at or below threshold.
func (r *ProductRepo) FindLowStock(ctx context.Context, threshold int) ([]*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.LtOrEq{"stock_quantity": threshold}).
		OrderBy("stock_quantity ASC", "name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*product.Product
	if err := pgxscan.Select(ctx, r.Querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	return out, nil
}

// Categories returns the distinct non-empty category names.
func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	q := r.Builder().
		Select("DISTINCT category").
		From(productTable).
		Where(squirrel.NotEq{"category": nil}).
		Where(squirrel.NotEq{"category": ""}).
		OrderBy("category ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []string
	if err := pgxscan.Select(ctx, r.Querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return out, nil
}

// TopSelling returns products ordered by total invoiced quantity.
func (r *ProductRepo) TopSelling(ctx context.Context, limit int) ([]product.TopSellingProduct, error) {
	sql := `
        SELECT p.id, p.name, p.sku,
               COALESCE(SUM(ii.quantity), 0)    AS sold_qty,
               COALESCE(SUM(ii.total_price), 0) AS revenue,
               COUNT(DISTINCT ii.invoice_id)    AS invoices
        FROM products p
        JOIN invoice_items ii ON ii.product_id = p.id
        GROUP BY p.id, p.name, p.sku
        ORDER BY sold_qty DESC, revenue DESC
        LIMIT $1
	`

	rows, err := r.Querier(ctx).Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("top selling: %w", err)
	}
	defer rows.Close()

	var out []product.TopSellingProduct
	for rows.Next() {
		p := &product.Product{}
		row := product.TopSellingProduct{Product: p}
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &row.SoldQty, &row.Revenue, &row.Invoices); err != nil {
			return nil, fmt.Errorf("scan top selling: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AdjustStock changes the cached stock quantity by delta. The caller
// holds the row lock.
func (r *ProductRepo) AdjustStock(ctx context.Context, productID id.ID, delta int) error {
	q := r.Builder().
		Update(productTable).
		Set("stock_quantity", squirrel.Expr("stock_quantity + ?", delta)).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(productTable, productID.String())
	}
	return nil
}

// ClearSupplier detaches all products from a supplier and returns the
// detached IDs.
func (r *ProductRepo) ClearSupplier(ctx context.Context, supplierID id.ID) ([]id.ID, error) {
	sql := `
        UPDATE products SET supplier_id = NULL
        WHERE supplier_id = $1
        RETURNING id
	`

	rows, err := r.Querier(ctx).Query(ctx, sql, supplierID)
	if err != nil {
		return nil, fmt.Errorf("clear supplier: %w", err)
	}
	defer rows.Close()

	var ids []id.ID
	for rows.Next() {
		var pid id.ID
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan cleared product: %w", err)
		}
		ids = append(ids, pid)
	}
	return ids, rows.Err()
}

// RelinkSupplier re-attaches products to a supplier (archive restore).
func (r *ProductRepo) RelinkSupplier(ctx context.Context, supplierID id.ID, productIDs []id.ID) error {
	if len(productIDs) == 0 {
		return nil
	}

	q := r.Builder().
		Update(productTable).
		Set("supplier_id", supplierID).
		Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("relink supplier: %w", err)
	}
	return nil
}

// GetProductForUpdate locks the product row and returns the projection
// the inventory engine works with.
func (r *ProductRepo) GetProductForUpdate(ctx context.Context, productID id.ID) (*inventory.ProductRow, error) {
	q := r.Builder().
		Select("id", "name", "stock_quantity", "cost_price").
		From(productTable).
		Where(squirrel.Eq{"id": productID}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := &inventory.ProductRow{}
	if err := pgxscan.Get(ctx, r.Querier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(productTable, productID.String())
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	return row, nil
}
