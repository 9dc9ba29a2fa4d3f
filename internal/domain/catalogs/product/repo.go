package product

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindBySKU retrieves a product by its unique SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindBySupplier lists products linked to a supplier.
	FindBySupplier(ctx context.Context, supplierID id.ID) ([]*Product, error)

	// FindLowStock lists products with stock at or below threshold.
	FindLowStock(ctx context.Context, threshold int) ([]*Product, error)

	// Categories returns the distinct non-empty category names.
	Categories(ctx context.Context) ([]string, error)

	// TopSelling returns products ordered by total invoiced quantity.
	TopSelling(ctx context.Context, limit int) ([]TopSellingProduct, error)

	// AdjustStock changes the cached stock quantity by delta.
	// Used by the inventory engine inside its transaction; the product
	// row must already be locked.
	AdjustStock(ctx context.Context, productID id.ID, delta int) error

	// ClearSupplier detaches all products from a supplier.
	ClearSupplier(ctx context.Context, supplierID id.ID) ([]id.ID, error)

	// RelinkSupplier re-attaches products to a supplier (archive restore).
	RelinkSupplier(ctx context.Context, supplierID id.ID, productIDs []id.ID) error
}

// TopSellingProduct is a sales ranking row.
type TopSellingProduct struct {
	Product  *Product    `json:"product"`
	SoldQty  int         `json:"soldQty"`
	Revenue  types.Money `json:"revenue"`
	Invoices int         `json:"invoices"`
}
