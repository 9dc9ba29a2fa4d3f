// Package product provides the Product catalog.
// Products carry a cached stock quantity that mirrors the sum of their
// inventory batch remainders; the inventory engine is the only writer of
// that cache.
package product

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Product represents a sellable item.
type Product struct {
	entity.BaseCatalog

	// Name is the display name
	Name string `db:"name" json:"name"`

	// SKU is the unique stock keeping unit code
	SKU string `db:"sku" json:"sku"`

	// CostPrice is the default purchase cost (new batches may override)
	CostPrice types.Money `db:"cost_price" json:"costPrice"`

	// SellingPrice is the default sale price (optional)
	SellingPrice *types.Money `db:"selling_price" json:"sellingPrice,omitempty"`

	// StockQuantity is the cached on-hand quantity in integer units.
	// Maintained by the inventory engine only.
	StockQuantity int `db:"stock_quantity" json:"stockQuantity"`

	// InitialStock is the quantity on hand when the product was created
	InitialStock int `db:"initial_stock" json:"initialStock"`

	// SupplierID is the default supplier (optional)
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// Category groups products for reporting
	Category *string `db:"category" json:"category,omitempty"`

	// ImagePath is a client-managed path to the product image
	ImagePath *string `db:"image_path" json:"imagePath,omitempty"`
}

// New creates a new Product with required fields.
func New(name, sku string, costPrice types.Money) *Product {
	return &Product{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
		SKU:         sku,
		CostPrice:   costPrice,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	if p.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").
			WithDetail("field", "costPrice")
	}
	if p.SellingPrice != nil && p.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative").
			WithDetail("field", "sellingPrice")
	}
	if p.InitialStock < 0 {
		return apperror.NewValidation("initial stock cannot be negative").
			WithDetail("field", "initialStock")
	}
	return nil
}

// InStock returns true if the cached stock quantity is positive.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
