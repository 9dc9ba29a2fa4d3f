// Package invoice implements sales invoices.
//
// An invoice is created as a whole: header, line items with the product
// name snapshotted at sale time, and the FIFO stock consumption per
// line. Line items never change afterwards; the only mutable fields are
// billing metadata. Deleting an invoice archives a full snapshot and
// reverses its stock consumption exactly.
package invoice

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// NumberPrefix is the invoice numbering prefix.
const NumberPrefix = "INV"

// Invoice is a sales invoice header.
type Invoice struct {
	entity.BaseDocument

	Number         string      `db:"invoice_number" json:"number"`
	CustomerID     *id.ID      `db:"customer_id" json:"customerId,omitempty"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	InitialPaid    types.Money `db:"initial_paid" json:"initialPaid"`
	CreditAmount   types.Money `db:"credit_amount" json:"creditAmount"`
	PaymentMethod  *string     `db:"payment_method" json:"paymentMethod,omitempty"`
	State          *string     `db:"state" json:"state,omitempty"`
	District       *string     `db:"district" json:"district,omitempty"`
	Town           *string     `db:"town" json:"town,omitempty"`
}

// Item is one invoice line. ProductName is snapshotted at sale time so
// the invoice stays readable after the product is renamed or trashed.
type Item struct {
	ID          id.ID       `db:"id" json:"id"`
	InvoiceID   id.ID       `db:"invoice_id" json:"invoiceId"`
	ProductID   id.ID       `db:"product_id" json:"productId"`
	ProductName string      `db:"product_name" json:"productName"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	TotalPrice  types.Money `db:"total_price" json:"totalPrice"`
}

// InvoiceWithItems bundles a header with its lines.
type InvoiceWithItems struct {
	Invoice *Invoice `json:"invoice"`
	Items   []*Item  `json:"items"`
}

// Validate implements entity.Validatable interface.
func (i *Invoice) Validate(ctx context.Context) error {
	if i.Number == "" {
		return apperror.NewValidation("invoice number is required").
			WithDetail("field", "number")
	}
	if i.TotalAmount.IsNegative() {
		return apperror.NewValidation("total cannot be negative").
			WithDetail("field", "totalAmount")
	}
	if i.TaxAmount.IsNegative() || i.DiscountAmount.IsNegative() {
		return apperror.NewValidation("tax and discount cannot be negative")
	}
	if i.InitialPaid.IsNegative() || i.CreditAmount.IsNegative() {
		return apperror.NewValidation("paid and credit amounts cannot be negative")
	}
	return nil
}

// Validate checks a single invoice line.
func (i *Item) Validate(ctx context.Context) error {
	if i.ProductID == id.Nil() {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if i.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", i.Quantity)
	}
	if i.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	return nil
}

// MetadataUpdate carries the only fields an invoice allows changing
// after creation.
type MetadataUpdate struct {
	CustomerID    *id.ID
	PaymentMethod *string
	CreatedAt     *time.Time
}
