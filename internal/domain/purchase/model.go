// Package purchase implements purchase orders and supplier payments.
//
// A purchase order is drafted with its lines, then either cancelled or
// received. Receiving is the only path that touches stock: it books one
// inventory batch per line and freezes the order. Supplier payments are
// recorded against the supplier, optionally pinned to an order; paying
// more than the ordered total is allowed and simply shows as a negative
// outstanding balance.
package purchase

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Status enumerates the purchase order lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// NumberPrefix is the purchase order numbering prefix.
const NumberPrefix = "PO"

// MigratedNumberPrefix marks orders backfilled from pre-ledger data.
const MigratedNumberPrefix = "PO-MIGRATED"

// Order is a purchase order header.
type Order struct {
	entity.BaseDocument

	Number       string      `db:"po_number" json:"number"`
	SupplierID   id.ID       `db:"supplier_id" json:"supplierId"`
	Status       Status      `db:"status" json:"status"`
	OrderDate    time.Time   `db:"order_date" json:"orderDate"`
	ExpectedDate *time.Time  `db:"expected_date" json:"expectedDate,omitempty"`
	ReceivedDate *time.Time  `db:"received_date" json:"receivedDate,omitempty"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`
	Notes        *string     `db:"notes" json:"notes,omitempty"`
}

// Item is one purchase order line.
type Item struct {
	ID        id.ID       `db:"id" json:"id"`
	OrderID   id.ID       `db:"po_id" json:"orderId"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	Quantity  int         `db:"quantity" json:"quantity"`
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	TotalCost types.Money `db:"total_cost" json:"totalCost"`
}

// OrderWithItems bundles a header with its lines.
type OrderWithItems struct {
	Order *Order  `json:"order"`
	Items []*Item `json:"items"`
}

// OrderSummary is a list row with payment aggregates.
type OrderSummary struct {
	Order        *Order      `json:"order"`
	SupplierName string      `json:"supplierName"`
	ItemsCount   int         `json:"itemsCount"`
	TotalPaid    types.Money `json:"totalPaid"`
	TotalPending types.Money `json:"totalPending"`
}

// Payment is a payment to a supplier, optionally against an order.
type Payment struct {
	ID            id.ID       `db:"id" json:"id"`
	SupplierID    id.ID       `db:"supplier_id" json:"supplierId"`
	OrderID       *id.ID      `db:"po_id" json:"orderId,omitempty"`
	ProductID     *id.ID      `db:"product_id" json:"productId,omitempty"`
	Amount        types.Money `db:"amount" json:"amount"`
	PaymentMethod *string     `db:"payment_method" json:"paymentMethod,omitempty"`
	Note          *string     `db:"note" json:"note,omitempty"`
	PaidAt        time.Time   `db:"paid_at" json:"paidAt"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// PaymentSummary aggregates a supplier's ordered vs paid totals.
// Balance can be negative when overpaid.
type PaymentSummary struct {
	SupplierID   id.ID       `json:"supplierId"`
	SupplierName string      `json:"supplierName"`
	TotalOrdered types.Money `json:"totalOrdered"`
	TotalPaid    types.Money `json:"totalPaid"`
	Balance      types.Money `json:"balance"`
	OrdersCount  int         `json:"ordersCount"`
}

// Validate implements entity.Validatable interface.
func (o *Order) Validate(ctx context.Context) error {
	if o.SupplierID == id.Nil() {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if o.OrderDate.IsZero() {
		return apperror.NewValidation("order date is required").
			WithDetail("field", "orderDate")
	}
	switch o.Status {
	case StatusDraft, StatusReceived, StatusCancelled:
	default:
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(o.Status))
	}
	return nil
}

// CanTransitionTo reports whether the status machine allows the move.
// Draft orders may be received or cancelled; terminal states are frozen.
func (o *Order) CanTransitionTo(next Status) bool {
	if o.Status != StatusDraft {
		return false
	}
	return next == StatusReceived || next == StatusCancelled
}

// Validate checks a single order line.
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
	if i.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// Validate checks a supplier payment.
func (p *Payment) Validate(ctx context.Context) error {
	if p.SupplierID == id.Nil() {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}
