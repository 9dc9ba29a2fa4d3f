package purchase

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
)

// Repository defines persistence for purchase orders and their lines.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	CreateItems(ctx context.Context, items []*Item) error

	GetOrder(ctx context.Context, orderID id.ID) (*Order, error)
	GetOrderForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	ItemsByOrder(ctx context.Context, orderID id.ID) ([]*Item, error)

	// UpdateStatus stamps status and, for received orders, the date.
	UpdateStatus(ctx context.Context, o *Order) error

	DeleteOrder(ctx context.Context, orderID id.ID) error
	DeleteItems(ctx context.Context, orderID id.ID) error

	// List returns order summaries with supplier name, line count, and
	// payment aggregates.
	List(ctx context.Context, f ListFilter) (domain.ListResult[*OrderSummary], error)

	// MaxOrderNumber returns the highest numeric suffix among existing
	// PO numbers (0 when none). Migrated numbers count too.
	MaxOrderNumber(ctx context.Context) (int64, error)
}

// PaymentRepository defines persistence for supplier payments.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, paymentID id.ID) (*Payment, error)
	DeletePayment(ctx context.Context, paymentID id.ID) error

	PaymentsBySupplier(ctx context.Context, supplierID id.ID) ([]*Payment, error)
	PaymentsByOrder(ctx context.Context, orderID id.ID) ([]*Payment, error)

	// Summaries aggregates ordered vs paid per supplier.
	Summaries(ctx context.Context) ([]*PaymentSummary, error)
	SummaryBySupplier(ctx context.Context, supplierID id.ID) (*PaymentSummary, error)
}

// ListFilter narrows the purchase order list.
type ListFilter struct {
	Search     string // matches po_number and supplier name
	SupplierID *id.ID
	Status     *Status
	Limit      int
	Offset     int
}
