package invoice

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
)

// ListFilter narrows invoice listings.
type ListFilter struct {
	Search     string
	CustomerID *id.ID
	Limit      int
	Offset     int
}

// Repository defines persistence for invoices.
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	CreateItems(ctx context.Context, items []*Item) error

	GetInvoice(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	ItemsByInvoice(ctx context.Context, invoiceID id.ID) ([]*Item, error)

	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteItems(ctx context.Context, invoiceID id.ID) error
	DeleteInvoice(ctx context.Context, invoiceID id.ID) error

	List(ctx context.Context, f ListFilter) (domain.ListResult[*Invoice], error)

	// MaxInvoiceNumber returns the highest numeric suffix among stored
	// invoice numbers (0 when none). Read inside the issuing transaction
	// so numbers are never recycled.
	MaxInvoiceNumber(ctx context.Context) (int64, error)
}
