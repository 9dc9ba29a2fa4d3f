package credit

import (
	"context"

	"stockbook/internal/core/id"
)

// Repository defines persistence for customer payments.
type Repository interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, paymentID id.ID) (*Payment, error)
	DeletePayment(ctx context.Context, paymentID id.ID) error

	PaymentsByCustomer(ctx context.Context, customerID id.ID) ([]*Payment, error)
	PaymentsByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error)
}
