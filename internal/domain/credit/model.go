// Package credit implements customer payments against invoice credit.
//
// An invoice sold partly on credit carries a credit_amount; customers
// pay it down over time. Every payment is pinned to one invoice and the
// invoice must belong to the paying customer. Overpaying an invoice is
// tolerated in the data (the balance clamps at zero in reports).
package credit

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// PaymentStatus classifies an invoice's credit in history views.
type PaymentStatus string

const (
	StatusClear   PaymentStatus = "Clear"
	StatusPending PaymentStatus = "Pending"
)

// Payment is one customer payment against an invoice's credit.
type Payment struct {
	ID            id.ID       `db:"id" json:"id"`
	CustomerID    id.ID       `db:"customer_id" json:"customerId"`
	InvoiceID     id.ID       `db:"invoice_id" json:"invoiceId"`
	Amount        types.Money `db:"amount" json:"amount"`
	PaymentMethod *string     `db:"payment_method" json:"paymentMethod,omitempty"`
	Note          *string     `db:"note" json:"note,omitempty"`
	PaidAt        time.Time   `db:"paid_at" json:"paidAt"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// Validate checks a customer payment.
func (p *Payment) Validate(ctx context.Context) error {
	if p.CustomerID == id.Nil() {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if p.InvoiceID == id.Nil() {
		return apperror.NewValidation("invoice is required").
			WithDetail("field", "invoiceId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}

// HistoryEntry is one invoice's credit position in a customer's
// history.
type HistoryEntry struct {
	InvoiceID     id.ID         `json:"invoiceId"`
	InvoiceNumber string        `json:"invoiceNumber"`
	InvoiceDate   time.Time     `json:"invoiceDate"`
	BillAmount    types.Money   `json:"billAmount"`
	InitialPaid   types.Money   `json:"initialPaid"`
	CreditAmount  types.Money   `json:"creditAmount"`
	TotalPaid     types.Money   `json:"totalPaid"`
	Balance       types.Money   `json:"balance"`
	Status        PaymentStatus `json:"status"`
}

// Summary is a customer's aggregate credit position.
type Summary struct {
	CustomerID  id.ID       `json:"customerId"`
	TotalCredit types.Money `json:"totalCredit"`
	TotalPaid   types.Money `json:"totalPaid"`
	Pending     types.Money `json:"pending"`
}
