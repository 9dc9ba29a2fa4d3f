package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/credit"
)

// CreateCustomerPaymentRequest records a payment against an invoice.
type CreateCustomerPaymentRequest struct {
	CustomerID    id.ID       `json:"customerId" binding:"required"`
	InvoiceID     id.ID       `json:"invoiceId" binding:"required"`
	Amount        types.Money `json:"amount" binding:"required"`
	PaymentMethod *string     `json:"paymentMethod"`
	Note          *string     `json:"note"`
	PaidAt        *time.Time  `json:"paidAt"`
}

// ToEntity converts the request to a payment.
func (r CreateCustomerPaymentRequest) ToEntity() *credit.Payment {
	p := &credit.Payment{
		CustomerID:    r.CustomerID,
		InvoiceID:     r.InvoiceID,
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		Note:          r.Note,
	}
	if r.PaidAt != nil {
		p.PaidAt = *r.PaidAt
	}
	return p
}
