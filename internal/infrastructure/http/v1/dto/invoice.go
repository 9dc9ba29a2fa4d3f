package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/invoice"
)

// CreateInvoiceRequest for creating invoices. At least one item is
// required; the invoice number is always generated server-side.
type CreateInvoiceRequest struct {
	CustomerID     *id.ID               `json:"customerId"`
	TaxAmount      types.Money          `json:"taxAmount"`
	DiscountAmount types.Money          `json:"discountAmount"`
	InitialPaid    types.Money          `json:"initialPaid"`
	CreditAmount   types.Money          `json:"creditAmount"`
	PaymentMethod  *string              `json:"paymentMethod"`
	State          *string              `json:"state"`
	District       *string              `json:"district"`
	Town           *string              `json:"town"`
	CreatedAt      *time.Time           `json:"createdAt"`
	Items          []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// InvoiceItemRequest is one requested invoice line.
type InvoiceItemRequest struct {
	ProductID id.ID       `json:"productId" binding:"required"`
	Quantity  int         `json:"quantity" binding:"required,min=1"`
	UnitPrice types.Money `json:"unitPrice"`
}

// ToInput converts the request to a service input.
func (r CreateInvoiceRequest) ToInput() invoice.CreateInput {
	in := invoice.CreateInput{
		CustomerID:     r.CustomerID,
		TaxAmount:      r.TaxAmount,
		DiscountAmount: r.DiscountAmount,
		InitialPaid:    r.InitialPaid,
		CreditAmount:   r.CreditAmount,
		PaymentMethod:  r.PaymentMethod,
		State:          r.State,
		District:       r.District,
		Town:           r.Town,
		CreatedAt:      r.CreatedAt,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, invoice.CreateItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return in
}

// UpdateInvoiceRequest carries the metadata fields an invoice allows
// changing after creation. Amounts and items are immutable.
type UpdateInvoiceRequest struct {
	CustomerID    *id.ID     `json:"customerId"`
	PaymentMethod *string    `json:"paymentMethod"`
	CreatedAt     *time.Time `json:"createdAt"`
}

// ToUpdate converts the request to a metadata update.
func (r UpdateInvoiceRequest) ToUpdate() invoice.MetadataUpdate {
	return invoice.MetadataUpdate{
		CustomerID:    r.CustomerID,
		PaymentMethod: r.PaymentMethod,
		CreatedAt:     r.CreatedAt,
	}
}
