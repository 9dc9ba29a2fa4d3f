package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/purchase"
)

// CreatePurchaseOrderRequest for creating draft purchase orders.
type CreatePurchaseOrderRequest struct {
	SupplierID id.ID                      `json:"supplierId" binding:"required"`
	Number     string                     `json:"number"`
	OrderDate  *time.Time                 `json:"orderDate"`
	Expected   *time.Time                 `json:"expectedDate"`
	Notes      *string                    `json:"notes"`
	Items      []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderItemRequest is one requested order line.
type PurchaseOrderItemRequest struct {
	ProductID id.ID       `json:"productId" binding:"required"`
	Quantity  int         `json:"quantity" binding:"required,min=1"`
	UnitCost  types.Money `json:"unitCost"`
}

// ToInput converts the request to a service input.
func (r CreatePurchaseOrderRequest) ToInput() purchase.CreateInput {
	in := purchase.CreateInput{
		SupplierID:   r.SupplierID,
		Number:       r.Number,
		ExpectedDate: r.Expected,
		Notes:        r.Notes,
	}
	if r.OrderDate != nil {
		in.OrderDate = *r.OrderDate
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, purchase.CreateItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
		})
	}
	return in
}

// ReceiveOrderRequest marks an order received.
type ReceiveOrderRequest struct {
	ReceivedDate *time.Time `json:"receivedDate"`
}

// CreateSupplierPaymentRequest records a payment to a supplier,
// optionally tied to an order or a product.
type CreateSupplierPaymentRequest struct {
	SupplierID    id.ID       `json:"supplierId" binding:"required"`
	OrderID       *id.ID      `json:"orderId"`
	ProductID     *id.ID      `json:"productId"`
	Amount        types.Money `json:"amount" binding:"required"`
	PaymentMethod *string     `json:"paymentMethod"`
	Note          *string     `json:"note"`
	PaidAt        *time.Time  `json:"paidAt"`
}

// ToEntity converts the request to a payment.
func (r CreateSupplierPaymentRequest) ToEntity() *purchase.Payment {
	p := &purchase.Payment{
		SupplierID:    r.SupplierID,
		OrderID:       r.OrderID,
		ProductID:     r.ProductID,
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		Note:          r.Note,
	}
	if r.PaidAt != nil {
		p.PaidAt = *r.PaidAt
	}
	return p
}
