package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/inventory"
)

// ReceiveStockRequest records a manual stock receipt outside a
// purchase order.
type ReceiveStockRequest struct {
	ProductID    id.ID       `json:"productId" binding:"required"`
	Quantity     int         `json:"quantity" binding:"required,min=1"`
	UnitCost     types.Money `json:"unitCost"`
	ReceivedDate *time.Time  `json:"receivedDate"`
	Notes        *string     `json:"notes"`
}

// ToInput converts the request to an engine input.
func (r ReceiveStockRequest) ToInput() inventory.PurchaseInput {
	in := inventory.PurchaseInput{
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitCost:  r.UnitCost,
		Notes:     r.Notes,
	}
	if r.ReceivedDate != nil {
		in.ReceivedDate = *r.ReceivedDate
	}
	return in
}

// AdjustStockRequest records a signed manual correction.
type AdjustStockRequest struct {
	ProductID  id.ID      `json:"productId" binding:"required"`
	Delta      int        `json:"delta" binding:"required"`
	Reason     string     `json:"reason" binding:"required"`
	OccurredAt *time.Time `json:"occurredAt"`
}
