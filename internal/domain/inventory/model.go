// Package inventory implements FIFO batch-costed stock keeping.
//
// Every unit on hand belongs to exactly one batch. Sales consume batches
// in arrival order (received_date, then id), and each consumption is
// persisted so a later reversal can put quantities back into the exact
// batches they came from. The transactions table is an append-only
// ledger: for any product the signed transaction quantities sum to the
// cached stock, which in turn equals the sum of batch remainders.
package inventory

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// TransactionKind enumerates ledger entry kinds.
type TransactionKind string

const (
	KindPurchase     TransactionKind = "purchase"
	KindSale         TransactionKind = "sale"
	KindSaleReversal TransactionKind = "sale_reversal"
	KindAdjustment   TransactionKind = "adjustment"
)

// Reference kinds link ledger entries to their originating documents.
const (
	RefInvoice       = "invoice"
	RefPurchaseOrder = "purchase_order"
	RefOpening       = "opening"
	RefManual        = "manual"
)

// Batch is a received lot of a single product at one unit cost.
// QuantityRemaining only decreases through FIFO consumption and only
// increases through reversal replay; it never exceeds QuantityReceived
// and never drops below zero. Exhausted batches are kept for audit.
type Batch struct {
	ID                id.ID       `db:"id" json:"id"`
	ProductID         id.ID       `db:"product_id" json:"productId"`
	POItemID          *id.ID      `db:"po_item_id" json:"poItemId,omitempty"`
	QuantityReceived  int         `db:"quantity_received" json:"quantityReceived"`
	QuantityRemaining int         `db:"quantity_remaining" json:"quantityRemaining"`
	UnitCost          types.Money `db:"unit_cost" json:"unitCost"`
	ReceivedDate      time.Time   `db:"received_date" json:"receivedDate"`
	CreatedAt         time.Time   `db:"created_at" json:"createdAt"`
}

// Transaction is one append-only stock ledger entry.
// Quantity is signed: positive for receipts, negative for issues.
type Transaction struct {
	ID            id.ID           `db:"id" json:"id"`
	ProductID     id.ID           `db:"product_id" json:"productId"`
	Kind          TransactionKind `db:"kind" json:"kind"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitCost      types.Money     `db:"unit_cost" json:"unitCost"`
	TotalCost     types.Money     `db:"total_cost" json:"totalCost"`
	ReferenceKind *string         `db:"reference_kind" json:"referenceKind,omitempty"`
	ReferenceID   *id.ID          `db:"reference_id" json:"referenceId,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	OccurredAt    time.Time       `db:"occurred_at" json:"occurredAt"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// Consumption records how many units a single ledger entry took from a
// single batch. The rows for one transaction are its FIFO breakdown.
type Consumption struct {
	ID            id.ID       `db:"id" json:"id"`
	TransactionID id.ID       `db:"transaction_id" json:"transactionId"`
	BatchID       id.ID       `db:"batch_id" json:"batchId"`
	Quantity      int         `db:"quantity" json:"quantity"`
	UnitCost      types.Money `db:"unit_cost" json:"unitCost"`
}

// SaleResult reports the cost of a FIFO sale.
type SaleResult struct {
	TransactionID id.ID         `json:"transactionId"`
	TotalCost     types.Money   `json:"totalCost"`
	UnitCost      types.Money   `json:"unitCost"`
	Breakdown     []Consumption `json:"breakdown"`
}

// ConsistencyReport compares the three views of a product's stock.
type ConsistencyReport struct {
	ProductID      id.ID `json:"productId"`
	StockQuantity  int   `json:"stockQuantity"`
	BatchRemaining int   `json:"batchRemaining"`
	LedgerSum      int   `json:"ledgerSum"`
	Consistent     bool  `json:"consistent"`
}

// Valuation is the on-hand value of one product (or the whole store).
type Valuation struct {
	ProductID   *id.ID      `json:"productId,omitempty"`
	Quantity    int         `json:"quantity"`
	TotalValue  types.Money `json:"totalValue"`
	AverageCost types.Money `json:"averageCost"`
}
