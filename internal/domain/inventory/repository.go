package inventory

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Repository defines persistence for batches, ledger entries, and
// consumption breakdowns. All mutating methods are called inside the
// engine's transaction with the product row already locked.
type Repository interface {
	CreateBatch(ctx context.Context, b *Batch) error

	// OpenBatches returns batches with remaining quantity in FIFO order
	// (received_date ASC, id ASC).
	OpenBatches(ctx context.Context, productID id.ID) ([]*Batch, error)

	// Batches returns all batches for a product, newest first.
	Batches(ctx context.Context, productID id.ID) ([]*Batch, error)

	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)

	// SetBatchRemaining overwrites a batch's remaining quantity.
	SetBatchRemaining(ctx context.Context, batchID id.ID, remaining int) error

	CreateTransaction(ctx context.Context, t *Transaction) error

	// Transactions returns the ledger for a product, newest first.
	Transactions(ctx context.Context, productID id.ID, limit int) ([]*Transaction, error)

	// SaleTransactions returns every sale ledger entry an invoice wrote
	// for a product, newest first. An invoice carrying several lines of
	// the same product writes one entry per line. Empty for legacy data
	// with no entries.
	SaleTransactions(ctx context.Context, productID, invoiceID id.ID) ([]*Transaction, error)

	CreateConsumptions(ctx context.Context, rows []Consumption) error

	ConsumptionsByTransaction(ctx context.Context, transactionID id.ID) ([]Consumption, error)

	// SumBatchRemaining returns the sum of remaining quantities.
	SumBatchRemaining(ctx context.Context, productID id.ID) (int, error)

	// SumLedger returns the sum of signed transaction quantities.
	SumLedger(ctx context.Context, productID id.ID) (int, error)

	// Valuation computes on-hand quantity and value from open batches.
	// A nil productID covers the whole store.
	Valuation(ctx context.Context, productID *id.ID) (*Valuation, error)

	// PurchaseHistory returns purchase ledger entries for a product
	// within the period, newest first.
	PurchaseHistory(ctx context.Context, productID id.ID, from, to time.Time) ([]*Transaction, error)
}

// ProductStore is the slice of the product repository the engine needs:
// locking a product row and moving its cached stock quantity.
type ProductStore interface {
	GetProductForUpdate(ctx context.Context, productID id.ID) (*ProductRow, error)
	AdjustStock(ctx context.Context, productID id.ID, delta int) error
}

// ProductRow is the product projection the engine works with.
type ProductRow struct {
	ID            id.ID
	Name          string
	StockQuantity int
	CostPrice     types.Money
}
