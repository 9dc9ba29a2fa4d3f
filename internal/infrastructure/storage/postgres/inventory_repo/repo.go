// Package inventory_repo provides PostgreSQL persistence for the FIFO
// inventory engine: batches, the stock ledger, and FIFO breakdowns.
package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/inventory"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	batchTable       = "inventory_batches"
	transactionTable = "inventory_transactions"
	consumptionTable = "inventory_consumptions"
)

// Repo implements inventory.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new inventory repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreateBatch inserts a new stock batch.
func (r *Repo) CreateBatch(ctx context.Context, b *inventory.Batch) error {
	q := r.builder().
		Insert(batchTable).
		SetMap(postgres.StructToMap(b))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *Repo) batchSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[inventory.Batch]()...).
		From(batchTable)
}

// OpenBatches returns batches with stock left, oldest first. Ties on
// received date break by id so the walk order is stable.
func (r *Repo) OpenBatches(ctx context.Context, productID id.ID) ([]*inventory.Batch, error) {
	q := r.batchSelect().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Gt{"quantity_remaining": 0}).
		OrderBy("received_date ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*inventory.Batch
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("open batches: %w", err)
	}
	return out, nil
}

// Batches returns all batches for a product, newest first.
func (r *Repo) Batches(ctx context.Context, productID id.ID) ([]*inventory.Batch, error) {
	q := r.batchSelect().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("received_date DESC", "id DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*inventory.Batch
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("batches: %w", err)
	}
	return out, nil
}

// GetBatch retrieves one batch.
func (r *Repo) GetBatch(ctx context.Context, batchID id.ID) (*inventory.Batch, error) {
	q := r.batchSelect().
		Where(squirrel.Eq{"id": batchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	b := &inventory.Batch{}
	if err := pgxscan.Get(ctx, r.querier(ctx), b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(batchTable, batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// SetBatchRemaining overwrites a batch's remaining quantity.
func (r *Repo) SetBatchRemaining(ctx context.Context, batchID id.ID, remaining int) error {
	q := r.builder().
		Update(batchTable).
		Set("quantity_remaining", remaining).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set batch remaining: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(batchTable, batchID.String())
	}
	return nil
}

// CreateTransaction appends a ledger entry.
func (r *Repo) CreateTransaction(ctx context.Context, t *inventory.Transaction) error {
	q := r.builder().
		Insert(transactionTable).
		SetMap(postgres.StructToMap(t))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repo) transactionSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[inventory.Transaction]()...).
		From(transactionTable)
}

// Transactions returns the ledger for a product, newest first.
func (r *Repo) Transactions(ctx context.Context, productID id.ID, limit int) ([]*inventory.Transaction, error) {
	q := r.transactionSelect().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("occurred_at DESC", "created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*inventory.Transaction
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return out, nil
}

// SaleTransactions returns every sale entry an invoice wrote for a
// product, newest first. One invoice can write several when it carries
// multiple lines of the same product.
func (r *Repo) SaleTransactions(ctx context.Context, productID, invoiceID id.ID) ([]*inventory.Transaction, error) {
	q := r.transactionSelect().
		Where(squirrel.Eq{
			"product_id":     productID,
			"kind":           inventory.KindSale,
			"reference_kind": inventory.RefInvoice,
			"reference_id":   invoiceID,
		}).
		OrderBy("created_at DESC", "id DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*inventory.Transaction
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("sale transactions: %w", err)
	}
	return out, nil
}

// CreateConsumptions inserts the FIFO breakdown rows for one ledger
// entry.
func (r *Repo) CreateConsumptions(ctx context.Context, rows []inventory.Consumption) error {
	if len(rows) == 0 {
		return nil
	}

	q := r.builder().
		Insert(consumptionTable).
		Columns("id", "transaction_id", "batch_id", "quantity", "unit_cost")
	for _, c := range rows {
		q = q.Values(c.ID, c.TransactionID, c.BatchID, c.Quantity, c.UnitCost)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert consumptions: %w", err)
	}
	return nil
}

// ConsumptionsByTransaction returns a ledger entry's FIFO breakdown.
func (r *Repo) ConsumptionsByTransaction(ctx context.Context, transactionID id.ID) ([]inventory.Consumption, error) {
	q := r.builder().
		Select(postgres.ExtractDBColumns[inventory.Consumption]()...).
		From(consumptionTable).
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []inventory.Consumption
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("consumptions: %w", err)
	}
	return out, nil
}

// SumBatchRemaining returns the sum of remaining quantities.
func (r *Repo) SumBatchRemaining(ctx context.Context, productID id.ID) (int, error) {
	sql := `SELECT COALESCE(SUM(quantity_remaining), 0) FROM inventory_batches WHERE product_id = $1`

	var sum int
	if err := r.querier(ctx).QueryRow(ctx, sql, productID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum batch remaining: %w", err)
	}
	return sum, nil
}

// SumLedger returns the sum of signed transaction quantities.
func (r *Repo) SumLedger(ctx context.Context, productID id.ID) (int, error) {
	sql := `SELECT COALESCE(SUM(quantity), 0) FROM inventory_transactions WHERE product_id = $1`

	var sum int
	if err := r.querier(ctx).QueryRow(ctx, sql, productID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return sum, nil
}

// Valuation computes on-hand quantity and value from open batches.
func (r *Repo) Valuation(ctx context.Context, productID *id.ID) (*inventory.Valuation, error) {
	q := r.builder().
		Select(
			"COALESCE(SUM(quantity_remaining), 0) AS quantity",
			"COALESCE(SUM(quantity_remaining * unit_cost), 0) AS value",
		).
		From(batchTable).
		Where(squirrel.Gt{"quantity_remaining": 0})
	if productID != nil {
		q = q.Where(squirrel.Eq{"product_id": *productID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	v := &inventory.Valuation{ProductID: productID}
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&v.Quantity, &v.TotalValue); err != nil {
		return nil, fmt.Errorf("valuation: %w", err)
	}
	if v.Quantity > 0 {
		v.AverageCost = v.TotalValue.Div(types.NewMoneyFromInt(int64(v.Quantity)))
	} else {
		v.AverageCost = types.Zero()
	}
	return v, nil
}

// PurchaseHistory returns purchase ledger entries within the period,
// newest first.
func (r *Repo) PurchaseHistory(ctx context.Context, productID id.ID, from, to time.Time) ([]*inventory.Transaction, error) {
	q := r.transactionSelect().
		Where(squirrel.Eq{"product_id": productID, "kind": inventory.KindPurchase}).
		OrderBy("occurred_at DESC")
	if !from.IsZero() {
		q = q.Where(squirrel.GtOrEq{"occurred_at": from})
	}
	if !to.IsZero() {
		q = q.Where(squirrel.LtOrEq{"occurred_at": to})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*inventory.Transaction
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("purchase history: %w", err)
	}
	return out, nil
}
