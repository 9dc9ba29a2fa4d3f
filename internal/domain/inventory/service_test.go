package inventory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeProductStore struct {
	rows map[id.ID]*ProductRow
}

func (s *fakeProductStore) GetProductForUpdate(ctx context.Context, productID id.ID) (*ProductRow, error) {
	row, ok := s.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("products", productID.String())
	}
	return row, nil
}

func (s *fakeProductStore) AdjustStock(ctx context.Context, productID id.ID, delta int) error {
	s.rows[productID].StockQuantity += delta
	return nil
}

type fakeRepo struct {
	batches      map[id.ID]*Batch
	transactions []*Transaction
	consumptions []Consumption
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{batches: make(map[id.ID]*Batch)}
}

func (r *fakeRepo) CreateBatch(ctx context.Context, b *Batch) error {
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *fakeRepo) sortedBatches(productID id.ID, openOnly bool) []*Batch {
	var out []*Batch
	for _, b := range r.batches {
		if b.ProductID != productID {
			continue
		}
		if openOnly && b.QuantityRemaining <= 0 {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedDate.Equal(out[j].ReceivedDate) {
			return out[i].ReceivedDate.Before(out[j].ReceivedDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *fakeRepo) OpenBatches(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return r.sortedBatches(productID, true), nil
}

func (r *fakeRepo) Batches(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return r.sortedBatches(productID, false), nil
}

func (r *fakeRepo) GetBatch(ctx context.Context, batchID id.ID) (*Batch, error) {
	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("inventory_batches", batchID.String())
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) SetBatchRemaining(ctx context.Context, batchID id.ID, remaining int) error {
	r.batches[batchID].QuantityRemaining = remaining
	return nil
}

func (r *fakeRepo) CreateTransaction(ctx context.Context, t *Transaction) error {
	cp := *t
	r.transactions = append(r.transactions, &cp)
	return nil
}

func (r *fakeRepo) Transactions(ctx context.Context, productID id.ID, limit int) ([]*Transaction, error) {
	var out []*Transaction
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.transactions[i].ProductID == productID {
			out = append(out, r.transactions[i])
		}
	}
	return out, nil
}

func (r *fakeRepo) SaleTransactions(ctx context.Context, productID, invoiceID id.ID) ([]*Transaction, error) {
	var out []*Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		t := r.transactions[i]
		if t.Kind == KindSale && t.ProductID == productID &&
			t.ReferenceID != nil && *t.ReferenceID == invoiceID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateConsumptions(ctx context.Context, rows []Consumption) error {
	r.consumptions = append(r.consumptions, rows...)
	return nil
}

func (r *fakeRepo) ConsumptionsByTransaction(ctx context.Context, transactionID id.ID) ([]Consumption, error) {
	var out []Consumption
	for _, c := range r.consumptions {
		if c.TransactionID == transactionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) SumBatchRemaining(ctx context.Context, productID id.ID) (int, error) {
	sum := 0
	for _, b := range r.batches {
		if b.ProductID == productID {
			sum += b.QuantityRemaining
		}
	}
	return sum, nil
}

func (r *fakeRepo) SumLedger(ctx context.Context, productID id.ID) (int, error) {
	sum := 0
	for _, t := range r.transactions {
		if t.ProductID == productID {
			sum += t.Quantity
		}
	}
	return sum, nil
}

func (r *fakeRepo) Valuation(ctx context.Context, productID *id.ID) (*Valuation, error) {
	val := &Valuation{ProductID: productID, TotalValue: types.Zero(), AverageCost: types.Zero()}
	for _, b := range r.batches {
		if productID != nil && b.ProductID != *productID {
			continue
		}
		val.Quantity += b.QuantityRemaining
		val.TotalValue = val.TotalValue.Add(b.UnitCost.Mul(types.NewMoneyFromInt(int64(b.QuantityRemaining))))
	}
	if val.Quantity > 0 {
		val.AverageCost = val.TotalValue.Div(types.NewMoneyFromInt(int64(val.Quantity)))
	}
	return val, nil
}

func (r *fakeRepo) PurchaseHistory(ctx context.Context, productID id.ID, from, to time.Time) ([]*Transaction, error) {
	var out []*Transaction
	for _, t := range r.transactions {
		if t.ProductID == productID && t.Kind == KindPurchase &&
			!t.OccurredAt.Before(from) && !t.OccurredAt.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- helpers ---

func newTestEngine(t *testing.T) (*Engine, *fakeRepo, *fakeProductStore, id.ID) {
	t.Helper()
	repo := newFakeRepo()
	productID := id.New()
	store := &fakeProductStore{rows: map[id.ID]*ProductRow{
		productID: {ID: productID, Name: "Widget", CostPrice: types.MustMoney("8")},
	}}
	return NewEngine(repo, store, fakeTxManager{}), repo, store, productID
}

func mustPurchase(t *testing.T, e *Engine, productID id.ID, qty int, cost string, day int) *Batch {
	t.Helper()
	b, err := e.RecordPurchase(context.Background(), PurchaseInput{
		ProductID:    productID,
		Quantity:     qty,
		UnitCost:     types.MustMoney(cost),
		ReceivedDate: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func assertConsistent(t *testing.T, e *Engine, productID id.ID) {
	t.Helper()
	rep, err := e.CheckConsistency(context.Background(), productID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent,
		"stock=%d batches=%d ledger=%d", rep.StockQuantity, rep.BatchRemaining, rep.LedgerSum)
}

// --- tests ---

func TestRecordPurchase_CreatesBatchAndLedgerEntry(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	b := mustPurchase(t, e, productID, 10, "5.00", 1)

	assert.Equal(t, 10, b.QuantityReceived)
	assert.Equal(t, 10, b.QuantityRemaining)
	assert.Equal(t, 10, store.rows[productID].StockQuantity)

	require.Len(t, repo.transactions, 1)
	txn := repo.transactions[0]
	assert.Equal(t, KindPurchase, txn.Kind)
	assert.Equal(t, 10, txn.Quantity)
	assert.True(t, txn.TotalCost.Equal(types.MustMoney("50.00")))

	assertConsistent(t, e, productID)
}

func TestRecordPurchase_RejectsBadInput(t *testing.T) {
	e, _, _, productID := newTestEngine(t)

	_, err := e.RecordPurchase(context.Background(), PurchaseInput{
		ProductID: productID, Quantity: 0, UnitCost: types.MustMoney("1"),
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = e.RecordPurchase(context.Background(), PurchaseInput{
		ProductID: productID, Quantity: 1, UnitCost: types.MustMoney("-1"),
	})
	require.Error(t, err)
}

func TestRecordSaleFIFO_ConsumesOldestFirst(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	first := mustPurchase(t, e, productID, 10, "5.00", 1)
	second := mustPurchase(t, e, productID, 10, "7.00", 2)

	invoiceID := id.New()
	res, err := e.RecordSaleFIFO(context.Background(), productID, 12, time.Now(), invoiceID)
	require.NoError(t, err)

	// 10 @ 5.00 from the first batch, 2 @ 7.00 from the second.
	assert.True(t, res.TotalCost.Equal(types.MustMoney("64.00")),
		"got %s", res.TotalCost)
	require.Len(t, res.Breakdown, 2)
	assert.Equal(t, first.ID, res.Breakdown[0].BatchID)
	assert.Equal(t, 10, res.Breakdown[0].Quantity)
	assert.Equal(t, second.ID, res.Breakdown[1].BatchID)
	assert.Equal(t, 2, res.Breakdown[1].Quantity)

	// Exhausted batch is kept with zero remaining.
	assert.Equal(t, 0, repo.batches[first.ID].QuantityRemaining)
	assert.Equal(t, 8, repo.batches[second.ID].QuantityRemaining)
	assert.Equal(t, 8, store.rows[productID].StockQuantity)

	assertConsistent(t, e, productID)
}

func TestRecordSaleFIFO_TieBreaksOnBatchOrder(t *testing.T) {
	e, _, _, productID := newTestEngine(t)

	// Same received date: arrival order falls back to id (UUIDv7 is
	// time-ordered, so creation order wins).
	a := mustPurchase(t, e, productID, 5, "3.00", 1)
	mustPurchase(t, e, productID, 5, "4.00", 1)

	res, err := e.RecordSaleFIFO(context.Background(), productID, 5, time.Now(), id.New())
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, a.ID, res.Breakdown[0].BatchID)
	assert.True(t, res.TotalCost.Equal(types.MustMoney("15.00")))
}

func TestRecordSaleFIFO_InsufficientStock(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	mustPurchase(t, e, productID, 3, "5.00", 1)

	_, err := e.RecordSaleFIFO(context.Background(), productID, 4, time.Now(), id.New())
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 4, appErr.Details["requested"])
	assert.Equal(t, 3, appErr.Details["available"])

	// Nothing moved.
	assert.Equal(t, 3, store.rows[productID].StockQuantity)
	require.Len(t, repo.transactions, 1) // only the purchase
}

func TestRestoreStockFromInvoice_ReplaysBreakdownExactly(t *testing.T) {
	e, repo, _, productID := newTestEngine(t)

	first := mustPurchase(t, e, productID, 10, "5.00", 1)
	second := mustPurchase(t, e, productID, 10, "7.00", 2)

	invoiceID := id.New()
	res, err := e.RecordSaleFIFO(context.Background(), productID, 12, time.Now(), invoiceID)
	require.NoError(t, err)

	err = e.RestoreStockFromInvoice(context.Background(), productID, 12, invoiceID)
	require.NoError(t, err)

	// Batches are back to their pre-sale state, no extra batch created.
	assert.Equal(t, 10, repo.batches[first.ID].QuantityRemaining)
	assert.Equal(t, 10, repo.batches[second.ID].QuantityRemaining)
	assert.Len(t, repo.batches, 2)

	// Reversal entry mirrors the sale so the pair nets to zero.
	var sale, reversal *Transaction
	for _, txn := range repo.transactions {
		switch txn.Kind {
		case KindSale:
			sale = txn
		case KindSaleReversal:
			reversal = txn
		}
	}
	require.NotNil(t, sale)
	require.NotNil(t, reversal)
	assert.Equal(t, 0, sale.Quantity+reversal.Quantity)
	assert.True(t, sale.TotalCost.Equal(reversal.TotalCost))
	_ = res

	assertConsistent(t, e, productID)
}

func TestRestoreStockFromInvoice_TwoSalesSameInvoice(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	batch := mustPurchase(t, e, productID, 10, "5.00", 1)

	// An invoice carrying two lines of the same product writes two sale
	// entries against the same reference.
	invoiceID := id.New()
	_, err := e.RecordSaleFIFO(context.Background(), productID, 2, time.Now(), invoiceID)
	require.NoError(t, err)
	_, err = e.RecordSaleFIFO(context.Background(), productID, 3, time.Now(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, 5, repo.batches[batch.ID].QuantityRemaining)

	err = e.RestoreStockFromInvoice(context.Background(), productID, 5, invoiceID)
	require.NoError(t, err)

	// Both stored breakdowns replay into the original batch; no stray
	// batch appears.
	assert.Equal(t, 10, repo.batches[batch.ID].QuantityRemaining)
	assert.Len(t, repo.batches, 1)
	assert.Equal(t, 10, store.rows[productID].StockQuantity)

	// One reversal per sale, each netting its pair to zero.
	var reversals []*Transaction
	for _, txn := range repo.transactions {
		if txn.Kind == KindSaleReversal {
			reversals = append(reversals, txn)
		}
	}
	require.Len(t, reversals, 2)

	assertConsistent(t, e, productID)
}

func TestRestoreStockFromInvoice_LegacySaleCreatesBatch(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	// No sale ledger entry exists for this invoice.
	err := e.RestoreStockFromInvoice(context.Background(), productID, 4, id.New())
	require.NoError(t, err)

	assert.Equal(t, 4, store.rows[productID].StockQuantity)
	require.Len(t, repo.batches, 1)
	for _, b := range repo.batches {
		assert.Equal(t, 4, b.QuantityRemaining)
		assert.True(t, b.UnitCost.Equal(types.MustMoney("8"))) // product cost price
	}
}

func TestRecordAdjustment_PositiveUsesAverageCost(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	mustPurchase(t, e, productID, 10, "4.00", 1)
	mustPurchase(t, e, productID, 10, "6.00", 2)

	err := e.RecordAdjustment(context.Background(), productID, 5, "found in stockroom", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 25, store.rows[productID].StockQuantity)

	var adj *Transaction
	for _, txn := range repo.transactions {
		if txn.Kind == KindAdjustment {
			adj = txn
		}
	}
	require.NotNil(t, adj)
	// Average of (10@4 + 10@6) = 5.00.
	assert.True(t, adj.UnitCost.Equal(types.MustMoney("5.00")), "got %s", adj.UnitCost)

	assertConsistent(t, e, productID)
}

func TestRecordAdjustment_NegativeConsumesFIFO(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	first := mustPurchase(t, e, productID, 10, "4.00", 1)
	mustPurchase(t, e, productID, 10, "6.00", 2)

	err := e.RecordAdjustment(context.Background(), productID, -12, "damaged", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 8, store.rows[productID].StockQuantity)
	assert.Equal(t, 0, repo.batches[first.ID].QuantityRemaining)
	assertConsistent(t, e, productID)
}

func TestRecordAdjustment_CannotGoNegative(t *testing.T) {
	e, _, _, productID := newTestEngine(t)

	mustPurchase(t, e, productID, 3, "4.00", 1)

	err := e.RecordAdjustment(context.Background(), productID, -5, "shrinkage", time.Time{})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

func TestValuation_AverageCost(t *testing.T) {
	e, _, _, productID := newTestEngine(t)

	mustPurchase(t, e, productID, 10, "4.00", 1)
	mustPurchase(t, e, productID, 5, "7.00", 2)

	val, err := e.Valuation(context.Background(), &productID)
	require.NoError(t, err)
	assert.Equal(t, 15, val.Quantity)
	assert.True(t, val.TotalValue.Equal(types.MustMoney("75.00")))
	assert.True(t, val.AverageCost.Equal(types.MustMoney("5.00")))
}

func TestSaleThenPartialConsumptionThenRestore(t *testing.T) {
	e, repo, store, productID := newTestEngine(t)

	first := mustPurchase(t, e, productID, 10, "5.00", 1)

	invoiceID := id.New()
	_, err := e.RecordSaleFIFO(context.Background(), productID, 6, time.Now(), invoiceID)
	require.NoError(t, err)

	// A later sale eats into the same batch.
	_, err = e.RecordSaleFIFO(context.Background(), productID, 4, time.Now(), id.New())
	require.NoError(t, err)
	assert.Equal(t, 0, repo.batches[first.ID].QuantityRemaining)

	// Restoring the first invoice is clamped by received quantity: the
	// batch can take all 6 back (received 10, remaining 0).
	err = e.RestoreStockFromInvoice(context.Background(), productID, 6, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, 6, repo.batches[first.ID].QuantityRemaining)
	assert.Equal(t, 6, store.rows[productID].StockQuantity)

	assertConsistent(t, e, productID)
}
