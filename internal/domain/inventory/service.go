package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/pkg/logger"
)

// Engine is the FIFO inventory engine. Every mutating operation runs in
// a transaction and locks the product row first, so concurrent writers
// for the same product serialize on the row lock while different
// products proceed in parallel.
type Engine struct {
	repo     Repository
	products ProductStore
	txm      tx.Manager
}

// NewEngine creates the inventory engine.
func NewEngine(repo Repository, products ProductStore, txm tx.Manager) *Engine {
	return &Engine{repo: repo, products: products, txm: txm}
}

// PurchaseInput describes a stock receipt.
type PurchaseInput struct {
	ProductID    id.ID
	Quantity     int
	UnitCost     types.Money
	ReceivedDate time.Time
	POItemID     *id.ID
	ReferenceID  *id.ID // purchase order, when received through one
	Notes        *string
}

// RecordPurchase creates a new batch and a positive ledger entry.
func (e *Engine) RecordPurchase(ctx context.Context, in PurchaseInput) (*Batch, error) {
	if in.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", in.Quantity)
	}
	if in.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative")
	}
	if in.ReceivedDate.IsZero() {
		in.ReceivedDate = time.Now().UTC()
	}

	var batch *Batch
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.products.GetProductForUpdate(ctx, in.ProductID); err != nil {
			return err
		}

		batch = &Batch{
			ID:                id.New(),
			ProductID:         in.ProductID,
			POItemID:          in.POItemID,
			QuantityReceived:  in.Quantity,
			QuantityRemaining: in.Quantity,
			UnitCost:          in.UnitCost,
			ReceivedDate:      in.ReceivedDate,
			CreatedAt:         time.Now().UTC(),
		}
		if err := e.repo.CreateBatch(ctx, batch); err != nil {
			return err
		}

		refKind := RefManual
		if in.ReferenceID != nil {
			refKind = RefPurchaseOrder
		}
		txn := &Transaction{
			ID:            id.New(),
			ProductID:     in.ProductID,
			Kind:          KindPurchase,
			Quantity:      in.Quantity,
			UnitCost:      in.UnitCost,
			TotalCost:     in.UnitCost.Mul(decimal.NewFromInt(int64(in.Quantity))),
			ReferenceKind: &refKind,
			ReferenceID:   in.ReferenceID,
			Notes:         in.Notes,
			OccurredAt:    in.ReceivedDate,
			CreatedAt:     time.Now().UTC(),
		}
		if err := e.repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		if err := e.products.AdjustStock(ctx, in.ProductID, in.Quantity); err != nil {
			return err
		}

		logger.Info(ctx, "purchase recorded",
			"product_id", in.ProductID, "quantity", in.Quantity, "unit_cost", in.UnitCost)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// RecordOpeningStock books a product's initial quantity as an opening
// batch at the product's cost price.
func (e *Engine) RecordOpeningStock(ctx context.Context, productID id.ID, quantity int, receivedDate time.Time) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity)
	}

	return e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.products.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		batch := &Batch{
			ID:                id.New(),
			ProductID:         productID,
			QuantityReceived:  quantity,
			QuantityRemaining: quantity,
			UnitCost:          p.CostPrice,
			ReceivedDate:      receivedDate,
			CreatedAt:         time.Now().UTC(),
		}
		if err := e.repo.CreateBatch(ctx, batch); err != nil {
			return err
		}

		refKind := RefOpening
		notes := "opening stock"
		txn := &Transaction{
			ID:            id.New(),
			ProductID:     productID,
			Kind:          KindPurchase,
			Quantity:      quantity,
			UnitCost:      p.CostPrice,
			TotalCost:     p.CostPrice.Mul(decimal.NewFromInt(int64(quantity))),
			ReferenceKind: &refKind,
			Notes:         &notes,
			OccurredAt:    receivedDate,
			CreatedAt:     time.Now().UTC(),
		}
		if err := e.repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		return e.products.AdjustStock(ctx, productID, quantity)
	})
}

// RecordSaleFIFO consumes stock for an invoice line in FIFO order,
// persists the per-batch breakdown, and returns the cost of goods sold.
func (e *Engine) RecordSaleFIFO(ctx context.Context, productID id.ID, quantity int, saleDate time.Time, invoiceID id.ID) (*SaleResult, error) {
	if quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity)
	}

	var result *SaleResult
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.products.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.StockQuantity < quantity {
			return apperror.NewInsufficientStock(productID.String(), quantity, p.StockQuantity)
		}

		batches, err := e.repo.OpenBatches(ctx, productID)
		if err != nil {
			return err
		}

		left := quantity
		total := types.Zero()
		breakdown := make([]Consumption, 0, 2)
		for _, b := range batches {
			if left == 0 {
				break
			}
			take := left
			if b.QuantityRemaining < take {
				take = b.QuantityRemaining
			}
			b.QuantityRemaining -= take
			if err := e.repo.SetBatchRemaining(ctx, b.ID, b.QuantityRemaining); err != nil {
				return err
			}
			total = total.Add(b.UnitCost.Mul(decimal.NewFromInt(int64(take))))
			breakdown = append(breakdown, Consumption{
				BatchID:  b.ID,
				Quantity: take,
				UnitCost: b.UnitCost,
			})
			left -= take
		}
		if left > 0 {
			// Cached stock said we had enough but the batches disagree.
			return apperror.NewInternal(fmt.Errorf(
				"batch remainders short by %d units for product %s", left, productID))
		}

		unitCost := total.Div(decimal.NewFromInt(int64(quantity)))
		refKind := RefInvoice
		invID := invoiceID
		txn := &Transaction{
			ID:            id.New(),
			ProductID:     productID,
			Kind:          KindSale,
			Quantity:      -quantity,
			UnitCost:      unitCost,
			TotalCost:     total,
			ReferenceKind: &refKind,
			ReferenceID:   &invID,
			OccurredAt:    saleDate,
			CreatedAt:     time.Now().UTC(),
		}
		if err := e.repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		for i := range breakdown {
			breakdown[i].ID = id.New()
			breakdown[i].TransactionID = txn.ID
		}
		if err := e.repo.CreateConsumptions(ctx, breakdown); err != nil {
			return err
		}

		if err := e.products.AdjustStock(ctx, productID, -quantity); err != nil {
			return err
		}

		result = &SaleResult{
			TransactionID: txn.ID,
			TotalCost:     total,
			UnitCost:      unitCost,
			Breakdown:     breakdown,
		}
		logger.Info(ctx, "sale recorded",
			"product_id", productID, "invoice_id", invoiceID,
			"quantity", quantity, "cogs", total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RestoreStockFromInvoice reverses everything an invoice sold of one
// product. An invoice that carried several lines of the same product
// wrote one sale ledger entry per line; each entry is reversed in turn:
// its stored breakdown is replayed into the exact batches it consumed
// (clamped to each batch's received quantity), and anything that cannot
// go back, including legacy sales with no ledger entry, becomes a fresh
// batch at the sale's weighted cost. One sale_reversal entry is appended
// per sale so each pair nets to zero.
func (e *Engine) RestoreStockFromInvoice(ctx context.Context, productID id.ID, quantity int, invoiceID id.ID) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity)
	}

	return e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.products.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		sales, err := e.repo.SaleTransactions(ctx, productID, invoiceID)
		if err != nil {
			return err
		}

		left := quantity
		for _, sale := range sales {
			if left == 0 {
				break
			}
			take := -sale.Quantity
			if take <= 0 {
				continue
			}
			if take > left {
				take = left
			}
			restored, err := e.replayBreakdown(ctx, sale.ID, take)
			if err != nil {
				return err
			}
			if restored < take {
				// Shortfall: re-enter at the sale's weighted cost.
				batch := &Batch{
					ID:                id.New(),
					ProductID:         productID,
					QuantityReceived:  take - restored,
					QuantityRemaining: take - restored,
					UnitCost:          sale.UnitCost,
					ReceivedDate:      sale.OccurredAt,
					CreatedAt:         time.Now().UTC(),
				}
				if err := e.repo.CreateBatch(ctx, batch); err != nil {
					return err
				}
			}
			totalCost := sale.TotalCost
			if take != -sale.Quantity {
				totalCost = sale.UnitCost.Mul(decimal.NewFromInt(int64(take)))
			}
			if err := e.appendReversal(ctx, productID, invoiceID, take, sale.UnitCost, totalCost); err != nil {
				return err
			}
			left -= take
		}

		if left > 0 {
			// Legacy invoice with no (or undersized) ledger entries:
			// re-enter at the product's current cost price.
			batch := &Batch{
				ID:                id.New(),
				ProductID:         productID,
				QuantityReceived:  left,
				QuantityRemaining: left,
				UnitCost:          p.CostPrice,
				ReceivedDate:      time.Now().UTC(),
				CreatedAt:         time.Now().UTC(),
			}
			if err := e.repo.CreateBatch(ctx, batch); err != nil {
				return err
			}
			totalCost := p.CostPrice.Mul(decimal.NewFromInt(int64(left)))
			if err := e.appendReversal(ctx, productID, invoiceID, left, p.CostPrice, totalCost); err != nil {
				return err
			}
		}

		if err := e.products.AdjustStock(ctx, productID, quantity); err != nil {
			return err
		}

		logger.Info(ctx, "sale reversed",
			"product_id", productID, "invoice_id", invoiceID, "quantity", quantity)
		return nil
	})
}

// replayBreakdown puts up to limit units back into the batches a sale's
// stored breakdown consumed. Returns how many units went back; the
// caller books any shortfall.
func (e *Engine) replayBreakdown(ctx context.Context, saleID id.ID, limit int) (int, error) {
	rows, err := e.repo.ConsumptionsByTransaction(ctx, saleID)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, row := range rows {
		if restored == limit {
			break
		}
		batch, err := e.repo.GetBatch(ctx, row.BatchID)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue // batch gone, shortfall handled by the caller
			}
			return restored, err
		}
		back := row.Quantity
		if back > limit-restored {
			back = limit - restored
		}
		// Never push a batch above what it received.
		room := batch.QuantityReceived - batch.QuantityRemaining
		if back > room {
			back = room
		}
		if back <= 0 {
			continue
		}
		if err := e.repo.SetBatchRemaining(ctx, batch.ID, batch.QuantityRemaining+back); err != nil {
			return restored, err
		}
		restored += back
	}
	return restored, nil
}

func (e *Engine) appendReversal(ctx context.Context, productID, invoiceID id.ID, quantity int, unitCost, totalCost types.Money) error {
	refKind := RefInvoice
	invID := invoiceID
	notes := "invoice deleted"
	txn := &Transaction{
		ID:            id.New(),
		ProductID:     productID,
		Kind:          KindSaleReversal,
		Quantity:      quantity,
		UnitCost:      unitCost,
		TotalCost:     totalCost,
		ReferenceKind: &refKind,
		ReferenceID:   &invID,
		Notes:         &notes,
		OccurredAt:    time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	return e.repo.CreateTransaction(ctx, txn)
}

// RecordAdjustment books a manual stock correction. Positive deltas
// create a batch at the current average cost; negative deltas consume
// batches in FIFO order and must not drive stock negative.
func (e *Engine) RecordAdjustment(ctx context.Context, productID id.ID, delta int, reason string, occurredAt time.Time) error {
	if delta == 0 {
		return apperror.NewValidation("delta cannot be zero")
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.products.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		refKind := RefManual
		notes := reason

		if delta > 0 {
			cost := p.CostPrice
			if val, err := e.repo.Valuation(ctx, &productID); err == nil && val.Quantity > 0 {
				cost = val.AverageCost
			}
			batch := &Batch{
				ID:                id.New(),
				ProductID:         productID,
				QuantityReceived:  delta,
				QuantityRemaining: delta,
				UnitCost:          cost,
				ReceivedDate:      occurredAt,
				CreatedAt:         time.Now().UTC(),
			}
			if err := e.repo.CreateBatch(ctx, batch); err != nil {
				return err
			}
			txn := &Transaction{
				ID:            id.New(),
				ProductID:     productID,
				Kind:          KindAdjustment,
				Quantity:      delta,
				UnitCost:      cost,
				TotalCost:     cost.Mul(decimal.NewFromInt(int64(delta))),
				ReferenceKind: &refKind,
				Notes:         &notes,
				OccurredAt:    occurredAt,
				CreatedAt:     time.Now().UTC(),
			}
			if err := e.repo.CreateTransaction(ctx, txn); err != nil {
				return err
			}
			return e.products.AdjustStock(ctx, productID, delta)
		}

		need := -delta
		if p.StockQuantity < need {
			return apperror.NewInsufficientStock(productID.String(), need, p.StockQuantity)
		}

		batches, err := e.repo.OpenBatches(ctx, productID)
		if err != nil {
			return err
		}

		left := need
		total := types.Zero()
		breakdown := make([]Consumption, 0, 2)
		for _, b := range batches {
			if left == 0 {
				break
			}
			take := left
			if b.QuantityRemaining < take {
				take = b.QuantityRemaining
			}
			b.QuantityRemaining -= take
			if err := e.repo.SetBatchRemaining(ctx, b.ID, b.QuantityRemaining); err != nil {
				return err
			}
			total = total.Add(b.UnitCost.Mul(decimal.NewFromInt(int64(take))))
			breakdown = append(breakdown, Consumption{
				BatchID:  b.ID,
				Quantity: take,
				UnitCost: b.UnitCost,
			})
			left -= take
		}
		if left > 0 {
			return apperror.NewInternal(fmt.Errorf(
				"batch remainders short by %d units for product %s", left, productID))
		}

		txn := &Transaction{
			ID:            id.New(),
			ProductID:     productID,
			Kind:          KindAdjustment,
			Quantity:      delta,
			UnitCost:      total.Div(decimal.NewFromInt(int64(need))),
			TotalCost:     total,
			ReferenceKind: &refKind,
			Notes:         &notes,
			OccurredAt:    occurredAt,
			CreatedAt:     time.Now().UTC(),
		}
		if err := e.repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		for i := range breakdown {
			breakdown[i].ID = id.New()
			breakdown[i].TransactionID = txn.ID
		}
		if err := e.repo.CreateConsumptions(ctx, breakdown); err != nil {
			return err
		}
		return e.products.AdjustStock(ctx, productID, delta)
	})
}

// Batches returns all batches for a product.
func (e *Engine) Batches(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return e.repo.Batches(ctx, productID)
}

// Transactions returns the product's ledger, newest first.
func (e *Engine) Transactions(ctx context.Context, productID id.ID, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return e.repo.Transactions(ctx, productID, limit)
}

// Valuation computes on-hand quantity and value. Nil product covers the
// whole store.
func (e *Engine) Valuation(ctx context.Context, productID *id.ID) (*Valuation, error) {
	return e.repo.Valuation(ctx, productID)
}

// PurchaseHistory lists purchase ledger entries within a period.
func (e *Engine) PurchaseHistory(ctx context.Context, productID id.ID, from, to time.Time) ([]*Transaction, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return e.repo.PurchaseHistory(ctx, productID, from, to)
}

// CheckConsistency verifies that the cached stock, the batch remainders,
// and the ledger sum agree for a product.
func (e *Engine) CheckConsistency(ctx context.Context, productID id.ID) (*ConsistencyReport, error) {
	var report *ConsistencyReport
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.products.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		batchSum, err := e.repo.SumBatchRemaining(ctx, productID)
		if err != nil {
			return err
		}
		ledgerSum, err := e.repo.SumLedger(ctx, productID)
		if err != nil {
			return err
		}
		report = &ConsistencyReport{
			ProductID:      productID,
			StockQuantity:  p.StockQuantity,
			BatchRemaining: batchSum,
			LedgerSum:      ledgerSum,
			Consistent:     p.StockQuantity == batchSum && batchSum == ledgerSum,
		}
		if !report.Consistent {
			logger.Warn(ctx, "stock inconsistency detected",
				"product_id", productID,
				"stock", p.StockQuantity, "batches", batchSum, "ledger", ledgerSum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
