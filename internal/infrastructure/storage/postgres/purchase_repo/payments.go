package purchase_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/purchase"
	"stockbook/internal/infrastructure/storage/postgres"
)

const paymentTable = "supplier_payments"

// PaymentRepo implements purchase.PaymentRepository.
type PaymentRepo struct {
	txm *postgres.TxManager
}

// NewPaymentRepo creates a new supplier payment repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{txm: txm}
}

func (r *PaymentRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *PaymentRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreatePayment inserts a supplier payment.
func (r *PaymentRepo) CreatePayment(ctx context.Context, p *purchase.Payment) error {
	q := r.builder().
		Insert(paymentTable).
		SetMap(postgres.StructToMap(p))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) paymentSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[purchase.Payment]()...).
		From(paymentTable)
}

// GetPayment retrieves one supplier payment.
func (r *PaymentRepo) GetPayment(ctx context.Context, paymentID id.ID) (*purchase.Payment, error) {
	q := r.paymentSelect().
		Where(squirrel.Eq{"id": paymentID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &purchase.Payment{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(paymentTable, paymentID.String())
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// DeletePayment removes a supplier payment.
func (r *PaymentRepo) DeletePayment(ctx context.Context, paymentID id.ID) error {
	q := r.builder().
		Delete(paymentTable).
		Where(squirrel.Eq{"id": paymentID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(paymentTable, paymentID.String())
	}
	return nil
}

// PaymentsBySupplier returns a supplier's payments, newest first.
func (r *PaymentRepo) PaymentsBySupplier(ctx context.Context, supplierID id.ID) ([]*purchase.Payment, error) {
	return r.payments(ctx, squirrel.Eq{"supplier_id": supplierID})
}

// PaymentsByOrder returns payments pinned to one order, newest first.
func (r *PaymentRepo) PaymentsByOrder(ctx context.Context, orderID id.ID) ([]*purchase.Payment, error) {
	return r.payments(ctx, squirrel.Eq{"po_id": orderID})
}

func (r *PaymentRepo) payments(ctx context.Context, pred any) ([]*purchase.Payment, error) {
	q := r.paymentSelect().
		Where(pred).
		OrderBy("paid_at DESC", "created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*purchase.Payment
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	return out, nil
}

// summarySQL aggregates non-cancelled order totals and payments per
// supplier. Suppliers with neither orders nor payments are skipped.
const summarySQL = `
SELECT s.id AS supplier_id,
       s.name AS supplier_name,
       COALESCE(o.total_ordered, 0) AS total_ordered,
       COALESCE(o.orders_count, 0) AS orders_count,
       COALESCE(p.total_paid, 0) AS total_paid
FROM suppliers s
LEFT JOIN (
    SELECT supplier_id, SUM(total_amount) AS total_ordered, COUNT(*) AS orders_count
    FROM purchase_orders
    WHERE status <> 'cancelled'
    GROUP BY supplier_id
) o ON o.supplier_id = s.id
LEFT JOIN (
    SELECT supplier_id, SUM(amount) AS total_paid
    FROM supplier_payments
    GROUP BY supplier_id
) p ON p.supplier_id = s.id`

type summaryRow struct {
	SupplierID   id.ID       `db:"supplier_id"`
	SupplierName string      `db:"supplier_name"`
	TotalOrdered types.Money `db:"total_ordered"`
	OrdersCount  int         `db:"orders_count"`
	TotalPaid    types.Money `db:"total_paid"`
}

func (row *summaryRow) toSummary() *purchase.PaymentSummary {
	return &purchase.PaymentSummary{
		SupplierID:   row.SupplierID,
		SupplierName: row.SupplierName,
		TotalOrdered: row.TotalOrdered,
		TotalPaid:    row.TotalPaid,
		Balance:      row.TotalOrdered.Sub(row.TotalPaid),
		OrdersCount:  row.OrdersCount,
	}
}

// Summaries aggregates ordered vs paid for every supplier with activity.
func (r *PaymentRepo) Summaries(ctx context.Context) ([]*purchase.PaymentSummary, error) {
	sql := summarySQL + `
WHERE o.supplier_id IS NOT NULL OR p.supplier_id IS NOT NULL
ORDER BY s.name ASC`

	var rows []*summaryRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql); err != nil {
		return nil, fmt.Errorf("payment summaries: %w", err)
	}

	out := make([]*purchase.PaymentSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSummary())
	}
	return out, nil
}

// SummaryBySupplier aggregates ordered vs paid for one supplier. A
// supplier without orders or payments yields a zeroed summary.
func (r *PaymentRepo) SummaryBySupplier(ctx context.Context, supplierID id.ID) (*purchase.PaymentSummary, error) {
	sql := summarySQL + `
WHERE s.id = $1`

	row := &summaryRow{}
	if err := pgxscan.Get(ctx, r.querier(ctx), row, sql, supplierID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("suppliers", supplierID.String())
		}
		return nil, fmt.Errorf("payment summary: %w", err)
	}
	return row.toSummary(), nil
}
