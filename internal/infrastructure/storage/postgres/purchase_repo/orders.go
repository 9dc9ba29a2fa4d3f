// Package purchase_repo provides PostgreSQL persistence for purchase
// orders, their lines, and supplier payments.
package purchase_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/purchase"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	orderTable = "purchase_orders"
	itemTable  = "purchase_order_items"
)

// OrderRepo implements purchase.Repository.
type OrderRepo struct {
	txm *postgres.TxManager
}

// NewOrderRepo creates a new purchase order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{txm: txm}
}

func (r *OrderRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *OrderRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreateOrder inserts a new order header.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *purchase.Order) error {
	data := postgres.StructToMap(o)
	filtered := make(map[string]any, len(data))
	for _, col := range postgres.ExtractDBColumns[purchase.Order]() {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder().
		Insert(orderTable).
		SetMap(filtered)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate(orderTable, "po_number", o.Number)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CreateItems inserts order lines in one statement.
func (r *OrderRepo) CreateItems(ctx context.Context, items []*purchase.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.builder().
		Insert(itemTable).
		Columns("id", "po_id", "product_id", "quantity", "unit_cost", "total_cost")
	for _, it := range items {
		q = q.Values(it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitCost, it.TotalCost)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

func (r *OrderRepo) orderSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[purchase.Order]()...).
		From(orderTable)
}

func (r *OrderRepo) getOrder(ctx context.Context, orderID id.ID, forUpdate bool) (*purchase.Order, error) {
	q := r.orderSelect().
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	o := &purchase.Order{}
	if err := pgxscan.Get(ctx, r.querier(ctx), o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(orderTable, orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrder retrieves an order header.
func (r *OrderRepo) GetOrder(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

// GetOrderForUpdate retrieves an order header with a row lock.
func (r *OrderRepo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*purchase.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

// ItemsByOrder returns an order's lines.
func (r *OrderRepo) ItemsByOrder(ctx context.Context, orderID id.ID) ([]*purchase.Item, error) {
	q := r.builder().
		Select(postgres.ExtractDBColumns[purchase.Item]()...).
		From(itemTable).
		Where(squirrel.Eq{"po_id": orderID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*purchase.Item
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("items by order: %w", err)
	}
	return out, nil
}

// UpdateStatus stamps the order's status, received date, and audit
// fields.
func (r *OrderRepo) UpdateStatus(ctx context.Context, o *purchase.Order) error {
	q := r.builder().
		Update(orderTable).
		Set("status", o.Status).
		Set("received_date", o.ReceivedDate).
		Set("updated_at", o.UpdatedAt).
		Set("version", o.Version).
		Where(squirrel.Eq{"id": o.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(orderTable, o.ID.String())
	}
	return nil
}

// DeleteOrder removes an order header.
func (r *OrderRepo) DeleteOrder(ctx context.Context, orderID id.ID) error {
	q := r.builder().
		Delete(orderTable).
		Where(squirrel.Eq{"id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(orderTable, orderID.String())
	}
	return nil
}

// DeleteItems removes all lines of an order.
func (r *OrderRepo) DeleteItems(ctx context.Context, orderID id.ID) error {
	q := r.builder().
		Delete(itemTable).
		Where(squirrel.Eq{"po_id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// orderSummaryRow is the flat scan target for the order list join.
type orderSummaryRow struct {
	ID           id.ID       `db:"id"`
	Version      int         `db:"version"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	CreatedBy    string      `db:"created_by"`
	Number       string      `db:"po_number"`
	SupplierID   id.ID       `db:"supplier_id"`
	Status       string      `db:"status"`
	OrderDate    time.Time   `db:"order_date"`
	ExpectedDate *time.Time  `db:"expected_date"`
	ReceivedDate *time.Time  `db:"received_date"`
	TotalAmount  types.Money `db:"total_amount"`
	Notes        *string     `db:"notes"`
	SupplierName string      `db:"supplier_name"`
	ItemsCount   int         `db:"items_count"`
	TotalPaid    types.Money `db:"total_paid"`
}

// List returns order summaries with supplier name, line count, and
// payment aggregates, newest first.
func (r *OrderRepo) List(ctx context.Context, f purchase.ListFilter) (domain.ListResult[*purchase.OrderSummary], error) {
	result := domain.ListResult[*purchase.OrderSummary]{
		Items:  []*purchase.OrderSummary{},
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	base := r.builder().
		Select(
			"po.id", "po.version", "po.created_at", "po.updated_at", "po.created_by",
			"po.po_number", "po.supplier_id", "po.status", "po.order_date",
			"po.expected_date", "po.received_date", "po.total_amount", "po.notes",
			"s.name AS supplier_name",
			"(SELECT COUNT(*) FROM purchase_order_items i WHERE i.po_id = po.id) AS items_count",
			"COALESCE((SELECT SUM(p.amount) FROM supplier_payments p WHERE p.po_id = po.id), 0) AS total_paid",
		).
		From(orderTable + " po").
		Join("suppliers s ON s.id = po.supplier_id")

	countQ := r.builder().
		Select("COUNT(*)").
		From(orderTable + " po").
		Join("suppliers s ON s.id = po.supplier_id")

	where := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if f.Search != "" {
			pattern := "%" + f.Search + "%"
			q = q.Where(squirrel.Or{
				squirrel.ILike{"po.po_number": pattern},
				squirrel.ILike{"s.name": pattern},
			})
		}
		if f.SupplierID != nil {
			q = q.Where(squirrel.Eq{"po.supplier_id": *f.SupplierID})
		}
		if f.Status != nil {
			q = q.Where(squirrel.Eq{"po.status": *f.Status})
		}
		return q
	}
	base = where(base)
	countQ = where(countQ)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count orders: %w", err)
	}

	base = base.OrderBy("po.order_date DESC", "po.created_at DESC")
	if f.Limit > 0 {
		base = base.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		base = base.Offset(uint64(f.Offset))
	}

	sql, args, err := base.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var rows []*orderSummaryRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return result, fmt.Errorf("list orders: %w", err)
	}

	for _, row := range rows {
		o := &purchase.Order{
			Number:       row.Number,
			SupplierID:   row.SupplierID,
			Status:       purchase.Status(row.Status),
			OrderDate:    row.OrderDate,
			ExpectedDate: row.ExpectedDate,
			ReceivedDate: row.ReceivedDate,
			TotalAmount:  row.TotalAmount,
			Notes:        row.Notes,
		}
		o.ID = row.ID
		o.Version = row.Version
		o.CreatedAt = row.CreatedAt
		o.UpdatedAt = row.UpdatedAt
		o.CreatedBy = row.CreatedBy

		result.Items = append(result.Items, &purchase.OrderSummary{
			Order:        o,
			SupplierName: row.SupplierName,
			ItemsCount:   row.ItemsCount,
			TotalPaid:    row.TotalPaid,
			TotalPending: row.TotalAmount.Sub(row.TotalPaid),
		})
	}
	return result, nil
}

// MaxOrderNumber returns the highest numeric suffix among existing PO
// numbers, migrated ones included.
func (r *OrderRepo) MaxOrderNumber(ctx context.Context) (int64, error) {
	sql := `SELECT COALESCE(MAX(NULLIF(substring(po_number FROM '(\d+)$'), '')::bigint), 0)
	        FROM purchase_orders`

	var max int64
	if err := r.querier(ctx).QueryRow(ctx, sql).Scan(&max); err != nil {
		return 0, fmt.Errorf("max order number: %w", err)
	}
	return max, nil
}
