// Package invoice_repo provides PostgreSQL persistence for invoices and
// their lines.
package invoice_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/internal/domain/invoice"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	invoiceTable = "invoices"
	itemTable    = "invoice_items"
)

// Repo implements invoice.Repository. It also detaches and reattaches
// customer links for the archive service.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new invoice repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreateInvoice inserts an invoice header.
func (r *Repo) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	data := postgres.StructToMap(inv)
	filtered := make(map[string]any, len(data))
	for _, col := range postgres.ExtractDBColumns[invoice.Invoice]() {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder().
		Insert(invoiceTable).
		SetMap(filtered)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate(invoiceTable, "invoice_number", inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItems inserts invoice lines in one statement.
func (r *Repo) CreateItems(ctx context.Context, items []*invoice.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.builder().
		Insert(itemTable).
		Columns("id", "invoice_id", "product_id", "product_name", "quantity", "unit_price", "total_price")
	for _, it := range items {
		q = q.Values(it.ID, it.InvoiceID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
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

func (r *Repo) invoiceSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[invoice.Invoice]()...).
		From(invoiceTable)
}

func (r *Repo) getInvoice(ctx context.Context, invoiceID id.ID, forUpdate bool) (*invoice.Invoice, error) {
	q := r.invoiceSelect().
		Where(squirrel.Eq{"id": invoiceID}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	inv := &invoice.Invoice{}
	if err := pgxscan.Get(ctx, r.querier(ctx), inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(invoiceTable, invoiceID.String())
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice retrieves an invoice header.
func (r *Repo) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.getInvoice(ctx, invoiceID, false)
}

// GetInvoiceForUpdate retrieves an invoice header with a row lock.
func (r *Repo) GetInvoiceForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.getInvoice(ctx, invoiceID, true)
}

// ItemsByInvoice returns an invoice's lines.
func (r *Repo) ItemsByInvoice(ctx context.Context, invoiceID id.ID) ([]*invoice.Item, error) {
	q := r.builder().
		Select(postgres.ExtractDBColumns[invoice.Item]()...).
		From(itemTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*invoice.Item
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("items by invoice: %w", err)
	}
	return out, nil
}

// UpdateInvoice writes the header back with optimistic locking.
func (r *Repo) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	data := postgres.StructToMap(inv)
	filtered := make(map[string]any, len(data))
	for _, col := range postgres.ExtractDBColumns[invoice.Invoice]() {
		if col == "id" || col == "created_by" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := r.builder().
		Update(invoiceTable).
		SetMap(filtered).
		Where(squirrel.Eq{"id": inv.ID, "version": inv.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("invoice was modified concurrently").
			WithDetail("id", inv.ID.String())
	}
	return nil
}

// DeleteItems removes all lines of an invoice.
func (r *Repo) DeleteItems(ctx context.Context, invoiceID id.ID) error {
	q := r.builder().
		Delete(itemTable).
		Where(squirrel.Eq{"invoice_id": invoiceID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

// DeleteInvoice removes an invoice header.
func (r *Repo) DeleteInvoice(ctx context.Context, invoiceID id.ID) error {
	q := r.builder().
		Delete(invoiceTable).
		Where(squirrel.Eq{"id": invoiceID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(invoiceTable, invoiceID.String())
	}
	return nil
}

// List returns invoice headers, newest first. Search matches the
// invoice number and line product names.
func (r *Repo) List(ctx context.Context, f invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Items:  []*invoice.Invoice{},
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	where := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if f.Search != "" {
			pattern := "%" + f.Search + "%"
			q = q.Where(squirrel.Or{
				squirrel.ILike{"invoice_number": pattern},
				squirrel.Expr(
					"EXISTS (SELECT 1 FROM invoice_items i WHERE i.invoice_id = invoices.id AND i.product_name ILIKE ?)",
					pattern,
				),
			})
		}
		if f.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *f.CustomerID})
		}
		return q
	}

	countQ := where(r.builder().Select("COUNT(*)").From(invoiceTable))
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count invoices: %w", err)
	}

	q := where(r.invoiceSelect()).
		OrderBy("created_at DESC", "invoice_number DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list invoices: %w", err)
	}
	return result, nil
}

// InvoicesByCustomer returns a customer's invoices, newest first.
func (r *Repo) InvoicesByCustomer(ctx context.Context, customerID id.ID) ([]*invoice.Invoice, error) {
	q := r.invoiceSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("invoices by customer: %w", err)
	}
	return out, nil
}

// MaxInvoiceNumber returns the highest numeric suffix among stored
// invoice numbers.
func (r *Repo) MaxInvoiceNumber(ctx context.Context) (int64, error) {
	sql := `SELECT COALESCE(MAX(NULLIF(substring(invoice_number FROM '(\d+)$'), '')::bigint), 0)
	        FROM invoices`

	var max int64
	if err := r.querier(ctx).QueryRow(ctx, sql).Scan(&max); err != nil {
		return 0, fmt.Errorf("max invoice number: %w", err)
	}
	return max, nil
}

// DetachCustomer clears the customer link on the customer's invoices
// and reports which invoices were touched. The archive service stores
// the ids so a restore can reattach them.
func (r *Repo) DetachCustomer(ctx context.Context, customerID id.ID) ([]id.ID, error) {
	sql := `UPDATE invoices SET customer_id = NULL WHERE customer_id = $1 RETURNING id`

	rows, err := r.querier(ctx).Query(ctx, sql, customerID)
	if err != nil {
		return nil, fmt.Errorf("detach customer: %w", err)
	}
	defer rows.Close()

	var detached []id.ID
	for rows.Next() {
		var invoiceID id.ID
		if err := rows.Scan(&invoiceID); err != nil {
			return nil, fmt.Errorf("scan detached id: %w", err)
		}
		detached = append(detached, invoiceID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("detach customer rows: %w", err)
	}
	return detached, nil
}

// ReattachCustomer restores the customer link on previously detached
// invoices.
func (r *Repo) ReattachCustomer(ctx context.Context, customerID id.ID, invoiceIDs []id.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}

	q := r.builder().
		Update(invoiceTable).
		Set("customer_id", customerID).
		Where(squirrel.Eq{"id": invoiceIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("reattach customer: %w", err)
	}
	return nil
}
