// Package credit_repo provides PostgreSQL persistence for customer
// credit payments.
package credit_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/credit"
	"stockbook/internal/infrastructure/storage/postgres"
)

const paymentTable = "customer_payments"

// Repo implements credit.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new customer payment repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreatePayment inserts a customer payment.
func (r *Repo) CreatePayment(ctx context.Context, p *credit.Payment) error {
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

func (r *Repo) paymentSelect() squirrel.SelectBuilder {
	return r.builder().
		Select(postgres.ExtractDBColumns[credit.Payment]()...).
		From(paymentTable)
}

// GetPayment retrieves one customer payment.
func (r *Repo) GetPayment(ctx context.Context, paymentID id.ID) (*credit.Payment, error) {
	q := r.paymentSelect().
		Where(squirrel.Eq{"id": paymentID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p := &credit.Payment{}
	if err := pgxscan.Get(ctx, r.querier(ctx), p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(paymentTable, paymentID.String())
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// DeletePayment removes a customer payment.
func (r *Repo) DeletePayment(ctx context.Context, paymentID id.ID) error {
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

// PaymentsByCustomer returns a customer's payments, newest first.
func (r *Repo) PaymentsByCustomer(ctx context.Context, customerID id.ID) ([]*credit.Payment, error) {
	return r.payments(ctx, squirrel.Eq{"customer_id": customerID})
}

// PaymentsByInvoice returns payments recorded against one invoice,
// newest first.
func (r *Repo) PaymentsByInvoice(ctx context.Context, invoiceID id.ID) ([]*credit.Payment, error) {
	return r.payments(ctx, squirrel.Eq{"invoice_id": invoiceID})
}

func (r *Repo) payments(ctx context.Context, pred any) ([]*credit.Payment, error) {
	q := r.paymentSelect().
		Where(pred).
		OrderBy("paid_at DESC", "created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*credit.Payment
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	return out, nil
}
