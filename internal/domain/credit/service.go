package credit

import (
	"context"
	"sort"
	"time"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/invoice"
	"stockbook/pkg/logger"
)

// InvoiceReader loads invoices for ownership checks and credit views.
type InvoiceReader interface {
	GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error)
	InvoicesByCustomer(ctx context.Context, customerID id.ID) ([]*invoice.Invoice, error)
}

// Archiver snapshots deleted payments into the trash.
type Archiver interface {
	ArchivePayment(ctx context.Context, p *Payment, deletedBy string) error
}

// Service provides business logic for customer credit payments.
type Service struct {
	repo     Repository
	invoices InvoiceReader
	archive  Archiver
	txm      tx.ReadOnlyManager
}

// NewService creates a new credit service. The read-only side of the
// manager backs the history and summary views, which read invoices and
// payments as one snapshot.
func NewService(repo Repository, invoices InvoiceReader, archive Archiver, txm tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, invoices: invoices, archive: archive, txm: txm}
}

// CreatePayment records a payment against an invoice's credit. The
// invoice must belong to the paying customer.
func (s *Service) CreatePayment(ctx context.Context, p *Payment) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if p.ID == id.Nil() {
		p.ID = id.New()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	p.CreatedAt = time.Now().UTC()

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetInvoice(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv.CustomerID == nil || *inv.CustomerID != p.CustomerID {
			return apperror.NewOwnership("invoice does not belong to this customer").
				WithDetail("invoice_id", p.InvoiceID.String()).
				WithDetail("customer_id", p.CustomerID.String())
		}

		if err := s.repo.CreatePayment(ctx, p); err != nil {
			return err
		}
		logger.Info(ctx, "customer payment recorded",
			"customer_id", p.CustomerID, "invoice", inv.Number, "amount", p.Amount)
		return nil
	})
}

// DeletePayment archives the payment row, then removes it.
func (s *Service) DeletePayment(ctx context.Context, paymentID id.ID, deletedBy string) error {
	if deletedBy == "" {
		deletedBy = appctx.GetUsername(ctx)
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.archive.ArchivePayment(ctx, p, deletedBy); err != nil {
			return err
		}
		return s.repo.DeletePayment(ctx, paymentID)
	})
}

// PaymentsByCustomer lists a customer's payments, newest first.
func (s *Service) PaymentsByCustomer(ctx context.Context, customerID id.ID) ([]*Payment, error) {
	return s.repo.PaymentsByCustomer(ctx, customerID)
}

// PaymentsByInvoice lists payments against one invoice.
func (s *Service) PaymentsByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error) {
	return s.repo.PaymentsByInvoice(ctx, invoiceID)
}

// History returns the per-invoice credit position for a customer,
// newest invoice first. Only invoices that carry credit appear.
func (s *Service) History(ctx context.Context, customerID id.ID) ([]*HistoryEntry, error) {
	var (
		invoices []*invoice.Invoice
		payments []*Payment
	)
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if invoices, err = s.invoices.InvoicesByCustomer(ctx, customerID); err != nil {
			return err
		}
		payments, err = s.repo.PaymentsByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	paidPerInvoice := make(map[id.ID]types.Money)
	for _, p := range payments {
		paidPerInvoice[p.InvoiceID] = paidPerInvoice[p.InvoiceID].Add(p.Amount)
	}

	var out []*HistoryEntry
	for _, inv := range invoices {
		if !inv.CreditAmount.IsPositive() {
			continue
		}
		paid := paidPerInvoice[inv.ID]
		balance := inv.CreditAmount.Sub(paid)
		if balance.IsNegative() {
			balance = types.Zero()
		}
		status := StatusPending
		if balance.IsZero() {
			status = StatusClear
		}
		out = append(out, &HistoryEntry{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			InvoiceDate:   inv.CreatedAt,
			BillAmount:    inv.TotalAmount,
			InitialPaid:   inv.InitialPaid,
			CreditAmount:  inv.CreditAmount,
			TotalPaid:     inv.InitialPaid.Add(paid),
			Balance:       balance,
			Status:        status,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].InvoiceDate.After(out[j].InvoiceDate)
	})
	return out, nil
}

// Summary aggregates a customer's total credit against everything paid.
// Pending never goes below zero.
func (s *Service) Summary(ctx context.Context, customerID id.ID) (*Summary, error) {
	var (
		invoices []*invoice.Invoice
		payments []*Payment
	)
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if invoices, err = s.invoices.InvoicesByCustomer(ctx, customerID); err != nil {
			return err
		}
		payments, err = s.repo.PaymentsByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	totalCredit := types.Zero()
	initialPaid := types.Zero()
	for _, inv := range invoices {
		// Only credit invoices count, as in History. A cash sale's
		// initial_paid equals its bill and would inflate the paid total.
		if !inv.CreditAmount.IsPositive() {
			continue
		}
		totalCredit = totalCredit.Add(inv.CreditAmount)
		initialPaid = initialPaid.Add(inv.InitialPaid)
	}
	paid := types.Zero()
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	pending := totalCredit.Sub(paid)
	if pending.IsNegative() {
		pending = types.Zero()
	}
	return &Summary{
		CustomerID:  customerID,
		TotalCredit: totalCredit,
		TotalPaid:   initialPaid.Add(paid),
		Pending:     pending,
	}, nil
}
