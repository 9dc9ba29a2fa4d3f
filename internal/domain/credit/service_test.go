package credit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/invoice"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeInvoices struct {
	rows map[id.ID]*invoice.Invoice
}

func (f *fakeInvoices) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, ok := f.rows[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoices", invoiceID.String())
	}
	return inv, nil
}

func (f *fakeInvoices) InvoicesByCustomer(ctx context.Context, customerID id.ID) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range f.rows {
		if inv.CustomerID != nil && *inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeRepo struct {
	payments map[id.ID]*Payment
}

func (r *fakeRepo) CreatePayment(ctx context.Context, p *Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetPayment(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("customer_payments", paymentID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) DeletePayment(ctx context.Context, paymentID id.ID) error {
	delete(r.payments, paymentID)
	return nil
}

func (r *fakeRepo) PaymentsByCustomer(ctx context.Context, customerID id.ID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		if p.CustomerID == customerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) PaymentsByInvoice(ctx context.Context, invoiceID id.ID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeArchive struct {
	archived []*Payment
}

func (a *fakeArchive) ArchivePayment(ctx context.Context, p *Payment, deletedBy string) error {
	a.archived = append(a.archived, p)
	return nil
}

// --- harness ---

type harness struct {
	svc      *Service
	repo     *fakeRepo
	invoices *fakeInvoices
	archive  *fakeArchive
	customer id.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     &fakeRepo{payments: make(map[id.ID]*Payment)},
		invoices: &fakeInvoices{rows: make(map[id.ID]*invoice.Invoice)},
		archive:  &fakeArchive{},
		customer: id.New(),
	}
	h.svc = NewService(h.repo, h.invoices, h.archive, fakeTxManager{})
	return h
}

// addInvoice stores a credit invoice for the harness customer.
func (h *harness) addInvoice(t *testing.T, number string, total, initialPaid, credit string, daysAgo int) id.ID {
	t.Helper()
	inv := &invoice.Invoice{
		BaseDocument: entity.NewBaseDocument(),
		Number:       number,
		CustomerID:   &h.customer,
		TotalAmount:  types.MustMoney(total),
		InitialPaid:  types.MustMoney(initialPaid),
		CreditAmount: types.MustMoney(credit),
	}
	inv.CreatedAt = time.Now().UTC().AddDate(0, 0, -daysAgo)
	h.invoices.rows[inv.ID] = inv
	return inv.ID
}

func (h *harness) pay(t *testing.T, invoiceID id.ID, amount string) *Payment {
	t.Helper()
	p := &Payment{
		CustomerID: h.customer,
		InvoiceID:  invoiceID,
		Amount:     types.MustMoney(amount),
	}
	require.NoError(t, h.svc.CreatePayment(context.Background(), p))
	return p
}

// --- tests ---

func TestCreatePayment_SetsDefaults(t *testing.T) {
	h := newHarness(t)
	invID := h.addInvoice(t, "INV-000001", "100.00", "40.00", "60.00", 1)

	p := h.pay(t, invID, "20.00")

	assert.NotEqual(t, id.Nil(), p.ID)
	assert.False(t, p.PaidAt.IsZero())

	stored, err := h.svc.PaymentsByInvoice(context.Background(), invID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreatePayment_OwnershipEnforced(t *testing.T) {
	h := newHarness(t)
	invID := h.addInvoice(t, "INV-000001", "100.00", "0.00", "100.00", 1)

	err := h.svc.CreatePayment(context.Background(), &Payment{
		CustomerID: id.New(), // not the invoice's customer
		InvoiceID:  invID,
		Amount:     types.MustMoney("10.00"),
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOwnership, appErr.Code)
}

func TestCreatePayment_RejectsNonPositiveAmount(t *testing.T) {
	h := newHarness(t)
	invID := h.addInvoice(t, "INV-000001", "100.00", "0.00", "100.00", 1)

	err := h.svc.CreatePayment(context.Background(), &Payment{
		CustomerID: h.customer,
		InvoiceID:  invID,
		Amount:     types.Zero(),
	})

	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestHistory_BalancesAndStatus(t *testing.T) {
	h := newHarness(t)
	oldInv := h.addInvoice(t, "INV-000001", "100.00", "40.00", "60.00", 10)
	newInv := h.addInvoice(t, "INV-000002", "50.00", "0.00", "50.00", 1)
	h.addInvoice(t, "INV-000003", "30.00", "30.00", "0.00", 5) // cash sale, no credit

	h.pay(t, oldInv, "60.00") // cleared
	h.pay(t, newInv, "20.00") // partial

	history, err := h.svc.History(context.Background(), h.customer)
	require.NoError(t, err)
	require.Len(t, history, 2, "cash sales never enter credit history")

	// Newest first.
	assert.Equal(t, "INV-000002", history[0].InvoiceNumber)
	assert.Equal(t, StatusPending, history[0].Status)
	assert.True(t, history[0].Balance.Equal(types.MustMoney("30.00")))

	assert.Equal(t, "INV-000001", history[1].InvoiceNumber)
	assert.Equal(t, StatusClear, history[1].Status)
	assert.True(t, history[1].Balance.IsZero())
	assert.True(t, history[1].TotalPaid.Equal(types.MustMoney("100.00")),
		"initial paid plus payments")
}

func TestSummary_PendingClampsAtZero(t *testing.T) {
	h := newHarness(t)
	invID := h.addInvoice(t, "INV-000001", "100.00", "20.00", "80.00", 1)

	h.pay(t, invID, "100.00") // overpaid by 20

	summary, err := h.svc.Summary(context.Background(), h.customer)
	require.NoError(t, err)

	assert.True(t, summary.TotalCredit.Equal(types.MustMoney("80.00")))
	assert.True(t, summary.TotalPaid.Equal(types.MustMoney("120.00")))
	assert.True(t, summary.Pending.IsZero(), "pending never goes negative")
}

func TestSummary_IgnoresCashSales(t *testing.T) {
	h := newHarness(t)
	creditInv := h.addInvoice(t, "INV-000001", "100.00", "40.00", "60.00", 2)
	h.addInvoice(t, "INV-000002", "30.00", "30.00", "0.00", 1) // cash sale

	h.pay(t, creditInv, "10.00")

	summary, err := h.svc.Summary(context.Background(), h.customer)
	require.NoError(t, err)

	assert.True(t, summary.TotalCredit.Equal(types.MustMoney("60.00")))
	// 40 initial on the credit invoice + 10 payment; the cash sale's
	// initial_paid stays out.
	assert.True(t, summary.TotalPaid.Equal(types.MustMoney("50.00")),
		"got %s", summary.TotalPaid)
	assert.True(t, summary.Pending.Equal(types.MustMoney("50.00")))
}

func TestDeletePayment_ArchivesFirst(t *testing.T) {
	h := newHarness(t)
	invID := h.addInvoice(t, "INV-000001", "100.00", "0.00", "100.00", 1)
	p := h.pay(t, invID, "25.00")

	require.NoError(t, h.svc.DeletePayment(context.Background(), p.ID, "admin"))

	require.Len(t, h.archive.archived, 1)
	assert.Equal(t, p.ID, h.archive.archived[0].ID)

	_, err := h.repo.GetPayment(context.Background(), p.ID)
	assert.True(t, apperror.IsNotFound(err))
}
