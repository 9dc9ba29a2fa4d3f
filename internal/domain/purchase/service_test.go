package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/inventory"
	"stockbook/pkg/numerator"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeChecker struct {
	known map[id.ID]bool
}

func (c *fakeChecker) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return c.known[entityID], nil
}

type fakeStock struct {
	received []inventory.PurchaseInput
	failOn   *id.ID
}

func (s *fakeStock) RecordPurchase(ctx context.Context, in inventory.PurchaseInput) (*inventory.Batch, error) {
	if s.failOn != nil && in.ProductID == *s.failOn {
		return nil, apperror.NewNotFound("products", in.ProductID.String())
	}
	s.received = append(s.received, in)
	return &inventory.Batch{
		ID:                id.New(),
		ProductID:         in.ProductID,
		QuantityReceived:  in.Quantity,
		QuantityRemaining: in.Quantity,
		UnitCost:          in.UnitCost,
		ReceivedDate:      in.ReceivedDate,
	}, nil
}

type fakeOrderRepo struct {
	orders map[id.ID]*Order
	items  map[id.ID][]*Item
	maxNum int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[id.ID]*Order),
		items:  make(map[id.ID][]*Item),
	}
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	if n := numerator.Parse(o.Number); n > r.maxNum {
		r.maxNum = n
	}
	return nil
}

func (r *fakeOrderRepo) CreateItems(ctx context.Context, items []*Item) error {
	for _, item := range items {
		cp := *item
		r.items[item.OrderID] = append(r.items[item.OrderID], &cp)
	}
	return nil
}

func (r *fakeOrderRepo) GetOrder(ctx context.Context, orderID id.ID) (*Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("purchase_orders", orderID.String())
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *fakeOrderRepo) ItemsByOrder(ctx context.Context, orderID id.ID) ([]*Item, error) {
	return r.items[orderID], nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, o *Order) error {
	stored, ok := r.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("purchase_orders", o.ID.String())
	}
	cp := *o
	cp.Version = stored.Version + 1
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) DeleteOrder(ctx context.Context, orderID id.ID) error {
	delete(r.orders, orderID)
	return nil
}

func (r *fakeOrderRepo) DeleteItems(ctx context.Context, orderID id.ID) error {
	delete(r.items, orderID)
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*OrderSummary], error) {
	var rows []*OrderSummary
	for _, o := range r.orders {
		rows = append(rows, &OrderSummary{Order: o, ItemsCount: len(r.items[o.ID])})
	}
	return domain.ListResult[*OrderSummary]{Items: rows, TotalCount: int64(len(rows))}, nil
}

func (r *fakeOrderRepo) MaxOrderNumber(ctx context.Context) (int64, error) {
	return r.maxNum, nil
}

type fakePaymentRepo struct {
	payments map[id.ID]*Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[id.ID]*Payment)}
}

func (r *fakePaymentRepo) CreatePayment(ctx context.Context, p *Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetPayment(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("supplier_payments", paymentID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) DeletePayment(ctx context.Context, paymentID id.ID) error {
	delete(r.payments, paymentID)
	return nil
}

func (r *fakePaymentRepo) PaymentsBySupplier(ctx context.Context, supplierID id.ID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		if p.SupplierID == supplierID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) PaymentsByOrder(ctx context.Context, orderID id.ID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range r.payments {
		if p.OrderID != nil && *p.OrderID == orderID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Summaries(ctx context.Context) ([]*PaymentSummary, error) {
	return nil, nil
}

func (r *fakePaymentRepo) SummaryBySupplier(ctx context.Context, supplierID id.ID) (*PaymentSummary, error) {
	total := types.Zero()
	for _, p := range r.payments {
		if p.SupplierID == supplierID {
			total = total.Add(p.Amount)
		}
	}
	return &PaymentSummary{SupplierID: supplierID, TotalPaid: total}, nil
}

// seqRow / seqQuerier back the numerator with an in-memory sequence that
// mirrors the GREATEST-floor upsert.
type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct {
	values map[string]int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if q.values == nil {
		q.values = make(map[string]int64)
	}
	key, _ := args[0].(string)
	floor, _ := args[1].(int64)
	cur := q.values[key]
	if floor > cur {
		cur = floor
	}
	cur++
	q.values[key] = cur
	return &seqRow{val: cur}
}

// --- test harness ---

type harness struct {
	svc      *Service
	repo     *fakeOrderRepo
	payments *fakePaymentRepo
	stock    *fakeStock
	supplier id.ID
	productA id.ID
	productB id.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newFakeOrderRepo(),
		payments: newFakePaymentRepo(),
		stock:    &fakeStock{},
		supplier: id.New(),
		productA: id.New(),
		productB: id.New(),
	}
	suppliers := &fakeChecker{known: map[id.ID]bool{h.supplier: true}}
	products := &fakeChecker{known: map[id.ID]bool{h.productA: true, h.productB: true}}
	h.svc = NewService(h.repo, h.payments, suppliers, products, h.stock,
		fakeTxManager{}, numerator.New(&seqQuerier{}))
	return h
}

func (h *harness) draft(t *testing.T) *OrderWithItems {
	t.Helper()
	out, err := h.svc.Create(context.Background(), CreateInput{
		SupplierID: h.supplier,
		Items: []CreateItem{
			{ProductID: h.productA, Quantity: 10, UnitCost: types.MustMoney("5.00")},
			{ProductID: h.productB, Quantity: 4, UnitCost: types.MustMoney("12.50")},
		},
	})
	require.NoError(t, err)
	return out
}

// --- tests ---

func TestCreate_NumbersAndTotals(t *testing.T) {
	h := newHarness(t)

	out := h.draft(t)

	assert.Equal(t, "PO-000001", out.Order.Number)
	assert.Equal(t, StatusDraft, out.Order.Status)
	assert.True(t, out.Order.TotalAmount.Equal(types.MustMoney("100.00")),
		"10*5.00 + 4*12.50, got %s", out.Order.TotalAmount)
	require.Len(t, out.Items, 2)
	assert.True(t, out.Items[1].TotalCost.Equal(types.MustMoney("50.00")))

	second := h.draft(t)
	assert.Equal(t, "PO-000002", second.Order.Number)
}

func TestCreate_NumberingResumesAfterImport(t *testing.T) {
	h := newHarness(t)
	h.repo.maxNum = 41 // backfilled orders already carry PO-000041

	out := h.draft(t)

	assert.Equal(t, "PO-000042", out.Order.Number)
}

func TestCreate_UnknownSupplier(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), CreateInput{
		SupplierID: id.New(),
		Items:      []CreateItem{{ProductID: h.productA, Quantity: 1, UnitCost: types.MustMoney("1.00")}},
	})

	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_RejectsEmptyAndInvalidLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{SupplierID: h.supplier})
	require.Error(t, err)

	_, err = h.svc.Create(ctx, CreateInput{
		SupplierID: h.supplier,
		Items:      []CreateItem{{ProductID: h.productA, Quantity: 0, UnitCost: types.MustMoney("1.00")}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_BooksEachLine(t *testing.T) {
	h := newHarness(t)
	out := h.draft(t)
	received := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	got, err := h.svc.Receive(context.Background(), out.Order.ID, received)
	require.NoError(t, err)

	assert.Equal(t, StatusReceived, got.Order.Status)
	require.NotNil(t, got.Order.ReceivedDate)
	assert.True(t, got.Order.ReceivedDate.Equal(received))

	require.Len(t, h.stock.received, 2)
	for _, in := range h.stock.received {
		require.NotNil(t, in.POItemID)
		require.NotNil(t, in.ReferenceID)
		assert.Equal(t, out.Order.ID, *in.ReferenceID)
		assert.True(t, in.ReceivedDate.Equal(received))
	}
}

func TestReceive_OnlyFromDraft(t *testing.T) {
	h := newHarness(t)
	out := h.draft(t)
	ctx := context.Background()

	_, err := h.svc.Receive(ctx, out.Order.ID, time.Now())
	require.NoError(t, err)

	_, err = h.svc.Receive(ctx, out.Order.ID, time.Now())
	assert.True(t, apperror.IsConflict(err), "receiving twice must fail")

	require.NoError(t, h.svc.Cancel(ctx, h.draft(t).Order.ID))
	err = h.svc.Cancel(ctx, out.Order.ID)
	assert.True(t, apperror.IsConflict(err), "cancelling a received order must fail")
}

func TestDelete_ReceivedOrdersAreFrozen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft := h.draft(t)
	require.NoError(t, h.svc.Delete(ctx, draft.Order.ID))
	_, err := h.svc.Get(ctx, draft.Order.ID)
	assert.True(t, apperror.IsNotFound(err))

	rec := h.draft(t)
	_, err = h.svc.Receive(ctx, rec.Order.ID, time.Now())
	require.NoError(t, err)
	err = h.svc.Delete(ctx, rec.Order.ID)
	assert.True(t, apperror.IsConflict(err))
}

func TestAddPayment_OverpaymentAllowed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	out := h.draft(t) // total 100.00
	orderID := out.Order.ID

	p := &Payment{
		SupplierID: h.supplier,
		OrderID:    &orderID,
		Amount:     types.MustMoney("250.00"),
	}
	require.NoError(t, h.svc.AddPayment(ctx, p))

	summary, err := h.svc.PaymentSummary(ctx, h.supplier)
	require.NoError(t, err)
	assert.True(t, summary.TotalPaid.Equal(types.MustMoney("250.00")))

	byOrder, err := h.svc.PaymentsByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.False(t, byOrder[0].PaidAt.IsZero())
}

func TestAddPayment_OrderMustBelongToSupplier(t *testing.T) {
	h := newHarness(t)
	out := h.draft(t)
	orderID := out.Order.ID

	other := id.New()
	h.svc.suppliers.(*fakeChecker).known[other] = true

	err := h.svc.AddPayment(context.Background(), &Payment{
		SupplierID: other,
		OrderID:    &orderID,
		Amount:     types.MustMoney("10.00"),
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOwnership, appErr.Code)
}

func TestDeletePayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := &Payment{SupplierID: h.supplier, Amount: types.MustMoney("5.00")}
	require.NoError(t, h.svc.AddPayment(ctx, p))
	require.NoError(t, h.svc.DeletePayment(ctx, p.ID))

	err := h.svc.DeletePayment(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
}
