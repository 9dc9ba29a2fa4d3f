package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/inventory"
	"stockbook/pkg/numerator"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCustomers struct {
	known map[id.ID]bool
}

func (c *fakeCustomers) Exists(ctx context.Context, customerID id.ID) (bool, error) {
	return c.known[customerID], nil
}

type fakeProducts struct {
	rows map[id.ID]*product.Product
}

func (p *fakeProducts) Get(ctx context.Context, productID id.ID) (*product.Product, error) {
	row, ok := p.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("products", productID.String())
	}
	return row, nil
}

// fakeStock tracks sales and restores per product and mirrors the stock
// cache the way the real engine does.
type fakeStock struct {
	products *fakeProducts
	sales    []saleCall
	restores []saleCall
	failSale *id.ID
}

type saleCall struct {
	productID id.ID
	quantity  int
	invoiceID id.ID
}

func (s *fakeStock) RecordSaleFIFO(ctx context.Context, productID id.ID, quantity int, saleDate time.Time, invoiceID id.ID) (*inventory.SaleResult, error) {
	if s.failSale != nil && productID == *s.failSale {
		return nil, apperror.NewInsufficientStock(productID.String(), quantity, 0)
	}
	s.sales = append(s.sales, saleCall{productID, quantity, invoiceID})
	s.products.rows[productID].StockQuantity -= quantity
	return &inventory.SaleResult{TransactionID: id.New()}, nil
}

func (s *fakeStock) RestoreStockFromInvoice(ctx context.Context, productID id.ID, quantity int, invoiceID id.ID) error {
	s.restores = append(s.restores, saleCall{productID, quantity, invoiceID})
	s.products.rows[productID].StockQuantity += quantity
	return nil
}

type archivedInvoice struct {
	snapshot  *InvoiceWithItems
	deletedBy string
}

type fakeArchive struct {
	archived []archivedInvoice
}

func (a *fakeArchive) ArchiveInvoice(ctx context.Context, inv *InvoiceWithItems, deletedBy string) error {
	a.archived = append(a.archived, archivedInvoice{inv, deletedBy})
	return nil
}

type fakeRepo struct {
	invoices map[id.ID]*Invoice
	items    map[id.ID][]*Item
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invoices: make(map[id.ID]*Invoice),
		items:    make(map[id.ID][]*Item),
	}
}

func (r *fakeRepo) CreateInvoice(ctx context.Context, inv *Invoice) error {
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateItems(ctx context.Context, items []*Item) error {
	for _, item := range items {
		cp := *item
		r.items[item.InvoiceID] = append(r.items[item.InvoiceID], &cp)
	}
	return nil
}

func (r *fakeRepo) GetInvoice(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoices", invoiceID.String())
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeRepo) GetInvoiceForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return r.GetInvoice(ctx, invoiceID)
}

func (r *fakeRepo) ItemsByInvoice(ctx context.Context, invoiceID id.ID) ([]*Item, error) {
	return r.items[invoiceID], nil
}

func (r *fakeRepo) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if _, ok := r.invoices[inv.ID]; !ok {
		return apperror.NewNotFound("invoices", inv.ID.String())
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteItems(ctx context.Context, invoiceID id.ID) error {
	delete(r.items, invoiceID)
	return nil
}

func (r *fakeRepo) DeleteInvoice(ctx context.Context, invoiceID id.ID) error {
	delete(r.invoices, invoiceID)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Invoice], error) {
	var rows []*Invoice
	for _, inv := range r.invoices {
		if f.CustomerID != nil && (inv.CustomerID == nil || *inv.CustomerID != *f.CustomerID) {
			continue
		}
		cp := *inv
		rows = append(rows, &cp)
	}
	return domain.ListResult[*Invoice]{Items: rows, TotalCount: int64(len(rows))}, nil
}

func (r *fakeRepo) MaxInvoiceNumber(ctx context.Context) (int64, error) {
	var max int64
	for _, inv := range r.invoices {
		if n := numerator.Parse(inv.Number); n > max {
			max = n
		}
	}
	return max, nil
}

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

// --- harness ---

type harness struct {
	svc      *Service
	repo     *fakeRepo
	stock    *fakeStock
	archive  *fakeArchive
	products *fakeProducts
	customer id.ID
	widget   id.ID
	gadget   id.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newFakeRepo(),
		archive:  &fakeArchive{},
		customer: id.New(),
		widget:   id.New(),
		gadget:   id.New(),
	}
	h.products = &fakeProducts{rows: map[id.ID]*product.Product{
		h.widget: {BaseCatalog: entity.NewBaseCatalog(), Name: "Widget", StockQuantity: 20},
		h.gadget: {BaseCatalog: entity.NewBaseCatalog(), Name: "Gadget", StockQuantity: 3},
	}}
	h.products.rows[h.widget].ID = h.widget
	h.products.rows[h.gadget].ID = h.gadget
	h.stock = &fakeStock{products: h.products}
	customers := &fakeCustomers{known: map[id.ID]bool{h.customer: true}}
	h.svc = NewService(h.repo, customers, h.products, h.stock, h.archive,
		fakeTxManager{}, numerator.New(&seqQuerier{}))
	return h
}

func (h *harness) sell(t *testing.T, items ...CreateItem) *InvoiceWithItems {
	t.Helper()
	if len(items) == 0 {
		items = []CreateItem{{ProductID: h.widget, Quantity: 5, UnitPrice: types.MustMoney("10.00")}}
	}
	out, err := h.svc.Create(context.Background(), CreateInput{
		CustomerID: &h.customer,
		Items:      items,
	})
	require.NoError(t, err)
	return out
}

// --- tests ---

func TestCreate_TotalsAndSnapshot(t *testing.T) {
	h := newHarness(t)

	out, err := h.svc.Create(context.Background(), CreateInput{
		CustomerID:     &h.customer,
		TaxAmount:      types.MustMoney("5.00"),
		DiscountAmount: types.MustMoney("2.50"),
		Items: []CreateItem{
			{ProductID: h.widget, Quantity: 5, UnitPrice: types.MustMoney("10.00")},
			{ProductID: h.gadget, Quantity: 2, UnitPrice: types.MustMoney("20.00")},
		},
	})
	require.NoError(t, err)

	// 5*10 + 2*20 = 90, +5 tax -2.50 discount
	assert.True(t, out.Invoice.TotalAmount.Equal(types.MustMoney("92.50")),
		"got %s", out.Invoice.TotalAmount)
	assert.Equal(t, "INV-000001", out.Invoice.Number)

	require.Len(t, out.Items, 2)
	assert.Equal(t, "Widget", out.Items[0].ProductName)
	assert.Equal(t, "Gadget", out.Items[1].ProductName)

	require.Len(t, h.stock.sales, 2)
	assert.Equal(t, out.Invoice.ID, h.stock.sales[0].invoiceID)
	assert.Equal(t, 15, h.products.rows[h.widget].StockQuantity)
}

func TestCreate_SequentialNumbers(t *testing.T) {
	h := newHarness(t)

	first := h.sell(t)
	second := h.sell(t)

	assert.Equal(t, "INV-000001", first.Invoice.Number)
	assert.Equal(t, "INV-000002", second.Invoice.Number)
}

func TestCreate_NumbersNotRecycledAfterDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.sell(t)
	require.NoError(t, h.svc.Delete(ctx, first.Invoice.ID, "tester"))

	second := h.sell(t)
	assert.Equal(t, "INV-000002", second.Invoice.Number)
}

func TestCreate_StockPreCheck(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Items: []CreateItem{{ProductID: h.gadget, Quantity: 4, UnitPrice: types.MustMoney("1.00")}},
	})

	require.True(t, apperror.IsInsufficientStock(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 4, appErr.Details["requested"])
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Empty(t, h.stock.sales, "no stock may move on a failed pre-check")
}

func TestCreate_UnknownCustomer(t *testing.T) {
	h := newHarness(t)
	stranger := id.New()

	_, err := h.svc.Create(context.Background(), CreateInput{
		CustomerID: &stranger,
		Items:      []CreateItem{{ProductID: h.widget, Quantity: 1, UnitPrice: types.MustMoney("1.00")}},
	})

	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_AnonymousSaleAllowed(t *testing.T) {
	h := newHarness(t)

	out, err := h.svc.Create(context.Background(), CreateInput{
		Items: []CreateItem{{ProductID: h.widget, Quantity: 1, UnitPrice: types.MustMoney("9.99")}},
	})

	require.NoError(t, err)
	assert.Nil(t, out.Invoice.CustomerID)
}

func TestDelete_ArchivesThenReverses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	out := h.sell(t,
		CreateItem{ProductID: h.widget, Quantity: 5, UnitPrice: types.MustMoney("10.00")},
		CreateItem{ProductID: h.gadget, Quantity: 2, UnitPrice: types.MustMoney("20.00")},
	)

	require.NoError(t, h.svc.Delete(ctx, out.Invoice.ID, "admin"))

	require.Len(t, h.archive.archived, 1)
	snap := h.archive.archived[0]
	assert.Equal(t, "admin", snap.deletedBy)
	assert.Equal(t, out.Invoice.Number, snap.snapshot.Invoice.Number)
	assert.Len(t, snap.snapshot.Items, 2)

	require.Len(t, h.stock.restores, 2)
	assert.Equal(t, 20, h.products.rows[h.widget].StockQuantity)
	assert.Equal(t, 3, h.products.rows[h.gadget].StockQuantity)

	_, err := h.svc.Get(ctx, out.Invoice.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_MergesDuplicateProductLines(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Two lines of the same product write two sale entries; the reversal
	// must cover both with one call carrying the summed quantity.
	out := h.sell(t,
		CreateItem{ProductID: h.widget, Quantity: 2, UnitPrice: types.MustMoney("10.00")},
		CreateItem{ProductID: h.widget, Quantity: 3, UnitPrice: types.MustMoney("9.00")},
	)

	require.NoError(t, h.svc.Delete(ctx, out.Invoice.ID, "admin"))

	require.Len(t, h.stock.restores, 1)
	assert.Equal(t, h.widget, h.stock.restores[0].productID)
	assert.Equal(t, 5, h.stock.restores[0].quantity)
	assert.Equal(t, 20, h.products.rows[h.widget].StockQuantity)
}

func TestUpdateMetadata_OnlyMutableFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	out := h.sell(t)

	method := "cash"
	backdated := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	updated, err := h.svc.UpdateMetadata(ctx, out.Invoice.ID, MetadataUpdate{
		PaymentMethod: &method,
		CreatedAt:     &backdated,
	})
	require.NoError(t, err)

	assert.Equal(t, "cash", *updated.PaymentMethod)
	assert.True(t, updated.CreatedAt.Equal(backdated))
	assert.True(t, updated.TotalAmount.Equal(out.Invoice.TotalAmount),
		"amounts are frozen")
	assert.Equal(t, out.Invoice.Version+1, updated.Version)

	items, err := h.repo.ItemsByInvoice(ctx, out.Invoice.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "line items are immutable")
}

func TestUpdateMetadata_UnknownCustomer(t *testing.T) {
	h := newHarness(t)
	out := h.sell(t)
	stranger := id.New()

	_, err := h.svc.UpdateMetadata(context.Background(), out.Invoice.ID, MetadataUpdate{
		CustomerID: &stranger,
	})

	assert.True(t, apperror.IsNotFound(err))
}

func TestList_FilterByCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.sell(t)

	_, err := h.svc.Create(ctx, CreateInput{
		Items: []CreateItem{{ProductID: h.widget, Quantity: 1, UnitPrice: types.MustMoney("1.00")}},
	})
	require.NoError(t, err)

	all, err := h.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)

	mine, err := h.svc.List(ctx, ListFilter{CustomerID: &h.customer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.TotalCount)
}
