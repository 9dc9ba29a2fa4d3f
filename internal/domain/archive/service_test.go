package archive

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/domain/invoice"
)

// --- codec tests ---

func TestCodec_CanonicalJSON(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	a, err := codec.Marshal(map[string]any{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	b, err := codec.Marshal(map[string]any{"c": 3, "a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, a, b, "map order must not leak into the snapshot")
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(a))
}

func TestCodec_PackSmallStaysPlain(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	data, algo, err := codec.Pack([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)

	var out []string
	require.NoError(t, codec.Unpack(data, algo, &out))
	assert.Equal(t, []string{"x", "y"}, out)
}

func TestCodec_PackLargeCompresses(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	big := strings.Repeat("inventory line item ", 2000) // well past 10KB
	data, algo, err := codec.Pack(map[string]string{"blob": big})
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, algo)
	assert.Less(t, len(data), len(big), "zstd must actually shrink it")
	assert.True(t, bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}), "zstd magic")

	var out map[string]string
	require.NoError(t, codec.Unpack(data, algo, &out))
	assert.Equal(t, big, out["blob"])
}

func TestCodec_PackNil(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)

	data, algo, err := codec.Pack(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, CompressionNone, algo)
}

// --- service fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	tombstones map[id.ID]*Tombstone
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tombstones: make(map[id.ID]*Tombstone)}
}

func (r *fakeRepo) Insert(ctx context.Context, t *Tombstone) error {
	cp := *t
	r.tombstones[t.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, tombstoneID id.ID) (*Tombstone, error) {
	t, ok := r.tombstones[tombstoneID]
	if !ok {
		return nil, apperror.NewNotFound("deleted_records", tombstoneID.String())
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) Delete(ctx context.Context, tombstoneID id.ID) error {
	delete(r.tombstones, tombstoneID)
	return nil
}

func (r *fakeRepo) DeleteAll(ctx context.Context) (int, error) {
	n := len(r.tombstones)
	r.tombstones = make(map[id.ID]*Tombstone)
	return n, nil
}

func (r *fakeRepo) List(ctx context.Context, entityType string, limit, offset int) ([]*Tombstone, int, error) {
	var out []*Tombstone
	for _, t := range r.tombstones {
		if entityType != "" && t.EntityType != entityType {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type fakeProductStore struct {
	created []*product.Product
	links   map[id.ID][]id.ID // supplier -> product ids
}

func (s *fakeProductStore) Create(ctx context.Context, p *product.Product) error {
	s.created = append(s.created, p)
	return nil
}

func (s *fakeProductStore) ClearSupplier(ctx context.Context, supplierID id.ID) ([]id.ID, error) {
	ids := s.links[supplierID]
	delete(s.links, supplierID)
	return ids, nil
}

func (s *fakeProductStore) RelinkSupplier(ctx context.Context, supplierID id.ID, productIDs []id.ID) error {
	s.links[supplierID] = productIDs
	return nil
}

type fakeSupplierStore struct {
	created []*supplier.Supplier
	fail    error
}

func (s *fakeSupplierStore) Create(ctx context.Context, sup *supplier.Supplier) error {
	if s.fail != nil {
		return s.fail
	}
	s.created = append(s.created, sup)
	return nil
}

type fakeCustomerStore struct {
	created []*customer.Customer
}

func (s *fakeCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	s.created = append(s.created, c)
	return nil
}

type fakeInvoiceLinks struct {
	byCustomer map[id.ID][]id.ID
}

func (l *fakeInvoiceLinks) DetachCustomer(ctx context.Context, customerID id.ID) ([]id.ID, error) {
	ids := l.byCustomer[customerID]
	delete(l.byCustomer, customerID)
	return ids, nil
}

func (l *fakeInvoiceLinks) ReattachCustomer(ctx context.Context, customerID id.ID, invoiceIDs []id.ID) error {
	l.byCustomer[customerID] = invoiceIDs
	return nil
}

type harness struct {
	svc       *Service
	repo      *fakeRepo
	products  *fakeProductStore
	suppliers *fakeSupplierStore
	customers *fakeCustomerStore
	invoices  *fakeInvoiceLinks
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	codec, err := NewCodec()
	require.NoError(t, err)
	h := &harness{
		repo:      newFakeRepo(),
		products:  &fakeProductStore{links: make(map[id.ID][]id.ID)},
		suppliers: &fakeSupplierStore{},
		customers: &fakeCustomerStore{},
		invoices:  &fakeInvoiceLinks{byCustomer: make(map[id.ID][]id.ID)},
	}
	h.svc = NewService(h.repo, codec, h.products, h.suppliers, h.customers, h.invoices, fakeTxManager{})
	return h
}

func (h *harness) lastTombstone(t *testing.T) *Tombstone {
	t.Helper()
	require.Len(t, h.repo.tombstones, 1)
	for _, ts := range h.repo.tombstones {
		return ts
	}
	return nil
}

// --- service tests ---

func TestArchiveRestoreProduct_PreservesPrimaryKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	price := types.MustMoney("7.00")
	p := &product.Product{
		BaseCatalog:   entity.NewBaseCatalog(),
		Name:          "Widget",
		SKU:           "W-1",
		CostPrice:     types.MustMoney("4.00"),
		SellingPrice:  &price,
		StockQuantity: 12,
	}
	require.NoError(t, h.svc.ArchiveProduct(ctx, p, "admin"))

	ts := h.lastTombstone(t)
	assert.Equal(t, EntityProduct, ts.EntityType)
	assert.Equal(t, p.ID, ts.EntityID)

	restored, err := h.svc.RestoreProduct(ctx, ts.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, restored.ID, "original primary key survives")
	assert.Equal(t, "Widget", restored.Name)
	assert.Equal(t, 12, restored.StockQuantity)
	assert.Empty(t, h.repo.tombstones, "tombstone is consumed")
}

func TestArchiveRestoreSupplier_RelinksProducts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sup := &supplier.Supplier{BaseCatalog: entity.NewBaseCatalog(), Name: "Acme"}
	linked := []id.ID{id.New(), id.New()}
	h.products.links[sup.ID] = linked

	require.NoError(t, h.svc.ArchiveSupplier(ctx, sup, "admin"))
	assert.Empty(t, h.products.links, "products are detached at archive time")

	restored, err := h.svc.RestoreSupplier(ctx, h.lastTombstone(t).ID)
	require.NoError(t, err)
	assert.Equal(t, sup.ID, restored.ID)
	assert.ElementsMatch(t, linked, h.products.links[sup.ID])
}

func TestArchiveRestoreCustomer_ReattachesInvoices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := &customer.Customer{BaseCatalog: entity.NewBaseCatalog(), Name: "Dana"}
	invoices := []id.ID{id.New()}
	h.invoices.byCustomer[c.ID] = invoices

	require.NoError(t, h.svc.ArchiveCustomer(ctx, c, "admin"))
	assert.Empty(t, h.invoices.byCustomer)

	restored, err := h.svc.RestoreCustomer(ctx, h.lastTombstone(t).ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, restored.ID)
	assert.Equal(t, invoices, h.invoices.byCustomer[c.ID])
}

func TestRestore_WrongTypeIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := &customer.Customer{BaseCatalog: entity.NewBaseCatalog(), Name: "Dana"}
	require.NoError(t, h.svc.ArchiveCustomer(ctx, c, "admin"))

	_, err := h.svc.RestoreProduct(ctx, h.lastTombstone(t).ID)
	assert.True(t, apperror.IsConflict(err))
}

func TestRestore_MissingTombstone(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.RestoreSupplier(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestRestoreSupplier_FailedInsertKeepsTombstone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sup := &supplier.Supplier{BaseCatalog: entity.NewBaseCatalog(), Name: "Acme"}
	require.NoError(t, h.svc.ArchiveSupplier(ctx, sup, "admin"))
	h.suppliers.fail = apperror.NewDuplicate("suppliers", "name", "Acme")

	_, err := h.svc.RestoreSupplier(ctx, h.lastTombstone(t).ID)
	require.Error(t, err)
	assert.Len(t, h.repo.tombstones, 1, "tombstone survives a failed restore")
}

func TestListDeleted_DisplayNames(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := &product.Product{BaseCatalog: entity.NewBaseCatalog(), Name: "Widget"}
	require.NoError(t, h.svc.ArchiveProduct(ctx, p, "admin"))

	inv := &invoice.Invoice{BaseDocument: entity.NewBaseDocument(), Number: "INV-000007"}
	require.NoError(t, h.svc.ArchiveInvoice(ctx, &invoice.InvoiceWithItems{Invoice: inv}, "admin"))

	rows, total, err := h.svc.ListDeleted(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	names := map[string]string{}
	for _, r := range rows {
		names[r.EntityType] = r.DisplayName
	}
	assert.Equal(t, "Widget", names[EntityProduct])
	assert.Equal(t, "INV-000007", names[EntityInvoice])

	onlyProducts, total, err := h.svc.ListDeleted(ctx, EntityProduct, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, onlyProducts, 1)
}

func TestClearTrash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.ArchiveProduct(ctx, &product.Product{BaseCatalog: entity.NewBaseCatalog(), Name: "A"}, "x"))
	require.NoError(t, h.svc.ArchiveProduct(ctx, &product.Product{BaseCatalog: entity.NewBaseCatalog(), Name: "B"}, "x"))

	n, err := h.svc.ClearTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, h.repo.tombstones)
}
