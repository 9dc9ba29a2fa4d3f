package archive

import (
	"context"
	"encoding/json"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain/auth"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/domain/credit"
	"stockbook/internal/domain/invoice"
	"stockbook/pkg/logger"
)

// ProductStore re-inserts products and manages supplier links.
type ProductStore interface {
	Create(ctx context.Context, p *product.Product) error
	ClearSupplier(ctx context.Context, supplierID id.ID) ([]id.ID, error)
	RelinkSupplier(ctx context.Context, supplierID id.ID, productIDs []id.ID) error
}

// SupplierStore re-inserts suppliers.
type SupplierStore interface {
	Create(ctx context.Context, s *supplier.Supplier) error
}

// CustomerStore re-inserts customers.
type CustomerStore interface {
	Create(ctx context.Context, c *customer.Customer) error
}

// InvoiceLinks detaches and re-pins a customer's invoices across an
// archive/restore cycle.
type InvoiceLinks interface {
	DetachCustomer(ctx context.Context, customerID id.ID) ([]id.ID, error)
	ReattachCustomer(ctx context.Context, customerID id.ID, invoiceIDs []id.ID) error
}

// Service provides trash operations. Archive methods must run inside
// the caller's transaction so a failed delete leaves no tombstone.
type Service struct {
	repo      Repository
	codec     *Codec
	products  ProductStore
	suppliers SupplierStore
	customers CustomerStore
	invoices  InvoiceLinks
	txm       tx.Manager
}

// NewService creates a new archive service.
func NewService(
	repo Repository,
	codec *Codec,
	products ProductStore,
	suppliers SupplierStore,
	customers CustomerStore,
	invoices InvoiceLinks,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		codec:     codec,
		products:  products,
		suppliers: suppliers,
		customers: customers,
		invoices:  invoices,
		txm:       txm,
	}
}

// archive snapshots one entity plus restore payload into a tombstone.
func (s *Service) archive(ctx context.Context, entityType string, entityID id.ID, snapshot, related any, deletedBy string) error {
	data, err := s.codec.Marshal(snapshot)
	if err != nil {
		return err
	}
	relatedData, algo, err := s.codec.Pack(related)
	if err != nil {
		return err
	}

	t := &Tombstone{
		ID:              id.New(),
		EntityType:      entityType,
		EntityID:        entityID,
		Data:            data,
		RelatedData:     relatedData,
		CompressionAlgo: algo,
		DeletedBy:       deletedBy,
		DeletedAt:       time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return err
	}

	logger.Info(ctx, "record archived",
		"entity_type", entityType, "entity_id", entityID, "deleted_by", deletedBy)
	return nil
}

// ArchiveProduct snapshots a product.
func (s *Service) ArchiveProduct(ctx context.Context, p *product.Product, deletedBy string) error {
	return s.archive(ctx, EntityProduct, p.ID, p, nil, deletedBy)
}

// ArchiveSupplier snapshots a supplier and detaches its products. The
// detached product IDs travel with the tombstone for restore.
func (s *Service) ArchiveSupplier(ctx context.Context, sup *supplier.Supplier, deletedBy string) error {
	productIDs, err := s.products.ClearSupplier(ctx, sup.ID)
	if err != nil {
		return err
	}
	return s.archive(ctx, EntitySupplier, sup.ID, sup, productIDs, deletedBy)
}

// ArchiveCustomer snapshots a customer and detaches their invoices.
func (s *Service) ArchiveCustomer(ctx context.Context, c *customer.Customer, deletedBy string) error {
	invoiceIDs, err := s.invoices.DetachCustomer(ctx, c.ID)
	if err != nil {
		return err
	}
	return s.archive(ctx, EntityCustomer, c.ID, c, invoiceIDs, deletedBy)
}

// ArchiveInvoice snapshots a deleted invoice with its line items.
// Invoices are not restorable; the snapshot is for the record.
func (s *Service) ArchiveInvoice(ctx context.Context, inv *invoice.InvoiceWithItems, deletedBy string) error {
	return s.archive(ctx, EntityInvoice, inv.Invoice.ID, inv, nil, deletedBy)
}

// ArchivePayment snapshots a deleted customer payment.
func (s *Service) ArchivePayment(ctx context.Context, p *credit.Payment, deletedBy string) error {
	return s.archive(ctx, EntityPayment, p.ID, p, nil, deletedBy)
}

// ArchiveUser snapshots a deleted user.
func (s *Service) ArchiveUser(ctx context.Context, u *auth.User, deletedBy string) error {
	return s.archive(ctx, EntityUser, u.ID, u, nil, deletedBy)
}

// RestoreProduct re-inserts a trashed product with its original primary
// key and removes the tombstone.
func (s *Service) RestoreProduct(ctx context.Context, tombstoneID id.ID) (*product.Product, error) {
	var restored *product.Product
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.getTyped(ctx, tombstoneID, EntityProduct)
		if err != nil {
			return err
		}
		var p product.Product
		if err := s.codec.Unmarshal(t.Data, &p); err != nil {
			return apperror.NewInternal(err).WithDetail("tombstone_id", tombstoneID.String())
		}
		if err := s.products.Create(ctx, &p); err != nil {
			return err
		}
		restored = &p
		return s.repo.Delete(ctx, tombstoneID)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "product restored", "product_id", restored.ID, "name", restored.Name)
	return restored, nil
}

// RestoreSupplier re-inserts a trashed supplier and re-links the
// products it was detached from.
func (s *Service) RestoreSupplier(ctx context.Context, tombstoneID id.ID) (*supplier.Supplier, error) {
	var restored *supplier.Supplier
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.getTyped(ctx, tombstoneID, EntitySupplier)
		if err != nil {
			return err
		}
		var sup supplier.Supplier
		if err := s.codec.Unmarshal(t.Data, &sup); err != nil {
			return apperror.NewInternal(err).WithDetail("tombstone_id", tombstoneID.String())
		}
		if err := s.suppliers.Create(ctx, &sup); err != nil {
			return err
		}

		var productIDs []id.ID
		if err := s.codec.Unpack(t.RelatedData, t.CompressionAlgo, &productIDs); err != nil {
			return apperror.NewInternal(err).WithDetail("tombstone_id", tombstoneID.String())
		}
		if len(productIDs) > 0 {
			if err := s.products.RelinkSupplier(ctx, sup.ID, productIDs); err != nil {
				return err
			}
		}
		restored = &sup
		return s.repo.Delete(ctx, tombstoneID)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "supplier restored", "supplier_id", restored.ID, "name", restored.Name)
	return restored, nil
}

// RestoreCustomer re-inserts a trashed customer and re-pins their
// invoices.
func (s *Service) RestoreCustomer(ctx context.Context, tombstoneID id.ID) (*customer.Customer, error) {
	var restored *customer.Customer
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.getTyped(ctx, tombstoneID, EntityCustomer)
		if err != nil {
			return err
		}
		var c customer.Customer
		if err := s.codec.Unmarshal(t.Data, &c); err != nil {
			return apperror.NewInternal(err).WithDetail("tombstone_id", tombstoneID.String())
		}
		if err := s.customers.Create(ctx, &c); err != nil {
			return err
		}

		var invoiceIDs []id.ID
		if err := s.codec.Unpack(t.RelatedData, t.CompressionAlgo, &invoiceIDs); err != nil {
			return apperror.NewInternal(err).WithDetail("tombstone_id", tombstoneID.String())
		}
		if len(invoiceIDs) > 0 {
			if err := s.invoices.ReattachCustomer(ctx, c.ID, invoiceIDs); err != nil {
				return err
			}
		}
		restored = &c
		return s.repo.Delete(ctx, tombstoneID)
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "customer restored", "customer_id", restored.ID, "name", restored.Name)
	return restored, nil
}

// Restore dispatches on the tombstone's entity type. Invoices,
// payments, and users are archived for audit only and cannot come
// back: invoices already returned their stock on delete.
func (s *Service) Restore(ctx context.Context, tombstoneID id.ID) (any, error) {
	t, err := s.repo.Get(ctx, tombstoneID)
	if err != nil {
		return nil, err
	}
	switch t.EntityType {
	case EntityProduct:
		return s.RestoreProduct(ctx, tombstoneID)
	case EntitySupplier:
		return s.RestoreSupplier(ctx, tombstoneID)
	case EntityCustomer:
		return s.RestoreCustomer(ctx, tombstoneID)
	default:
		return nil, apperror.NewConflict("this record type cannot be restored").
			WithDetail("entity_type", t.EntityType)
	}
}

// PermanentlyDelete removes one tombstone for good.
func (s *Service) PermanentlyDelete(ctx context.Context, tombstoneID id.ID) error {
	if _, err := s.repo.Get(ctx, tombstoneID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tombstoneID)
}

// ClearTrash removes every tombstone and returns how many went.
func (s *Service) ClearTrash(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "trash cleared", "count", n)
	return n, nil
}

// ListDeleted returns trash rows, newest first, with display names
// parsed from the snapshots.
func (s *Service) ListDeleted(ctx context.Context, entityType string, limit, offset int) ([]*DeletedRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	tombstones, total, err := s.repo.List(ctx, entityType, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*DeletedRecord, 0, len(tombstones))
	for _, t := range tombstones {
		out = append(out, &DeletedRecord{
			ID:          t.ID,
			EntityType:  t.EntityType,
			EntityID:    t.EntityID,
			DisplayName: displayName(t.EntityType, t.Data),
			DeletedBy:   t.DeletedBy,
			DeletedAt:   t.DeletedAt,
		})
	}
	return out, total, nil
}

func (s *Service) getTyped(ctx context.Context, tombstoneID id.ID, entityType string) (*Tombstone, error) {
	t, err := s.repo.Get(ctx, tombstoneID)
	if err != nil {
		return nil, err
	}
	if t.EntityType != entityType {
		return nil, apperror.NewConflict("trashed record has a different type").
			WithDetail("expected", entityType).
			WithDetail("actual", t.EntityType)
	}
	return t, nil
}

// displayName digs the human-readable label out of a snapshot.
func displayName(entityType string, data []byte) string {
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return ""
	}

	pick := func(m map[string]json.RawMessage, key string) string {
		var v string
		if raw, ok := m[key]; ok && json.Unmarshal(raw, &v) == nil {
			return v
		}
		return ""
	}

	switch entityType {
	case EntityUser:
		return pick(snapshot, "username")
	case EntityInvoice:
		var header map[string]json.RawMessage
		if raw, ok := snapshot["invoice"]; ok && json.Unmarshal(raw, &header) == nil {
			return pick(header, "number")
		}
		return ""
	case EntityPayment:
		return pick(snapshot, "amount")
	default:
		return pick(snapshot, "name")
	}
}
