package supplier

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// Archiver snapshots a supplier (and its product links) into the trash.
type Archiver interface {
	ArchiveSupplier(ctx context.Context, s *Supplier, deletedBy string) error
}

// Service provides business logic for the Supplier catalog.
type Service struct {
	repo     Repository
	txm      tx.Manager
	archiver Archiver
}

// NewService creates a new Supplier service.
func NewService(repo Repository, txm tx.Manager, archiver Archiver) *Service {
	return &Service{repo: repo, txm: txm, archiver: archiver}
}

// Create validates and stores a supplier.
func (s *Service) Create(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sup)
	})
}

// Get retrieves a supplier by ID.
func (s *Service) Get(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetByID(ctx, supplierID)
}

// Update modifies supplier master data.
func (s *Service) Update(ctx context.Context, sup *Supplier) error {
	if err := sup.Validate(ctx); err != nil {
		return err
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, sup.ID)
		if err != nil {
			return err
		}
		sup.CreatedAt = current.CreatedAt
		sup.UpdatedAt = time.Now().UTC()
		sup.SetVersion(current.Version)
		return s.repo.Update(ctx, sup)
	})
}

// Delete archives the supplier, detaches its products, and removes it.
// Products keep existing with no supplier; restore re-links them.
func (s *Service) Delete(ctx context.Context, supplierID id.ID, deletedBy string) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, err := s.repo.GetForUpdate(ctx, supplierID)
		if err != nil {
			return err
		}
		if err := s.archiver.ArchiveSupplier(ctx, sup, deletedBy); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, supplierID); err != nil {
			return err
		}
		logger.Info(ctx, "supplier deleted", "supplier_id", supplierID, "deleted_by", deletedBy)
		return nil
	})
}

// List retrieves suppliers with filtering and pagination.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Supplier], error) {
	return s.repo.List(ctx, f)
}
