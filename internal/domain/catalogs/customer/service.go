package customer

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// Archiver snapshots a customer and its invoices into the trash.
// Deleting a customer is recoverable: the archive service re-creates the
// customer and its invoice headers on restore.
type Archiver interface {
	ArchiveCustomer(ctx context.Context, c *Customer, deletedBy string) error
}

// Service provides business logic for the Customer catalog.
type Service struct {
	repo     Repository
	txm      tx.Manager
	archiver Archiver
}

// NewService creates a new Customer service.
func NewService(repo Repository, txm tx.Manager, archiver Archiver) *Service {
	return &Service{repo: repo, txm: txm, archiver: archiver}
}

// Create validates and stores a customer.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
}

// Get retrieves a customer by ID.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

// Update modifies customer master data.
func (s *Service) Update(ctx context.Context, c *Customer) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		c.CreatedAt = current.CreatedAt
		c.UpdatedAt = time.Now().UTC()
		c.SetVersion(current.Version)
		return s.repo.Update(ctx, c)
	})
}

// Delete archives the customer and removes it.
func (s *Service) Delete(ctx context.Context, customerID id.ID, deletedBy string) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if err := s.archiver.ArchiveCustomer(ctx, c, deletedBy); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, customerID); err != nil {
			return err
		}
		logger.Info(ctx, "customer deleted", "customer_id", customerID, "deleted_by", deletedBy)
		return nil
	})
}

// List retrieves customers with filtering and pagination.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Customer], error) {
	return s.repo.List(ctx, f)
}
