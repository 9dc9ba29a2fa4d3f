package product

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// OpeningStockRecorder records the opening batch for a freshly created
// product. Satisfied by the inventory engine.
type OpeningStockRecorder interface {
	RecordOpeningStock(ctx context.Context, productID id.ID, quantity int, receivedDate time.Time) error
}

// Archiver snapshots an entity into the trash before deletion.
// Satisfied by the archive service.
type Archiver interface {
	ArchiveProduct(ctx context.Context, p *Product, deletedBy string) error
}

// Service provides business logic for the Product catalog.
type Service struct {
	repo     Repository
	txm      tx.Manager
	opening  OpeningStockRecorder
	archiver Archiver
}

// NewService creates a new Product service.
func NewService(repo Repository, txm tx.Manager, opening OpeningStockRecorder, archiver Archiver) *Service {
	return &Service{
		repo:     repo,
		txm:      txm,
		opening:  opening,
		archiver: archiver,
	}
}

// Create validates and stores a product. A positive initial stock becomes
// an opening inventory batch so the stock ledger stays consistent from
// day one.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// The opening batch below bumps the cache; start from zero so
		// stock always equals the sum of batch remainders.
		p.StockQuantity = 0
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		if p.InitialStock > 0 {
			if err := s.opening.RecordOpeningStock(ctx, p.ID, p.InitialStock, p.CreatedAt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "product created", "product_id", p.ID, "sku", p.SKU)
		return nil
	})
}

// Get retrieves a product by ID.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetBySKU retrieves a product by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.repo.FindBySKU(ctx, sku)
}

// Update modifies product master data. The stock cache is not touched:
// stock moves only through the inventory engine.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		p.StockQuantity = current.StockQuantity
		p.InitialStock = current.InitialStock
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		// The repo's optimistic check expects the persisted version.
		p.SetVersion(current.Version)
		return s.repo.Update(ctx, p)
	})
}

// Delete archives the product into the trash and removes it.
// Referenced products (invoice lines, batches) surface as Conflict.
func (s *Service) Delete(ctx context.Context, productID id.ID, deletedBy string) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.archiver.ArchiveProduct(ctx, p, deletedBy); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, productID); err != nil {
			return err
		}
		logger.Info(ctx, "product deleted", "product_id", productID, "deleted_by", deletedBy)
		return nil
	})
}

// List retrieves products with filtering and pagination.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, f)
}

// BySupplier lists products linked to a supplier.
func (s *Service) BySupplier(ctx context.Context, supplierID id.ID) ([]*Product, error) {
	return s.repo.FindBySupplier(ctx, supplierID)
}

// LowStock lists products with stock at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*Product, error) {
	if threshold < 0 {
		return nil, apperror.NewValidation("threshold cannot be negative")
	}
	return s.repo.FindLowStock(ctx, threshold)
}

// Categories returns the distinct category names in use.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// TopSelling returns the best-selling products by invoiced quantity.
func (s *Service) TopSelling(ctx context.Context, limit int) ([]TopSellingProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopSelling(ctx, limit)
}
