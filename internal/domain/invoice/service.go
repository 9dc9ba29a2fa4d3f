package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/inventory"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

// CustomerChecker verifies customer existence.
type CustomerChecker interface {
	Exists(ctx context.Context, customerID id.ID) (bool, error)
}

// ProductReader loads products for the stock pre-check and the name
// snapshot.
type ProductReader interface {
	Get(ctx context.Context, productID id.ID) (*product.Product, error)
}

// StockEngine consumes and restores stock. Satisfied by the inventory
// engine.
type StockEngine interface {
	RecordSaleFIFO(ctx context.Context, productID id.ID, quantity int, saleDate time.Time, invoiceID id.ID) (*inventory.SaleResult, error)
	RestoreStockFromInvoice(ctx context.Context, productID id.ID, quantity int, invoiceID id.ID) error
}

// Archiver snapshots deleted invoices into the trash.
type Archiver interface {
	ArchiveInvoice(ctx context.Context, inv *InvoiceWithItems, deletedBy string) error
}

// Service provides business logic for invoices.
type Service struct {
	repo      Repository
	customers CustomerChecker
	products  ProductReader
	stock     StockEngine
	archive   Archiver
	txm       tx.Manager
	numbers   *numerator.Service
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	customers CustomerChecker,
	products ProductReader,
	stock StockEngine,
	archive Archiver,
	txm tx.Manager,
	numbers *numerator.Service,
) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		products:  products,
		stock:     stock,
		archive:   archive,
		txm:       txm,
		numbers:   numbers,
	}
}

// CreateInput describes a new invoice.
type CreateInput struct {
	CustomerID     *id.ID
	TaxAmount      types.Money
	DiscountAmount types.Money
	InitialPaid    types.Money
	CreditAmount   types.Money
	PaymentMethod  *string
	State          *string
	District       *string
	Town           *string
	CreatedAt      *time.Time
	Items          []CreateItem
}

// CreateItem is one requested line.
type CreateItem struct {
	ProductID id.ID
	Quantity  int
	UnitPrice types.Money
}

// Create builds the invoice all-or-nothing: header, items with product
// name snapshots, and FIFO stock consumption per line in one
// transaction. The number is issued inside the same transaction and is
// never recycled.
func (s *Service) Create(ctx context.Context, in CreateInput) (*InvoiceWithItems, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("invoice needs at least one item")
	}
	if in.TaxAmount.IsNegative() || in.DiscountAmount.IsNegative() {
		return nil, apperror.NewValidation("tax and discount cannot be negative")
	}

	var result *InvoiceWithItems
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.CustomerID != nil {
			ok, err := s.customers.Exists(ctx, *in.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewNotFound("customers", in.CustomerID.String())
			}
		}

		// First pass: validate lines and reject obvious stock shortfalls
		// before any ledger writes. The FIFO engine re-checks under its
		// row lock, so this is only an early exit.
		itemsTotal := types.Zero()
		names := make(map[id.ID]string, len(in.Items))
		for _, line := range in.Items {
			item := Item{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: line.UnitPrice}
			if err := item.Validate(ctx); err != nil {
				return err
			}
			p, err := s.products.Get(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p.StockQuantity < line.Quantity {
				return apperror.NewInsufficientStock(line.ProductID.String(), line.Quantity, p.StockQuantity)
			}
			names[line.ProductID] = p.Name
			itemsTotal = itemsTotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		floor, err := s.repo.MaxInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		next, err := s.numbers.NextAtLeast(ctx, NumberPrefix, floor)
		if err != nil {
			return err
		}

		inv := &Invoice{
			BaseDocument:   entity.NewBaseDocument(),
			Number:         numerator.Format(NumberPrefix, next),
			CustomerID:     in.CustomerID,
			TotalAmount:    itemsTotal.Add(in.TaxAmount).Sub(in.DiscountAmount),
			TaxAmount:      in.TaxAmount,
			DiscountAmount: in.DiscountAmount,
			InitialPaid:    in.InitialPaid,
			CreditAmount:   in.CreditAmount,
			PaymentMethod:  in.PaymentMethod,
			State:          in.State,
			District:       in.District,
			Town:           in.Town,
		}
		inv.CreatedBy = appctx.GetUsername(ctx)
		if in.CreatedAt != nil {
			inv.CreatedAt = in.CreatedAt.UTC()
		}
		if err := inv.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.CreateInvoice(ctx, inv); err != nil {
			return err
		}

		items := make([]*Item, 0, len(in.Items))
		for _, line := range in.Items {
			item := &Item{
				ID:          id.New(),
				InvoiceID:   inv.ID,
				ProductID:   line.ProductID,
				ProductName: names[line.ProductID],
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				TotalPrice:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			items = append(items, item)
		}
		if err := s.repo.CreateItems(ctx, items); err != nil {
			return err
		}

		for _, item := range items {
			if _, err := s.stock.RecordSaleFIFO(ctx, item.ProductID, item.Quantity, inv.CreatedAt, inv.ID); err != nil {
				return err
			}
		}

		result = &InvoiceWithItems{Invoice: inv, Items: items}
		logger.Info(ctx, "invoice created",
			"invoice_id", inv.ID, "number", inv.Number, "total", inv.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, invoiceID id.ID) (*InvoiceWithItems, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ItemsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceWithItems{Invoice: inv, Items: items}, nil
}

// List returns invoices, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) (domain.ListResult[*Invoice], error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.repo.List(ctx, f)
}

// Delete archives a full snapshot, reverses the invoice's stock
// consumption exactly, then removes items and header. Atomic.
func (s *Service) Delete(ctx context.Context, invoiceID id.ID, deletedBy string) error {
	if deletedBy == "" {
		deletedBy = appctx.GetUsername(ctx)
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		items, err := s.repo.ItemsByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}

		if err := s.archive.ArchiveInvoice(ctx, &InvoiceWithItems{Invoice: inv, Items: items}, deletedBy); err != nil {
			return err
		}

		// Lines of the same product are reversed together: the engine
		// walks every sale ledger entry this invoice wrote for the
		// product, so the summed quantity replays each stored breakdown
		// exactly once.
		perProduct := make(map[id.ID]int, len(items))
		order := make([]id.ID, 0, len(items))
		for _, item := range items {
			if _, seen := perProduct[item.ProductID]; !seen {
				order = append(order, item.ProductID)
			}
			perProduct[item.ProductID] += item.Quantity
		}
		for _, productID := range order {
			if err := s.stock.RestoreStockFromInvoice(ctx, productID, perProduct[productID], invoiceID); err != nil {
				return err
			}
		}

		if err := s.repo.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
		if err := s.repo.DeleteInvoice(ctx, invoiceID); err != nil {
			return err
		}

		logger.Info(ctx, "invoice deleted",
			"invoice_id", invoiceID, "number", inv.Number, "deleted_by", deletedBy)
		return nil
	})
}

// UpdateMetadata changes the only mutable invoice fields. Line items
// and amounts are frozen at creation.
func (s *Service) UpdateMetadata(ctx context.Context, invoiceID id.ID, upd MetadataUpdate) (*Invoice, error) {
	var result *Invoice
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		if upd.CustomerID != nil {
			ok, err := s.customers.Exists(ctx, *upd.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewNotFound("customers", upd.CustomerID.String())
			}
			inv.CustomerID = upd.CustomerID
		}
		if upd.PaymentMethod != nil {
			inv.PaymentMethod = upd.PaymentMethod
		}
		if upd.CreatedAt != nil {
			inv.CreatedAt = upd.CreatedAt.UTC()
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.BaseEntity.Touch()
		if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
