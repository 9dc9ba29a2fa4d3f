package purchase

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/inventory"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

// SupplierChecker verifies supplier existence.
type SupplierChecker interface {
	Exists(ctx context.Context, supplierID id.ID) (bool, error)
}

// ProductChecker verifies product existence.
type ProductChecker interface {
	Exists(ctx context.Context, productID id.ID) (bool, error)
}

// StockReceiver books received lines into inventory.
// Satisfied by the inventory engine.
type StockReceiver interface {
	RecordPurchase(ctx context.Context, in inventory.PurchaseInput) (*inventory.Batch, error)
}

// Service provides business logic for purchase orders and supplier
// payments.
type Service struct {
	repo      Repository
	payments  PaymentRepository
	suppliers SupplierChecker
	products  ProductChecker
	stock     StockReceiver
	txm       tx.Manager
	numbers   *numerator.Service
}

// NewService creates a new purchase service.
func NewService(
	repo Repository,
	payments PaymentRepository,
	suppliers SupplierChecker,
	products ProductChecker,
	stock StockReceiver,
	txm tx.Manager,
	numbers *numerator.Service,
) *Service {
	return &Service{
		repo:      repo,
		payments:  payments,
		suppliers: suppliers,
		products:  products,
		stock:     stock,
		txm:       txm,
		numbers:   numbers,
	}
}

// CreateInput describes a new purchase order.
type CreateInput struct {
	SupplierID   id.ID
	Number       string // optional; generated when empty
	OrderDate    time.Time
	ExpectedDate *time.Time
	Notes        *string
	Items        []CreateItem
}

// CreateItem is one requested line.
type CreateItem struct {
	ProductID id.ID
	Quantity  int
	UnitCost  types.Money
}

// Create validates and stores a draft purchase order with its lines.
func (s *Service) Create(ctx context.Context, in CreateInput) (*OrderWithItems, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("purchase order needs at least one item")
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = time.Now().UTC()
	}

	var result *OrderWithItems
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.suppliers.Exists(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFound("suppliers", in.SupplierID.String())
		}

		order := &Order{
			BaseDocument: entity.NewBaseDocument(),
			Number:       strings.TrimSpace(in.Number),
			SupplierID:   in.SupplierID,
			Status:       StatusDraft,
			OrderDate:    in.OrderDate,
			ExpectedDate: in.ExpectedDate,
			Notes:        in.Notes,
			TotalAmount:  types.Zero(),
		}
		order.CreatedBy = appctx.GetUsername(ctx)

		items := make([]*Item, 0, len(in.Items))
		for _, line := range in.Items {
			item := &Item{
				ID:        id.New(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitCost:  line.UnitCost,
				TotalCost: line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if err := item.Validate(ctx); err != nil {
				return err
			}
			ok, err := s.products.Exists(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.NewNotFound("products", line.ProductID.String())
			}
			order.TotalAmount = order.TotalAmount.Add(item.TotalCost)
			items = append(items, item)
		}

		if order.Number == "" {
			floor, err := s.repo.MaxOrderNumber(ctx)
			if err != nil {
				return err
			}
			next, err := s.numbers.NextAtLeast(ctx, NumberPrefix, floor)
			if err != nil {
				return err
			}
			order.Number = numerator.Format(NumberPrefix, next)
		}

		if err := order.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := s.repo.CreateItems(ctx, items); err != nil {
			return err
		}

		result = &OrderWithItems{Order: order, Items: items}
		logger.Info(ctx, "purchase order created",
			"po_id", order.ID, "number", order.Number, "total", order.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*OrderWithItems, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderWithItems{Order: order, Items: items}, nil
}

// List returns order summaries.
func (s *Service) List(ctx context.Context, f ListFilter) (domain.ListResult[*OrderSummary], error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.repo.List(ctx, f)
}

// Receive moves a draft order to received and books one inventory batch
// per line, atomically. A non-draft order is a Conflict.
func (s *Service) Receive(ctx context.Context, orderID id.ID, receivedDate time.Time) (*OrderWithItems, error) {
	if receivedDate.IsZero() {
		receivedDate = time.Now().UTC()
	}

	var result *OrderWithItems
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(StatusReceived) {
			return apperror.NewConflict("purchase order cannot be received").
				WithDetail("po_id", orderID.String()).
				WithDetail("status", string(order.Status))
		}

		items, err := s.repo.ItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range items {
			itemID := item.ID
			orderRef := order.ID
			if _, err := s.stock.RecordPurchase(ctx, inventory.PurchaseInput{
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				UnitCost:     item.UnitCost,
				ReceivedDate: receivedDate,
				POItemID:     &itemID,
				ReferenceID:  &orderRef,
			}); err != nil {
				return err
			}
		}

		order.Status = StatusReceived
		order.ReceivedDate = &receivedDate
		order.Touch()
		if err := s.repo.UpdateStatus(ctx, order); err != nil {
			return err
		}

		result = &OrderWithItems{Order: order, Items: items}
		logger.Info(ctx, "purchase order received",
			"po_id", orderID, "number", order.Number, "items", len(items))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel moves a draft order to cancelled. Stock is never touched.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(StatusCancelled) {
			return apperror.NewConflict("purchase order cannot be cancelled").
				WithDetail("po_id", orderID.String()).
				WithDetail("status", string(order.Status))
		}
		order.Status = StatusCancelled
		order.Touch()
		return s.repo.UpdateStatus(ctx, order)
	})
}

// Delete removes a draft or cancelled order with its lines. Received
// orders are part of stock history and cannot be deleted.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == StatusReceived {
			return apperror.NewConflict("received purchase orders cannot be deleted").
				WithDetail("po_id", orderID.String())
		}
		if err := s.repo.DeleteItems(ctx, orderID); err != nil {
			return err
		}
		return s.repo.DeleteOrder(ctx, orderID)
	})
}

// --- Supplier payments ---

// AddPayment records a payment to a supplier. When pinned to an order
// the order must belong to that supplier; overpaying is allowed and
// shows as a negative balance in summaries.
func (s *Service) AddPayment(ctx context.Context, p *Payment) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if p.ID == id.Nil() {
		p.ID = id.New()
	}
	p.CreatedAt = time.Now().UTC()

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.suppliers.Exists(ctx, p.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFound("suppliers", p.SupplierID.String())
		}

		if p.OrderID != nil {
			order, err := s.repo.GetOrder(ctx, *p.OrderID)
			if err != nil {
				return err
			}
			if order.SupplierID != p.SupplierID {
				return apperror.NewOwnership("purchase order does not belong to this supplier").
					WithDetail("po_id", p.OrderID.String()).
					WithDetail("supplier_id", p.SupplierID.String())
			}
		}

		if err := s.payments.CreatePayment(ctx, p); err != nil {
			return err
		}
		logger.Info(ctx, "supplier payment recorded",
			"supplier_id", p.SupplierID, "amount", p.Amount)
		return nil
	})
}

// DeletePayment removes a supplier payment.
func (s *Service) DeletePayment(ctx context.Context, paymentID id.ID) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.payments.GetPayment(ctx, paymentID); err != nil {
			return err
		}
		return s.payments.DeletePayment(ctx, paymentID)
	})
}

// PaymentsBySupplier lists a supplier's payments, newest first.
func (s *Service) PaymentsBySupplier(ctx context.Context, supplierID id.ID) ([]*Payment, error) {
	return s.payments.PaymentsBySupplier(ctx, supplierID)
}

// PaymentsByOrder lists payments pinned to an order.
func (s *Service) PaymentsByOrder(ctx context.Context, orderID id.ID) ([]*Payment, error) {
	return s.payments.PaymentsByOrder(ctx, orderID)
}

// PaymentSummaries aggregates ordered vs paid per supplier.
func (s *Service) PaymentSummaries(ctx context.Context) ([]*PaymentSummary, error) {
	return s.payments.Summaries(ctx)
}

// PaymentSummary aggregates one supplier's ordered vs paid totals.
func (s *Service) PaymentSummary(ctx context.Context, supplierID id.ID) (*PaymentSummary, error) {
	return s.payments.SummaryBySupplier(ctx, supplierID)
}
