package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/purchase"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler serves purchase orders and supplier payments.
type PurchaseHandler struct {
	base    *BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a purchase handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{base: base, service: service}
}

// Create handles POST /purchase-orders.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	order, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, order)
}

// Get handles GET /purchase-orders/:id.
func (h *PurchaseHandler) Get(c *gin.Context) {
	orderID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, order)
}

// List handles GET /purchase-orders.
func (h *PurchaseHandler) List(c *gin.Context) {
	f := purchase.ListFilter{
		Search: c.Query("search"),
		Limit:  h.base.ParseIntQuery(c, "limit", 50),
		Offset: h.base.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("supplierId"); raw != "" {
		supplierID, err := id.Parse(raw)
		if err != nil {
			h.base.Error(c, apperror.NewValidation("invalid supplier id"))
			return
		}
		f.SupplierID = &supplierID
	}
	if raw := c.Query("status"); raw != "" {
		status := purchase.Status(raw)
		f.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Receive handles POST /purchase-orders/:id/receive. Receiving books
// every line into stock and is not repeatable.
func (h *PurchaseHandler) Receive(c *gin.Context) {
	orderID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiveOrderRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	receivedDate := time.Now().UTC()
	if req.ReceivedDate != nil {
		receivedDate = *req.ReceivedDate
	}
	order, err := h.service.Receive(c.Request.Context(), orderID, receivedDate)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, order)
}

// Cancel handles POST /purchase-orders/:id/cancel.
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	orderID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), orderID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Success(c, "purchase order cancelled")
}

// Delete handles DELETE /purchase-orders/:id. Only draft and cancelled
// orders can be deleted.
func (h *PurchaseHandler) Delete(c *gin.Context) {
	orderID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), orderID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// AddPayment handles POST /supplier-payments. Overpayment is allowed.
func (h *PurchaseHandler) AddPayment(c *gin.Context) {
	var req dto.CreateSupplierPaymentRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.service.AddPayment(c.Request.Context(), p); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, p.ID.String())
}

// DeletePayment handles DELETE /supplier-payments/:id.
func (h *PurchaseHandler) DeletePayment(c *gin.Context) {
	paymentID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePayment(c.Request.Context(), paymentID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// PaymentsBySupplier handles GET /supplier-payments/by-supplier/:id.
func (h *PurchaseHandler) PaymentsBySupplier(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	payments, err := h.service.PaymentsBySupplier(c.Request.Context(), supplierID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, payments)
}

// PaymentsByOrder handles GET /supplier-payments/by-order/:id.
func (h *PurchaseHandler) PaymentsByOrder(c *gin.Context) {
	orderID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	payments, err := h.service.PaymentsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, payments)
}

// PaymentSummaries handles GET /supplier-payments/summary.
func (h *PurchaseHandler) PaymentSummaries(c *gin.Context) {
	summaries, err := h.service.PaymentSummaries(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, summaries)
}

// PaymentSummary handles GET /supplier-payments/summary/:id.
func (h *PurchaseHandler) PaymentSummary(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.PaymentSummary(c.Request.Context(), supplierID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, summary)
}
