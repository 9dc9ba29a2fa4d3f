package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/invoice"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler serves invoices.
type InvoiceHandler struct {
	base    *BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates an invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{base: base, service: service}
}

// Create handles POST /invoices. Header, lines, and FIFO stock
// consumption commit together or not at all.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	inv, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, inv)
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.service.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, inv)
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	f := invoice.ListFilter{
		Search: c.Query("search"),
		Limit:  h.base.ParseIntQuery(c, "limit", 50),
		Offset: h.base.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("customerId"); raw != "" {
		customerID, err := id.Parse(raw)
		if err != nil {
			h.base.Error(c, apperror.NewValidation("invalid customer id"))
			return
		}
		f.CustomerID = &customerID
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

// Update handles PUT /invoices/:id. Only metadata can change; amounts
// and items are immutable after creation.
func (h *InvoiceHandler) Update(c *gin.Context) {
	invoiceID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	inv, err := h.service.UpdateMetadata(c.Request.Context(), invoiceID, req.ToUpdate())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, inv)
}

// Delete handles DELETE /invoices/:id. The invoice is archived to the
// trash first, then consumed stock is returned to its original
// batches.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), invoiceID, h.base.GetUsername(c)); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}
