package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// CustomerHandler serves the customer catalog.
type CustomerHandler struct {
	base    *BaseHandler
	service *customer.Service
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return &CustomerHandler{base: base, service: service}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	cust := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), cust); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, cust.ID.String())
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	cust, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, cust)
}

// List handles GET /customers.
func (h *CustomerHandler) List(c *gin.Context) {
	f := domain.DefaultListFilter()
	f.Search = c.Query("search")
	f.Limit = h.base.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.base.ParseIntQuery(c, "offset", 0)

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

// Update handles PUT /customers/:id.
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCustomerRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	cust, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	req.ApplyTo(cust)
	if err := h.service.Update(c.Request.Context(), cust); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, cust)
}

// Delete handles DELETE /customers/:id. Invoices that reference the
// customer survive with the reference detached.
func (h *CustomerHandler) Delete(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), customerID, h.base.GetUsername(c)); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}
