package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// SupplierHandler serves the supplier catalog.
type SupplierHandler struct {
	base    *BaseHandler
	service *supplier.Service
}

// NewSupplierHandler creates a supplier handler.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service) *SupplierHandler {
	return &SupplierHandler{base: base, service: service}
}

// Create handles POST /suppliers.
func (h *SupplierHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	sup := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), sup); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, sup.ID.String())
}

// Get handles GET /suppliers/:id.
func (h *SupplierHandler) Get(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	sup, err := h.service.Get(c.Request.Context(), supplierID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, sup)
}

// List handles GET /suppliers.
func (h *SupplierHandler) List(c *gin.Context) {
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

// Update handles PUT /suppliers/:id.
func (h *SupplierHandler) Update(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSupplierRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	sup, err := h.service.Get(c.Request.Context(), supplierID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	req.ApplyTo(sup)
	if err := h.service.Update(c.Request.Context(), sup); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, sup)
}

// Delete handles DELETE /suppliers/:id.
func (h *SupplierHandler) Delete(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), supplierID, h.base.GetUsername(c)); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}
