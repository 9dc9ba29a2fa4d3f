package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/filter"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product catalog.
type ProductHandler struct {
	base    *BaseHandler
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{base: base, service: service}
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, p.ID.String())
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, p)
}

// GetBySKU handles GET /products/sku/:sku.
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	p, err := h.service.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, p)
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	f := domain.DefaultListFilter()
	f.Search = c.Query("search")
	f.Limit = h.base.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.base.ParseIntQuery(c, "offset", 0)
	if category := c.Query("category"); category != "" {
		f.AdvancedFilters = append(f.AdvancedFilters, filter.Item{
			Field: "category", Operator: filter.Equal, Value: category,
		})
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

// Update handles PUT /products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	req.ApplyTo(p)
	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, p)
}

// Delete handles DELETE /products/:id. The product is archived to the
// trash before removal.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), productID, h.base.GetUsername(c)); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// BySupplier handles GET /products/by-supplier/:id.
func (h *ProductHandler) BySupplier(c *gin.Context) {
	supplierID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	products, err := h.service.BySupplier(c.Request.Context(), supplierID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, products)
}

// LowStock handles GET /products/low-stock?threshold=N.
func (h *ProductHandler) LowStock(c *gin.Context) {
	threshold := h.base.ParseIntQuery(c, "threshold", 10)
	products, err := h.service.LowStock(c.Request.Context(), threshold)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, products)
}

// Categories handles GET /products/categories.
func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, categories)
}

// TopSelling handles GET /products/top-selling?limit=N.
func (h *ProductHandler) TopSelling(c *gin.Context) {
	limit := h.base.ParseIntQuery(c, "limit", 10)
	top, err := h.service.TopSelling(c.Request.Context(), limit)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, top)
}
