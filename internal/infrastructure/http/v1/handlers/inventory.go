package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/inventory"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// InventoryHandler serves stock batches, the movement ledger, and
// manual stock operations.
type InventoryHandler struct {
	base   *BaseHandler
	engine *inventory.Engine
}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler(base *BaseHandler, engine *inventory.Engine) *InventoryHandler {
	return &InventoryHandler{base: base, engine: engine}
}

// Receive handles POST /inventory/receive, a stock receipt outside a
// purchase order.
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	batch, err := h.engine.RecordPurchase(c.Request.Context(), req.ToInput())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, batch)
}

// Adjust handles POST /inventory/adjust, a signed manual correction.
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	err := h.engine.RecordAdjustment(c.Request.Context(), req.ProductID, req.Delta, req.Reason, occurredAt)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Success(c, "stock adjusted")
}

// Batches handles GET /inventory/batches/:productId.
func (h *InventoryHandler) Batches(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "productId")
	if !ok {
		return
	}
	batches, err := h.engine.Batches(c.Request.Context(), productID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, batches)
}

// Transactions handles GET /inventory/transactions/:productId.
func (h *InventoryHandler) Transactions(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "productId")
	if !ok {
		return
	}
	limit := h.base.ParseIntQuery(c, "limit", 100)
	txs, err := h.engine.Transactions(c.Request.Context(), productID, limit)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, txs)
}

// Valuation handles GET /inventory/valuation with an optional
// productId query parameter.
func (h *InventoryHandler) Valuation(c *gin.Context) {
	var productID *id.ID
	if raw := c.Query("productId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.base.Error(c, apperror.NewValidation("invalid product id"))
			return
		}
		productID = &parsed
	}
	v, err := h.engine.Valuation(c.Request.Context(), productID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, v)
}

// PurchaseHistory handles GET /inventory/purchases/:productId with
// optional from/to query bounds (RFC 3339).
func (h *InventoryHandler) PurchaseHistory(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "productId")
	if !ok {
		return
	}
	from, ok := h.parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.parseTimeQuery(c, "to")
	if !ok {
		return
	}
	txs, err := h.engine.PurchaseHistory(c.Request.Context(), productID, from, to)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, txs)
}

// CheckConsistency handles GET /inventory/consistency/:productId. It
// compares the cached stock counter, open batch remainders, and the
// ledger sum.
func (h *InventoryHandler) CheckConsistency(c *gin.Context) {
	productID, ok := h.base.ParseID(c, "productId")
	if !ok {
		return
	}
	report, err := h.engine.CheckConsistency(c.Request.Context(), productID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, report)
}

func (h *InventoryHandler) parseTimeQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.base.Error(c, apperror.NewValidation("invalid time").WithDetail("param", key))
		return time.Time{}, false
	}
	return t, true
}
