package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/archive"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// TrashHandler serves the deleted-records trash.
type TrashHandler struct {
	base    *BaseHandler
	service *archive.Service
}

// NewTrashHandler creates a trash handler.
func NewTrashHandler(base *BaseHandler, service *archive.Service) *TrashHandler {
	return &TrashHandler{base: base, service: service}
}

// List handles GET /trash with an optional type query parameter.
func (h *TrashHandler) List(c *gin.Context) {
	limit := h.base.ParseIntQuery(c, "limit", 50)
	offset := h.base.ParseIntQuery(c, "offset", 0)
	records, total, err := h.service.ListDeleted(c.Request.Context(), c.Query("type"), limit, offset)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.ListResponse{
		Items:      records,
		TotalCount: int64(total),
		Limit:      limit,
		Offset:     offset,
	})
}

// Restore handles POST /trash/:id/restore. Only products, suppliers,
// and customers can be restored.
func (h *TrashHandler) Restore(c *gin.Context) {
	tombstoneID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	restored, err := h.service.Restore(c.Request.Context(), tombstoneID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, restored)
}

// Delete handles DELETE /trash/:id, removing one record for good.
func (h *TrashHandler) Delete(c *gin.Context) {
	tombstoneID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.PermanentlyDelete(c.Request.Context(), tombstoneID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// Clear handles DELETE /trash, emptying the whole trash.
func (h *TrashHandler) Clear(c *gin.Context) {
	n, err := h.service.ClearTrash(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.CountResponse{Count: n})
}
