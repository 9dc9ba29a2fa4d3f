package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/settings"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// SettingsHandler serves application settings.
type SettingsHandler struct {
	base    *BaseHandler
	service *settings.Service
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(base *BaseHandler, service *settings.Service) *SettingsHandler {
	return &SettingsHandler{base: base, service: service}
}

// Get handles GET /settings/:key.
func (h *SettingsHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.SettingResponse{Key: key, Value: value})
}

// Set handles PUT /settings/:key.
func (h *SettingsHandler) Set(c *gin.Context) {
	var req dto.SetSettingRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	key := c.Param("key")
	if err := h.service.Set(c.Request.Context(), key, req.Value); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.SettingResponse{Key: key, Value: req.Value})
}

// Delete handles DELETE /settings/:key.
func (h *SettingsHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("key")); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// GetAll handles GET /settings.
func (h *SettingsHandler) GetAll(c *gin.Context) {
	all, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, all)
}

// Export handles GET /settings/export, returning all settings as one
// JSON object.
func (h *SettingsHandler) Export(c *gin.Context) {
	raw, err := h.service.ExportJSON(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	c.Data(200, "application/json", []byte(raw))
}

// Import handles POST /settings/import.
func (h *SettingsHandler) Import(c *gin.Context) {
	var req dto.ImportSettingsRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	raw, err := json.Marshal(req.Settings)
	if err != nil {
		h.base.Error(c, apperror.NewValidation("invalid settings payload"))
		return
	}
	n, err := h.service.ImportJSON(c.Request.Context(), string(raw))
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.ImportSettingsResponse{Imported: n})
}
