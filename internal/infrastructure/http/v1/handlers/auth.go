// Package handlers provides HTTP request handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/auth"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// AuthHandler serves authentication and user management.
type AuthHandler struct {
	base    *BaseHandler
	service *auth.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{base: base, service: service}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	session, err := h.service.Login(c.Request.Context(), auth.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, session)
}

// BiometricLogin handles POST /auth/biometric/login.
func (h *AuthHandler) BiometricLogin(c *gin.Context) {
	var req dto.BiometricLoginRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	session, err := h.service.VerifyBiometricToken(c.Request.Context(), req.Token)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, session)
}

// BiometricEnroll handles POST /auth/biometric/enroll. The raw token
// is returned exactly once; only its hash is stored.
func (h *AuthHandler) BiometricEnroll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	token, err := h.service.GenerateBiometricToken(c.Request.Context(), userID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.BiometricEnrollResponse{Token: token})
}

// BiometricDisable handles DELETE /auth/biometric.
func (h *AuthHandler) BiometricDisable(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.service.DisableBiometric(c.Request.Context(), userID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Success(c, "biometric disabled")
}

// BiometricStatus handles GET /auth/biometric/status?username=NAME.
// Without a username it reports the caller's own enrolment.
func (h *AuthHandler) BiometricStatus(c *gin.Context) {
	ctx := c.Request.Context()
	if username := c.Query("username"); username != "" {
		status, err := h.service.BiometricStatusByUsername(ctx, username)
		if err != nil {
			h.base.Error(c, err)
			return
		}
		h.base.OK(c, status)
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	status, err := h.service.BiometricStatusByID(ctx, userID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, status)
}

// BiometricAvailable handles GET /auth/biometric/available. Login
// screens use it to decide whether to offer the biometric option.
func (h *AuthHandler) BiometricAvailable(c *gin.Context) {
	available, err := h.service.HasAnyEnrollment(c.Request.Context())
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, gin.H{"available": available})
}

// CreateUser handles POST /users.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	user, err := h.service.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role, req.Permissions)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, user.ID.String())
}

// GetUser handles GET /users/:id.
func (h *AuthHandler) GetUser(c *gin.Context) {
	userID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, user)
}

// ListUsers handles GET /users.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	f := auth.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Limit:  h.base.ParseIntQuery(c, "limit", 50),
		Offset: h.base.ParseIntQuery(c, "offset", 0),
	}
	users, total, err := h.service.ListUsers(c.Request.Context(), f)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, dto.ListResponse{
		Items:      users,
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}

// UpdateUser handles PUT /users/:id.
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	userID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	user, err := h.service.UpdateUser(c.Request.Context(), userID, req.Role, req.Permissions, req.Password)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, user)
}

// DeleteUser handles DELETE /users/:id. The last admin cannot be
// deleted.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	userID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

func (h *AuthHandler) currentUserID(c *gin.Context) (id.ID, bool) {
	raw := h.base.GetUserID(c)
	userID, err := id.Parse(raw)
	if err != nil {
		h.base.Error(c, apperror.NewUnauthorized("not authenticated"))
		return id.Nil(), false
	}
	return userID, true
}
