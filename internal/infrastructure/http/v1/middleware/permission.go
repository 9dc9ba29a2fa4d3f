// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/security"
)

// Require evaluates a CEL guard expression against the authenticated
// user's role and permissions. Expressions compile once and are cached
// by the guard, so per-request cost is a map lookup plus evaluation.
func Require(guard *security.Guard, expr string) gin.HandlerFunc {
	// Surface typos at route registration, not on first request.
	if err := guard.Compile(expr); err != nil {
		panic(err)
	}

	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		allowed, err := guard.Allow(expr, user.Role, user.Permissions)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !allowed {
			_ = c.Error(
				apperror.NewForbidden("insufficient permissions").
					WithDetail("required", expr),
			)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequirePermission guards a route with a single named permission.
// Admins pass unconditionally.
func RequirePermission(guard *security.Guard, permission string) gin.HandlerFunc {
	return Require(guard, security.RequireExpr(permission))
}
