// Package auth provides authentication and user management.
package auth

import (
	"context"
	"strings"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
)

// Roles. Admin bypasses all permission checks.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User represents a system user. Usernames compare case-insensitively.
type User struct {
	ID                 id.ID      `db:"id" json:"id"`
	Username           string     `db:"username" json:"username"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               string     `db:"role" json:"role"`
	Permissions        []string   `db:"permissions" json:"permissions"`
	BiometricEnabled   bool       `db:"biometric_enabled" json:"biometricEnabled"`
	BiometricTokenHash *string    `db:"biometric_token_hash" json:"-"`
	LastLoginAt        *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
	Version            int        `db:"version" json:"version"`
}

// NewUser creates a new user with the cashier role.
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Role:         RoleCashier,
		Permissions:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// Validate implements entity.Validatable interface.
func (u *User) Validate(ctx context.Context) error {
	if strings.TrimSpace(u.Username) == "" {
		return apperror.NewValidation("username is required").
			WithDetail("field", "username")
	}
	switch u.Role {
	case RoleAdmin, RoleCashier:
	default:
		return apperror.NewValidation("invalid role").
			WithDetail("field", "role").
			WithDetail("value", u.Role)
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPermission checks a named permission; admins have all of them.
func (u *User) HasPermission(code string) bool {
	if u.IsAdmin() {
		return true
	}
	for _, p := range u.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// RecordLogin stamps the last successful login.
func (u *User) RecordLogin() {
	now := time.Now().UTC()
	u.LastLoginAt = &now
}

// Credentials for password login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is a successful authentication result.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	TokenType string    `json:"tokenType"`
}

// BiometricStatus reports a user's biometric enrolment.
type BiometricStatus struct {
	UserID   id.ID  `json:"userId"`
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}
