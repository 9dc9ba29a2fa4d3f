package auth

import (
	"context"

	"stockbook/internal/core/id"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByUsername retrieves user by username, case-insensitively.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update updates user data with optimistic locking.
	Update(ctx context.Context, user *User) error

	// Delete removes a user row. Archiving happens in the service.
	Delete(ctx context.Context, userID id.ID) error

	// List retrieves users with filtering.
	List(ctx context.Context, filter UserFilter) ([]*User, int, error)

	// Exists checks if a username is taken, case-insensitively.
	Exists(ctx context.Context, username string) (bool, error)

	// FindByBiometricHash looks a user up by stored token hash.
	FindByBiometricHash(ctx context.Context, tokenHash string) (*User, error)

	// CountBiometricEnrollments counts users with biometric enabled.
	CountBiometricEnrollments(ctx context.Context) (int, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int, error)
}

// UserFilter for listing users.
type UserFilter struct {
	Search string
	Role   string
	Limit  int
	Offset int
}
