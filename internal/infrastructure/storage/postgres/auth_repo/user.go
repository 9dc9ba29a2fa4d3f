// Package auth_repo provides PostgreSQL persistence for user accounts.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/auth"
	"stockbook/internal/infrastructure/storage/postgres"
)

const userCols = `id, username, password_hash, role, permissions,
	   biometric_enabled, biometric_token_hash, last_login_at,
	   created_at, updated_at, version`

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txm *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{txm: txm}
}

func (r *UserRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role,
		&user.Permissions, &user.BiometricEnabled, &user.BiometricTokenHash,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt, &user.Version,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO users (
			id, username, password_hash, role, permissions,
			biometric_enabled, biometric_token_hash, last_login_at,
			created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier(ctx).Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Role,
		user.Permissions, user.BiometricEnabled, user.BiometricTokenHash,
		user.LastLoginAt, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE id = $1`

	user, err := scanUser(r.querier(ctx).QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves user by username, case-insensitively.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE LOWER(username) = LOWER($1)`

	user, err := scanUser(r.querier(ctx).QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// Update updates user data with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	query := `
		UPDATE users SET
			password_hash = $2,
			role = $3,
			permissions = $4,
			biometric_enabled = $5,
			biometric_token_hash = $6,
			last_login_at = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $9
	`

	result, err := r.querier(ctx).Exec(ctx, query,
		user.ID, user.PasswordHash, user.Role, user.Permissions,
		user.BiometricEnabled, user.BiometricTokenHash, user.LastLoginAt,
		user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("user was modified concurrently").
			WithDetail("id", user.ID.String())
	}
	user.Version++
	return nil
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, userID id.ID) error {
	result, err := r.querier(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}
	return nil
}

// List retrieves users with filtering, ordered by username.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]*auth.User, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND username ILIKE $%d", len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users` + where
	if err := r.querier(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userCols + ` FROM users` + where + ` ORDER BY username ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

// Exists checks if a username is taken, case-insensitively.
func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// FindByBiometricHash looks a user up by stored token hash.
func (r *UserRepo) FindByBiometricHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	query := `SELECT ` + userCols + ` FROM users WHERE biometric_token_hash = $1`

	user, err := scanUser(r.querier(ctx).QueryRow(ctx, query, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", "biometric token")
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// CountBiometricEnrollments counts users with biometric enabled.
func (r *UserRepo) CountBiometricEnrollments(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE biometric_enabled`
	if err := r.querier(ctx).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.querier(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
