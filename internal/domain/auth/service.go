package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	PasswordMinLength int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		PasswordMinLength: 6,
	}
}

// Archiver snapshots deleted users into the trash.
type Archiver interface {
	ArchiveUser(ctx context.Context, user *User, deletedBy string) error
}

// Service provides authentication and user management.
type Service struct {
	users      UserRepository
	archive    Archiver
	txManager  tx.Manager
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates a new auth service.
func NewService(
	users UserRepository,
	archive Archiver,
	txManager tx.Manager,
	jwtService *JWTService,
	config ServiceConfig,
) *Service {
	return &Service{
		users:      users,
		archive:    archive,
		txManager:  txManager,
		jwtService: jwtService,
		config:     config,
	}
}

// Login authenticates by username and password. Usernames compare
// case-insensitively; a wrong username and a wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user logged in",
		"user_id", user.ID,
		"username", user.Username)
	return session, nil
}

// CreateUser registers a new user.
func (s *Service) CreateUser(ctx context.Context, username, password, role string, permissions []string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if len(password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.users.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username exists: %w", err)
	}
	if exists {
		return nil, apperror.NewDuplicate("users", "username", username)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(username, string(passwordHash))
	if role != "" {
		user.Role = role
	}
	if permissions != nil {
		user.Permissions = permissions
	}
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "user created",
		"user_id", user.ID,
		"username", user.Username,
		"role", user.Role)
	return user, nil
}

// UpdateUser changes role, permissions and optionally the password.
func (s *Service) UpdateUser(ctx context.Context, userID id.ID, role string, permissions []string, newPassword string) (*User, error) {
	var result *User
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if role != "" {
			user.Role = role
		}
		if permissions != nil {
			user.Permissions = permissions
		}
		if newPassword != "" {
			if len(newPassword) < s.config.PasswordMinLength {
				return apperror.NewValidation(
					fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
				).WithDetail("field", "password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = string(hash)
		}
		if err := user.Validate(ctx); err != nil {
			return err
		}

		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteUser archives the user to the trash, then removes the row. The
// last admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, userID id.ID) error {
	deletedBy := appctx.GetUsername(ctx)
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if user.IsAdmin() {
			admins, _, err := s.users.List(ctx, UserFilter{Role: RoleAdmin, Limit: 2})
			if err != nil {
				return err
			}
			if len(admins) <= 1 {
				return apperror.NewConflict("cannot delete the last admin user")
			}
		}

		if err := s.archive.ArchiveUser(ctx, user, deletedBy); err != nil {
			return err
		}
		if err := s.users.Delete(ctx, userID); err != nil {
			return err
		}

		logger.Info(ctx, "user deleted",
			"user_id", userID,
			"username", user.Username,
			"deleted_by", deletedBy)
		return nil
	})
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID id.ID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers lists users with filtering.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.users.List(ctx, filter)
}

// --- Biometric ---

// GenerateBiometricToken issues a fresh raw token for the user and
// stores only its hash. The raw token is returned exactly once; a new
// call replaces any previous enrolment.
func (s *Service) GenerateBiometricToken(ctx context.Context, userID id.ID) (string, error) {
	raw := uuid.NewString()
	hash := hashToken(raw)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.BiometricEnabled = true
		user.BiometricTokenHash = &hash
		return s.users.Update(ctx, user)
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "biometric token issued", "user_id", userID)
	return raw, nil
}

// VerifyBiometricToken authenticates by raw biometric token and opens a
// session.
func (s *Service) VerifyBiometricToken(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, apperror.NewUnauthorized("invalid biometric token")
	}

	user, err := s.users.FindByBiometricHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid biometric token")
	}
	if !user.BiometricEnabled {
		return nil, apperror.NewUnauthorized("biometric login is disabled")
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "biometric login",
		"user_id", user.ID,
		"username", user.Username)
	return session, nil
}

// DisableBiometric clears the user's enrolment.
func (s *Service) DisableBiometric(ctx context.Context, userID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user.BiometricEnabled = false
		user.BiometricTokenHash = nil
		return s.users.Update(ctx, user)
	})
}

// BiometricStatusByID reports a user's enrolment by ID.
func (s *Service) BiometricStatusByID(ctx context.Context, userID id.ID) (*BiometricStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BiometricStatus{UserID: user.ID, Username: user.Username, Enabled: user.BiometricEnabled}, nil
}

// BiometricStatusByUsername reports a user's enrolment by username.
func (s *Service) BiometricStatusByUsername(ctx context.Context, username string) (*BiometricStatus, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &BiometricStatus{UserID: user.ID, Username: user.Username, Enabled: user.BiometricEnabled}, nil
}

// HasAnyEnrollment reports whether any user has biometric enabled.
// Lets the login screen decide whether to show the biometric prompt.
func (s *Service) HasAnyEnrollment(ctx context.Context) (bool, error) {
	n, err := s.users.CountBiometricEnrollments(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) startSession(ctx context.Context, user *User) (*Session, error) {
	token, expiresAt, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	user.RecordLogin()
	if err := s.users.Update(ctx, user); err != nil {
		logger.Warn(ctx, "record login failed", "user_id", user.ID, "error", err)
	}

	return &Session{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
		TokenType: "Bearer",
	}, nil
}

// hashToken creates SHA256 hash of a token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
