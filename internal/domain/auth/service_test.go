package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[id.ID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[id.ID]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("users", userID.String())
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("users", username)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *User) error {
	if _, ok := r.users[user.ID]; !ok {
		return apperror.NewNotFound("users", user.ID.String())
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, userID id.ID) error {
	delete(r.users, userID)
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter UserFilter) ([]*User, int, error) {
	var out []*User
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) FindByBiometricHash(ctx context.Context, tokenHash string) (*User, error) {
	for _, u := range r.users {
		if u.BiometricTokenHash != nil && *u.BiometricTokenHash == tokenHash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("users", "biometric")
}

func (r *fakeUserRepo) CountBiometricEnrollments(ctx context.Context) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.BiometricEnabled {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	return len(r.users), nil
}

type fakeArchive struct {
	archived []*User
}

func (a *fakeArchive) ArchiveUser(ctx context.Context, user *User, deletedBy string) error {
	a.archived = append(a.archived, user)
	return nil
}

// --- harness ---

func newService(t *testing.T) (*Service, *fakeUserRepo, *fakeArchive) {
	t.Helper()
	repo := newFakeUserRepo()
	archive := &fakeArchive{}
	svc := NewService(repo, archive, fakeTxManager{},
		NewJWTService(DefaultJWTConfig("test-secret")), DefaultServiceConfig())
	return svc, repo, archive
}

func mustCreate(t *testing.T, svc *Service, username, password, role string) *User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), username, password, role, nil)
	require.NoError(t, err)
	return u
}

// --- tests ---

func TestLogin_CaseInsensitiveUsername(t *testing.T) {
	svc, _, _ := newService(t)
	mustCreate(t, svc, "Alice", "secret123", RoleAdmin)

	session, err := svc.Login(context.Background(), Credentials{Username: "aLiCe", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, "Alice", session.User.Username)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.NotNil(t, session.User.LastLoginAt)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newService(t)
	mustCreate(t, svc, "alice", "secret123", RoleAdmin)
	ctx := context.Background()

	_, err := svc.Login(ctx, Credentials{Username: "alice", Password: "nope"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)

	// Unknown user reads the same as a wrong password.
	_, err2 := svc.Login(ctx, Credentials{Username: "bob", Password: "secret123"})
	appErr2, _ := apperror.AsAppError(err2)
	assert.Equal(t, appErr.Message, appErr2.Message)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, _, _ := newService(t)
	u, err := svc.CreateUser(context.Background(), "carol", "secret123", RoleCashier,
		[]string{"products.read", "invoices.write"})
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), Credentials{Username: "carol", Password: "secret123"})
	require.NoError(t, err)

	uc, err := NewJWTService(DefaultJWTConfig("test-secret")).ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), uc.UserID)
	assert.Equal(t, RoleCashier, uc.Role)
	assert.Contains(t, uc.Permissions, "invoices.write")

	_, err = NewJWTService(DefaultJWTConfig("other-secret")).ValidateToken(session.Token)
	assert.Error(t, err)
}

func TestCreateUser_DuplicateUsernameAnyCase(t *testing.T) {
	svc, _, _ := newService(t)
	mustCreate(t, svc, "alice", "secret123", RoleCashier)

	_, err := svc.CreateUser(context.Background(), "ALICE", "secret123", RoleCashier, nil)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestCreateUser_ShortPassword(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.CreateUser(context.Background(), "alice", "123", RoleCashier, nil)

	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestDeleteUser_ArchivesAndGuardsLastAdmin(t *testing.T) {
	svc, repo, archive := newService(t)
	ctx := context.Background()
	admin := mustCreate(t, svc, "admin", "secret123", RoleAdmin)
	cashier := mustCreate(t, svc, "bob", "secret123", RoleCashier)

	err := svc.DeleteUser(ctx, admin.ID)
	assert.True(t, apperror.IsConflict(err), "last admin must survive")

	require.NoError(t, svc.DeleteUser(ctx, cashier.ID))
	require.Len(t, archive.archived, 1)
	assert.Equal(t, "bob", archive.archived[0].Username)
	_, err = repo.GetByID(ctx, cashier.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestBiometric_EnrollVerifyDisable(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	u := mustCreate(t, svc, "alice", "secret123", RoleCashier)

	enrolled, err := svc.HasAnyEnrollment(ctx)
	require.NoError(t, err)
	assert.False(t, enrolled)

	raw, err := svc.GenerateBiometricToken(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.BiometricEnabled)
	require.NotNil(t, stored.BiometricTokenHash)
	assert.NotEqual(t, raw, *stored.BiometricTokenHash, "only the hash is stored")

	session, err := svc.VerifyBiometricToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)

	enrolled, err = svc.HasAnyEnrollment(ctx)
	require.NoError(t, err)
	assert.True(t, enrolled)

	require.NoError(t, svc.DisableBiometric(ctx, u.ID))
	_, err = svc.VerifyBiometricToken(ctx, raw)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestBiometric_ReenrollReplacesToken(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	u := mustCreate(t, svc, "alice", "secret123", RoleCashier)

	first, err := svc.GenerateBiometricToken(ctx, u.ID)
	require.NoError(t, err)
	second, err := svc.GenerateBiometricToken(ctx, u.ID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = svc.VerifyBiometricToken(ctx, first)
	assert.Error(t, err, "old token must stop working")

	_, err = svc.VerifyBiometricToken(ctx, second)
	assert.NoError(t, err)
}

func TestBiometricStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	u := mustCreate(t, svc, "alice", "secret123", RoleCashier)

	status, err := svc.BiometricStatusByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.False(t, status.Enabled)

	_, err = svc.GenerateBiometricToken(ctx, u.ID)
	require.NoError(t, err)

	status, err = svc.BiometricStatusByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
}
