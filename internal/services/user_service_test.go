package services

import (
	"context"
	"testing"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserServiceForTest() (UserService, *MockProfileRepository) {
	repo := new(MockProfileRepository)
	auth := NewAuthService(repo, new(MockCacheService), nil, testSecret, 60, 60)
	return NewUserService(repo, NewRBACService(repo), auth), repo
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	admin, target := uuid.New(), uuid.New()

	t.Run("admin promotes cashier", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.On("GetRole", ctx, admin).Return(models.RoleAdmin, nil)
		repo.On("GetByID", ctx, target).Return(&models.Profile{ID: target, Role: models.RoleCashier}, nil)
		repo.On("UpdateRole", ctx, target, models.RoleManager).Return(nil)

		profile, err := svc.UpdateRole(ctx, admin, target, models.RoleManager)
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, profile.Role)
		repo.AssertExpectations(t)
	})

	t.Run("unchanged role writes nothing", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.On("GetRole", ctx, admin).Return(models.RoleAdmin, nil)
		repo.On("GetByID", ctx, target).Return(&models.Profile{ID: target, Role: models.RoleManager}, nil)

		_, err := svc.UpdateRole(ctx, admin, target, models.RoleManager)
		require.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("manager is refused", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.On("GetRole", ctx, admin).Return(models.RoleManager, nil)

		_, err := svc.UpdateRole(ctx, admin, target, models.RoleAdmin)
		assert.True(t, errors.Is(err, common.ErrAuthorization))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		_, err := svc.UpdateRole(ctx, admin, target, models.Role("owner"))
		assert.True(t, errors.Is(err, common.ErrValidation))
		repo.AssertNotCalled(t, "GetRole", mock.Anything, mock.Anything)
	})
}

func TestListUsersSanitizesQuery(t *testing.T) {
	ctx := context.Background()
	svc, repo := newUserServiceForTest()
	repo.On("List", ctx, mock.MatchedBy(func(f *models.ProfileFilter) bool {
		return f.Query == "gm%ail" && f.Role == models.RoleCashier
	})).Return(nil, nil)

	users, err := svc.ListUsers(ctx, &models.ProfileFilter{Query: " gm%ail ", Role: models.RoleCashier})
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	_, err = svc.ListUsers(ctx, &models.ProfileFilter{Role: "owner"})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing account", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.On("GetByEmail", ctx, "admin@gmail.com").Return(nil, common.ErrNotFound)
		repo.On("Create", ctx, mock.MatchedBy(func(p *models.Profile) bool {
			return p.Role == models.RoleAdmin && p.PasswordHash != ""
		})).Return(nil)

		profile, created, err := svc.EnsureUser(ctx, "Admin@gmail.com", "123456", models.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "admin@gmail.com", profile.Email)
	})

	t.Run("fixes role of existing account", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		id := uuid.New()
		repo.On("GetByEmail", ctx, "manager@gmail.com").Return(&models.Profile{ID: id, Role: models.RoleCashier}, nil)
		repo.On("UpdateRole", ctx, id, models.RoleManager).Return(nil)

		profile, created, err := svc.EnsureUser(ctx, "manager@gmail.com", "123456", models.RoleManager)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, models.RoleManager, profile.Role)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
