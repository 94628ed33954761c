package handlers

import (
	"context"
	"io"

	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockMenuService struct {
	mock.Mock
}

func (m *MockMenuService) AddItem(ctx context.Context, input *models.MenuItemInput) (*models.MenuItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuItem), args.Error(1)
}

func (m *MockMenuService) UpdateItem(ctx context.Context, id uuid.UUID, input *models.MenuItemInput) (*models.MenuItem, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuItem), args.Error(1)
}

func (m *MockMenuService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMenuService) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuItem), args.Error(1)
}

func (m *MockMenuService) ListItems(ctx context.Context) ([]*models.MenuItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MenuItem), args.Error(1)
}

func (m *MockMenuService) UploadImage(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*models.MenuItem, error) {
	args := m.Called(ctx, id, reader, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MenuItem), args.Error(1)
}

func (m *MockMenuService) Categories() []string {
	return models.DefaultCategories
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, lines []models.OrderLineInput, customer *models.Customer) (*models.Order, error) {
	args := m.Called(ctx, lines, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ListUsers(ctx context.Context, filter *models.ProfileFilter) ([]*models.Profile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Profile), args.Error(1)
}

func (m *MockUserService) UpdateRole(ctx context.Context, actorID, userID uuid.UUID, role models.Role) (*models.Profile, error) {
	args := m.Called(ctx, actorID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockUserService) EnsureUser(ctx context.Context, email, password string, role models.Role) (*models.Profile, bool, error) {
	args := m.Called(ctx, email, password, role)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.Profile), args.Bool(1), args.Error(2)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) GetProjectName(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsService) SetProjectName(ctx context.Context, actorID uuid.UUID, name string) (string, error) {
	args := m.Called(ctx, actorID, name)
	return args.String(0), args.Error(1)
}

type MockRBACService struct {
	mock.Mock
}

func (m *MockRBACService) CurrentRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *MockRBACService) Authorize(ctx context.Context, userID uuid.UUID, action models.Action) (models.Role, error) {
	args := m.Called(ctx, userID, action)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *MockRBACService) Navigate(ctx context.Context, userID uuid.UUID, route string) (*models.NavigationDecision, error) {
	args := m.Called(ctx, userID, route)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NavigationDecision), args.Error(1)
}

// MockAuthService mocks the session endpoints; token plumbing is not used by handlers
type MockAuthService struct {
	services.AuthService
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthSession), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthSession), args.Error(1)
}

func (m *MockAuthService) SignOut(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthSession), args.Error(1)
}

func (m *MockAuthService) Session(ctx context.Context, accessToken string) (*models.Profile, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockLiveRefresher struct {
	mock.Mock
}

func (m *MockLiveRefresher) StartLiveRefresh(viewer string) error {
	return m.Called(viewer).Error(0)
}

func (m *MockLiveRefresher) StopLiveRefresh(viewer string) error {
	return m.Called(viewer).Error(0)
}

func (m *MockLiveRefresher) LiveRefreshActive() bool {
	return m.Called().Bool(0)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}
