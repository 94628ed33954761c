package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	suite.Suite
	orderRepo *MockOrderRepository
	itemRepo  *MockOrderItemRepository
	menuRepo  *MockMenuItemRepository
	metrics   *MockMetrics
	service   *orderService
	ctx       context.Context
	fixedNow  time.Time
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.orderRepo = new(MockOrderRepository)
	suite.itemRepo = new(MockOrderItemRepository)
	suite.menuRepo = new(MockMenuItemRepository)
	suite.metrics = new(MockMetrics)
	suite.ctx = context.Background()
	suite.fixedNow = time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)

	svc := NewOrderService(suite.orderRepo, suite.itemRepo, suite.menuRepo, suite.metrics).(*orderService)
	svc.now = func() time.Time { return suite.fixedNow }
	suite.service = svc
}

func (suite *OrderServiceTestSuite) TearDownTest() {
	suite.orderRepo.AssertExpectations(suite.T())
	suite.itemRepo.AssertExpectations(suite.T())
	suite.menuRepo.AssertExpectations(suite.T())
	suite.metrics.AssertExpectations(suite.T())
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func burger() *models.MenuItem {
	return &models.MenuItem{
		ID:       uuid.New(),
		Name:     "Burger",
		Price:    decimal.RequireFromString("8.99"),
		Category: "Burger",
	}
}

func (suite *OrderServiceTestSuite) TestCreateOrder_ComputesTotals() {
	item := burger()
	fries := &models.MenuItem{ID: uuid.New(), Name: "Fries", Price: decimal.RequireFromString("3.50"), Category: "Sides"}
	lines := []models.OrderLineInput{
		{MenuItemID: item.ID, Quantity: 2},
		{MenuItemID: fries.ID, Quantity: 1},
	}

	suite.menuRepo.On("GetByIDs", suite.ctx, []uuid.UUID{item.ID, fries.ID}).Return([]*models.MenuItem{fries, item}, nil)
	suite.orderRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Order")).Return(nil)
	suite.itemRepo.On("CreateBatch", suite.ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("[]models.OrderLineItem")).Return(nil)
	suite.metrics.On("ObserveOrderCreated", mock.AnythingOfType("decimal.Decimal")).Return()

	order, err := suite.service.CreateOrder(suite.ctx, lines, &models.Customer{Name: "  Asha ", Contact: "555-0101"})
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPending, order.Status)
	suite.Equal("21.48", order.TotalAmount.StringFixed(2))
	suite.Equal(suite.fixedNow, order.CreatedAt)
	suite.Require().Len(order.Items, 2)
	suite.Equal("Burger", order.Items[0].Name)
	suite.Equal("17.98", order.Items[0].Subtotal.StringFixed(2))
	suite.Equal(1, order.Items[0].LineNo)
	suite.Equal("Fries", order.Items[1].Name)
	suite.Equal(2, order.Items[1].LineNo)
	suite.Equal("Asha", order.Customer.Name)

	sum := decimal.Zero
	for _, line := range order.Items {
		suite.Equal(order.ID, line.OrderID)
		sum = sum.Add(line.Subtotal)
	}
	suite.True(sum.Equal(order.TotalAmount))
}

func (suite *OrderServiceTestSuite) TestCreateOrder_SingleBurger() {
	item := burger()
	suite.menuRepo.On("GetByIDs", suite.ctx, []uuid.UUID{item.ID}).Return([]*models.MenuItem{item}, nil)
	suite.orderRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Order")).Return(nil)
	suite.itemRepo.On("CreateBatch", suite.ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("[]models.OrderLineItem")).Return(nil)
	suite.metrics.On("ObserveOrderCreated", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("17.98"))
	})).Return()

	order, err := suite.service.CreateOrder(suite.ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 2}}, nil)
	suite.Require().NoError(err)
	suite.Equal("17.98", order.TotalAmount.StringFixed(2))
	suite.Nil(order.Customer)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_RejectsBeforeStoreCall() {
	id := uuid.New()
	cases := map[string][]models.OrderLineInput{
		"no lines":      nil,
		"zero quantity": {{MenuItemID: id, Quantity: 0}},
		"negative":      {{MenuItemID: id, Quantity: 1}, {MenuItemID: id, Quantity: -2}},
		"no menu item":  {{Quantity: 1}},
	}
	for name, lines := range cases {
		suite.Run(name, func() {
			order, err := suite.service.CreateOrder(suite.ctx, lines, nil)
			suite.Nil(order)
			suite.True(errors.Is(err, common.ErrValidation))
		})
	}
	suite.menuRepo.AssertNotCalled(suite.T(), "GetByIDs", mock.Anything, mock.Anything)
	suite.orderRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_UnknownMenuItem() {
	missing := uuid.New()
	suite.menuRepo.On("GetByIDs", suite.ctx, []uuid.UUID{missing}).Return([]*models.MenuItem{}, nil)

	_, err := suite.service.CreateOrder(suite.ctx, []models.OrderLineInput{{MenuItemID: missing, Quantity: 1}}, nil)
	suite.True(errors.Is(err, common.ErrValidation))
	suite.orderRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_CompensatesWhenItemsFail() {
	item := burger()
	var createdID uuid.UUID
	suite.menuRepo.On("GetByIDs", suite.ctx, []uuid.UUID{item.ID}).Return([]*models.MenuItem{item}, nil)
	suite.orderRepo.On("Create", suite.ctx, mock.AnythingOfType("*models.Order")).
		Run(func(args mock.Arguments) { createdID = args.Get(1).(*models.Order).ID }).
		Return(nil)
	suite.itemRepo.On("CreateBatch", suite.ctx, mock.AnythingOfType("uuid.UUID"), mock.Anything).Return(errors.New("connection reset"))
	suite.orderRepo.On("Delete", suite.ctx, mock.AnythingOfType("uuid.UUID")).Return(nil)

	order, err := suite.service.CreateOrder(suite.ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 1}}, nil)
	suite.Nil(order)
	suite.True(errors.Is(err, common.ErrPersistence))
	suite.orderRepo.AssertCalled(suite.T(), "Delete", suite.ctx, createdID)
	suite.metrics.AssertNotCalled(suite.T(), "ObserveOrderCreated", mock.Anything)
}

func (suite *OrderServiceTestSuite) TestCreateOrder_HeaderFailure() {
	item := burger()
	suite.menuRepo.On("GetByIDs", suite.ctx, []uuid.UUID{item.ID}).Return([]*models.MenuItem{item}, nil)
	suite.orderRepo.On("Create", suite.ctx, mock.Anything).Return(errors.New("timeout"))

	_, err := suite.service.CreateOrder(suite.ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 1}}, nil)
	suite.True(errors.Is(err, common.ErrPersistence))
	suite.True(common.IsRetryable(err))
	suite.itemRepo.AssertNotCalled(suite.T(), "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_TransitionTable() {
	all := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusInProgress,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	}
	allowed := map[[2]models.OrderStatus]bool{
		{models.OrderStatusPending, models.OrderStatusInProgress}:   true,
		{models.OrderStatusPending, models.OrderStatusCompleted}:    true,
		{models.OrderStatusPending, models.OrderStatusCancelled}:    true,
		{models.OrderStatusInProgress, models.OrderStatusCompleted}: true,
		{models.OrderStatusInProgress, models.OrderStatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			suite.Run(string(from)+"->"+string(to), func() {
				suite.SetupTest()
				id := uuid.New()
				total := decimal.RequireFromString("17.98")
				suite.orderRepo.On("GetByID", suite.ctx, id).Return(&models.Order{ID: id, Status: from, TotalAmount: total}, nil)

				if allowed[[2]models.OrderStatus{from, to}] {
					suite.orderRepo.On("UpdateStatus", suite.ctx, id, to, suite.fixedNow).Return(nil)
					suite.metrics.On("ObserveStatusChange", from, to).Return()
					suite.itemRepo.On("ListByOrderIDs", suite.ctx, []uuid.UUID{id}).Return(map[uuid.UUID][]models.OrderLineItem{}, nil)

					order, err := suite.service.UpdateStatus(suite.ctx, id, to)
					suite.Require().NoError(err)
					suite.Equal(to, order.Status)
					suite.True(order.TotalAmount.Equal(total))
				} else {
					_, err := suite.service.UpdateStatus(suite.ctx, id, to)
					suite.True(errors.Is(err, common.ErrInvalidTransition))
					var te *common.TransitionError
					suite.Require().True(errors.As(err, &te))
					suite.Equal(string(from), te.From)
					suite.Equal(string(to), te.To)
					suite.orderRepo.AssertNotCalled(suite.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				}
				suite.TearDownTest()
			})
		}
	}
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_UnknownStatus() {
	_, err := suite.service.UpdateStatus(suite.ctx, uuid.New(), models.OrderStatus("refunded"))
	suite.True(errors.Is(err, common.ErrValidation))
	suite.orderRepo.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_MissingOrder() {
	id := uuid.New()
	suite.orderRepo.On("GetByID", suite.ctx, id).Return(nil, common.ErrNotFound)

	_, err := suite.service.UpdateStatus(suite.ctx, id, models.OrderStatusCompleted)
	suite.True(errors.Is(err, common.ErrNotFound))
	suite.True(errors.Is(err, common.ErrPersistence))
}

func (suite *OrderServiceTestSuite) TestUpdateStatus_ItemReloadFailureStillSucceeds() {
	id := uuid.New()
	suite.orderRepo.On("GetByID", suite.ctx, id).Return(&models.Order{ID: id, Status: models.OrderStatusPending}, nil)
	suite.orderRepo.On("UpdateStatus", suite.ctx, id, models.OrderStatusInProgress, suite.fixedNow).Return(nil)
	suite.metrics.On("ObserveStatusChange", models.OrderStatusPending, models.OrderStatusInProgress).Return()
	suite.itemRepo.On("ListByOrderIDs", suite.ctx, []uuid.UUID{id}).Return(nil, errors.New("timeout"))

	order, err := suite.service.UpdateStatus(suite.ctx, id, models.OrderStatusInProgress)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusInProgress, order.Status)
	suite.Equal(suite.fixedNow, order.UpdatedAt)
}

func (suite *OrderServiceTestSuite) TestListOrders_AttachesItems() {
	first, second := uuid.New(), uuid.New()
	filter := &models.OrderFilter{Status: models.OrderStatusPending}
	suite.orderRepo.On("List", suite.ctx, filter).Return([]*models.Order{{ID: first}, {ID: second}}, nil)
	suite.itemRepo.On("ListByOrderIDs", suite.ctx, []uuid.UUID{first, second}).Return(map[uuid.UUID][]models.OrderLineItem{
		first: {{Name: "Burger", Quantity: 2}},
	}, nil)

	orders, err := suite.service.ListOrders(suite.ctx, filter)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Len(orders[0].Items, 1)
	suite.NotNil(orders[1].Items)
	suite.Empty(orders[1].Items)
}

func (suite *OrderServiceTestSuite) TestListOrders_BadStatusFilter() {
	_, err := suite.service.ListOrders(suite.ctx, &models.OrderFilter{Status: "unknown"})
	suite.True(errors.Is(err, common.ErrValidation))
	suite.orderRepo.AssertNotCalled(suite.T(), "List", mock.Anything, mock.Anything)
}

func TestNextStatuses(t *testing.T) {
	assert.ElementsMatch(t, []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}, NextStatuses(models.OrderStatusInProgress))
	assert.Empty(t, NextStatuses(models.OrderStatusCompleted))
	assert.Empty(t, NextStatuses(models.OrderStatusCancelled))
}

func newMemOrderService(store *memStore) OrderService {
	return NewOrderService(memOrderRepo{store}, memOrderItemRepo{store}, memMenuRepo{store}, nil)
}

func TestOrderSnapshotSurvivesMenuDelete(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	item := burger()
	require.NoError(t, memMenuRepo{store}.Create(ctx, item))

	svc := newMemOrderService(store)
	order, err := svc.CreateOrder(ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 2}}, nil)
	require.NoError(t, err)

	require.NoError(t, memMenuRepo{store}.Delete(ctx, item.ID))

	reloaded, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Burger", reloaded.Items[0].Name)
	assert.Equal(t, "8.99", reloaded.Items[0].Price.StringFixed(2))
	assert.Equal(t, item.ID, reloaded.Items[0].MenuItemID)
	assert.Equal(t, "17.98", reloaded.TotalAmount.StringFixed(2))
}

func TestConcurrentStatusUpdates(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	item := burger()
	require.NoError(t, memMenuRepo{store}.Create(ctx, item))

	svc := newMemOrderService(store)
	order, err := svc.CreateOrder(ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 1}}, nil)
	require.NoError(t, err)

	targets := []models.OrderStatus{models.OrderStatusInProgress, models.OrderStatusCancelled}
	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, status := range targets {
		wg.Add(1)
		go func(i int, status models.OrderStatus) {
			defer wg.Done()
			_, errs[i] = svc.UpdateStatus(ctx, order.ID, status)
		}(i, status)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, common.ErrInvalidTransition))
		}
	}

	final, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Contains(t, targets, final.Status)
	assert.Equal(t, "8.99", final.TotalAmount.StringFixed(2))
}

func TestCreatedOrderListedFirst(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	item := burger()
	require.NoError(t, memMenuRepo{store}.Create(ctx, item))

	svc := NewOrderService(memOrderRepo{store}, memOrderItemRepo{store}, memMenuRepo{store}, nil).(*orderService)
	clock := time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err := svc.CreateOrder(ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 1}}, nil)
	require.NoError(t, err)
	latest, err := svc.CreateOrder(ctx, []models.OrderLineInput{{MenuItemID: item.ID, Quantity: 2}}, nil)
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, nil)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, latest.ID, orders[0].ID)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
	assert.Equal(t, "17.98", orders[0].TotalAmount.StringFixed(2))
}
