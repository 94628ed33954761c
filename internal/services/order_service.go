package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// orderTransitions is the lifecycle table. Completed and cancelled have no exits.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusInProgress, models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusInProgress: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists where an order in status may go next
func NextStatuses(status models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), orderTransitions[status]...)
}

// OrderMetrics receives lifecycle events; metrics.Metrics implements it
type OrderMetrics interface {
	ObserveOrderCreated(total decimal.Decimal)
	ObserveStatusChange(from, to models.OrderStatus)
}

type OrderService interface {
	CreateOrder(ctx context.Context, lines []models.OrderLineInput, customer *models.Customer) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error)
}

type orderService struct {
	orderRepo repositories.OrderRepository
	itemRepo  repositories.OrderItemRepository
	menuRepo  repositories.MenuItemRepository
	metrics   OrderMetrics
	now       func() time.Time
}

func NewOrderService(orderRepo repositories.OrderRepository, itemRepo repositories.OrderItemRepository, menuRepo repositories.MenuItemRepository, metrics OrderMetrics) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		menuRepo:  menuRepo,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, lines []models.OrderLineInput, customer *models.Customer) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, common.NewValidationError("items", "order must contain at least one item")
	}
	for i, line := range lines {
		if line.MenuItemID == uuid.Nil {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d].menu_item_id", i), "menu item is required")
		}
		if line.Quantity < 1 {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
	}

	menu, err := s.lookupMenuItems(ctx, lines)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:        uuid.New(),
		Status:    models.OrderStatusPending,
		Customer:  normalizeCustomer(customer),
		CreatedAt: now,
		UpdatedAt: now,
		Items:     make([]models.OrderLineItem, 0, len(lines)),
	}

	total := decimal.Zero
	for i, line := range lines {
		item := menu[line.MenuItemID]
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, models.OrderLineItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   line.Quantity,
			Subtotal:   subtotal,
			LineNo:     i + 1,
			CreatedAt:  now,
		})
		total = total.Add(subtotal)
	}
	order.TotalAmount = total

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, common.Persistence("create order", err)
	}
	if err := s.itemRepo.CreateBatch(ctx, order.ID, order.Items); err != nil {
		// Compensate so no order is left without items
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			log.Printf("ERROR: failed to remove order %s after line item failure: %v", order.ID, delErr)
		}
		return nil, common.Persistence("create order items", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveOrderCreated(order.TotalAmount)
	}
	log.Printf("INFO: order %s created with %d items, total %s", order.ID, len(order.Items), order.TotalAmount.StringFixed(2))
	return order, nil
}

// lookupMenuItems resolves the snapshot source for every requested line
func (s *orderService) lookupMenuItems(ctx context.Context, lines []models.OrderLineInput) (map[uuid.UUID]*models.MenuItem, error) {
	seen := make(map[uuid.UUID]bool, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.MenuItemID] {
			seen[line.MenuItemID] = true
			ids = append(ids, line.MenuItemID)
		}
	}

	items, err := s.menuRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, common.Persistence("load menu items", err)
	}
	byID := make(map[uuid.UUID]*models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for i, line := range lines {
		if _, ok := byID[line.MenuItemID]; !ok {
			return nil, common.NewValidationError(fmt.Sprintf("items[%d].menu_item_id", i), "menu item does not exist")
		}
	}
	return byID, nil
}

func normalizeCustomer(customer *models.Customer) *models.Customer {
	if customer == nil {
		return nil
	}
	c := &models.Customer{
		Name:    strings.TrimSpace(customer.Name),
		Contact: strings.TrimSpace(customer.Contact),
	}
	if c.Name == "" && c.Contact == "" {
		return nil
	}
	return c
}

// UpdateStatus applies one lifecycle transition. Concurrent updates are last-write-wins at the store.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, common.NewValidationError("status", "status must be one of: pending, in-progress, completed, cancelled")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence("load order", err)
	}
	if !CanTransition(order.Status, status) {
		return nil, common.NewTransitionError(string(order.Status), string(status))
	}

	now := s.now().UTC()
	if err := s.orderRepo.UpdateStatus(ctx, id, status, now); err != nil {
		return nil, common.Persistence("update order status", err)
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = now
	if s.metrics != nil {
		s.metrics.ObserveStatusChange(previous, status)
	}

	items, err := s.itemRepo.ListByOrderIDs(ctx, []uuid.UUID{id})
	if err != nil {
		// The write is acknowledged; only the item reload failed
		log.Printf("WARN: order %s moved to %s but items could not be reloaded: %v", id, status, err)
		return order, nil
	}
	order.Items = items[id]
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence("load order", err)
	}
	items, err := s.itemRepo.ListByOrderIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, common.Persistence("load order items", err)
	}
	order.Items = items[id]
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	if filter != nil && filter.Status != "" && !filter.Status.Valid() {
		return nil, common.NewValidationError("status", "unknown order status")
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, common.Persistence("list orders", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}
	items, err := s.itemRepo.ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, common.Persistence("list order items", err)
	}
	for _, order := range orders {
		order.Items = items[order.ID]
		if order.Items == nil {
			order.Items = []models.OrderLineItem{}
		}
	}
	return orders, nil
}
