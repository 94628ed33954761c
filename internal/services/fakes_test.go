package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/google/uuid"
)

// memStore is a goroutine-safe in-memory stand-in for the three order tables
type memStore struct {
	mu     sync.Mutex
	menu   map[uuid.UUID]models.MenuItem
	orders map[uuid.UUID]models.Order
	items  map[uuid.UUID][]models.OrderLineItem
}

func newMemStore() *memStore {
	return &memStore{
		menu:   make(map[uuid.UUID]models.MenuItem),
		orders: make(map[uuid.UUID]models.Order),
		items:  make(map[uuid.UUID][]models.OrderLineItem),
	}
}

type memMenuRepo struct{ s *memStore }
type memOrderRepo struct{ s *memStore }
type memOrderItemRepo struct{ s *memStore }

func (r memMenuRepo) Create(ctx context.Context, item *models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.menu[item.ID] = *item
	return nil
}

func (r memMenuRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.menu[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &item, nil
}

func (r memMenuRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.MenuItem
	for _, id := range ids {
		if item, ok := r.s.menu[id]; ok {
			item := item
			out = append(out, &item)
		}
	}
	return out, nil
}

func (r memMenuRepo) Update(ctx context.Context, item *models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.menu[item.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.menu[item.ID] = *item
	return nil
}

func (r memMenuRepo) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.menu[id]
	if !ok {
		return common.ErrNotFound
	}
	item.ImageURL = imageURL
	r.s.menu[id] = item
	return nil
}

func (r memMenuRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.menu[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.menu, id)
	return nil
}

func (r memMenuRepo) List(ctx context.Context) ([]*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.MenuItem, 0, len(r.s.menu))
	for _, item := range r.s.menu {
		item := item
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *order
	stored.Items = nil
	r.s.orders[order.ID] = stored
	return nil
}

func (r memOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &order, nil
}

func (r memOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return common.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	r.s.orders[id] = order
	return nil
}

func (r memOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	return nil
}

func (r memOrderRepo) List(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Order
	for _, order := range r.s.orders {
		order := order
		if filter == nil || filter.Matches(&order) {
			out = append(out, &order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memOrderItemRepo) CreateBatch(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.items[orderID] = append([]models.OrderLineItem(nil), items...)
	return nil
}

func (r memOrderItemRepo) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderLineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID][]models.OrderLineItem, len(orderIDs))
	for _, id := range orderIDs {
		if items, ok := r.s.items[id]; ok {
			out[id] = append([]models.OrderLineItem(nil), items...)
		}
	}
	return out, nil
}
