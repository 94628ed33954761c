// Package appstate holds the process-local projection of the menu and the
// orders. Only the Store mutates it; readers always receive copies.
package appstate

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// EventKind names what changed
type EventKind string

const (
	EventMenu   EventKind = "menu"
	EventOrders EventKind = "orders"
	EventAuth   EventKind = "auth"
)

// Event is delivered to subscribers after every successful mutation or refresh.
// ID is the affected entity, or uuid.Nil for a whole-collection refresh.
type Event struct {
	Kind EventKind
	ID   uuid.UUID
}

type Store struct {
	menuSvc  services.MenuService
	orderSvc services.OrderService
	now      func() time.Time

	mu          sync.RWMutex
	menuItems   []*models.MenuItem
	orders      []*models.Order
	pending     int
	lastRefresh time.Time

	// Fetches are numbered when they start; a result is applied only when no
	// later-started fetch of the same collection has been applied already.
	menuIssued, menuApplied   uint64
	orderIssued, orderApplied uint64

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]func(Event)
}

func NewStore(menuSvc services.MenuService, orderSvc services.OrderService) *Store {
	return &Store{
		menuSvc:   menuSvc,
		orderSvc:  orderSvc,
		now:       time.Now,
		menuItems: []*models.MenuItem{},
		orders:    []*models.Order{},
		observers: make(map[int]func(Event)),
	}
}

// Load fetches both collections. Either failing leaves that collection as it was.
func (s *Store) Load(ctx context.Context) error {
	s.begin()
	defer s.end()

	menuErr := s.fetchMenu(ctx)
	orderErr := s.fetchOrders(ctx)
	if menuErr == nil {
		s.notify(Event{Kind: EventMenu})
	}
	if orderErr == nil {
		s.notify(Event{Kind: EventOrders})
	}
	return errors.CombineErrors(menuErr, orderErr)
}

// Loading is true while at least one call is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

// LastRefresh is when the orders projection was last replaced from the store
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

func (s *Store) MenuItems() []*models.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.MenuItem, len(s.menuItems))
	for i, item := range s.menuItems {
		c := *item
		out[i] = &c
	}
	return out
}

// Orders returns copies of the projected orders that match filter, newest first.
// A nil filter returns everything.
func (s *Store) Orders(filter *models.OrderFilter) []*models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.Matches(order) {
			out = append(out, copyOrder(order))
		}
	}
	return out
}

func (s *Store) RefreshMenu(ctx context.Context) error {
	s.begin()
	defer s.end()
	if err := s.fetchMenu(ctx); err != nil {
		return err
	}
	s.notify(Event{Kind: EventMenu})
	return nil
}

func (s *Store) RefreshOrders(ctx context.Context) error {
	s.begin()
	defer s.end()
	if err := s.fetchOrders(ctx); err != nil {
		return err
	}
	s.notify(Event{Kind: EventOrders})
	return nil
}

func (s *Store) AddMenuItem(ctx context.Context, input *models.MenuItemInput) (*models.MenuItem, error) {
	s.begin()
	defer s.end()

	item, err := s.menuSvc.AddItem(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "add menu item")
	}
	s.reconcileMenu(ctx, item, uuid.Nil)
	return item, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, id uuid.UUID, input *models.MenuItemInput) (*models.MenuItem, error) {
	s.begin()
	defer s.end()

	item, err := s.menuSvc.UpdateItem(ctx, id, input)
	if err != nil {
		return nil, errors.Wrap(err, "update menu item")
	}
	s.reconcileMenu(ctx, item, uuid.Nil)
	return item, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	s.begin()
	defer s.end()

	if err := s.menuSvc.DeleteItem(ctx, id); err != nil {
		return errors.Wrap(err, "delete menu item")
	}
	s.reconcileMenu(ctx, nil, id)
	return nil
}

func (s *Store) UploadMenuImage(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*models.MenuItem, error) {
	s.begin()
	defer s.end()

	item, err := s.menuSvc.UploadImage(ctx, id, reader, size, contentType)
	if err != nil {
		return nil, errors.Wrap(err, "upload menu image")
	}
	s.reconcileMenu(ctx, item, uuid.Nil)
	return item, nil
}

func (s *Store) CreateOrder(ctx context.Context, lines []models.OrderLineInput, customer *models.Customer) (*models.Order, error) {
	s.begin()
	defer s.end()

	order, err := s.orderSvc.CreateOrder(ctx, lines, customer)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.reconcileOrders(ctx, order)
	return order, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	s.begin()
	defer s.end()

	order, err := s.orderSvc.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	s.reconcileOrders(ctx, order)
	return order, nil
}

// Subscribe registers fn for every Event. The returned func removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// HandleAuthEvent forwards identity provider transitions to subscribers
func (s *Store) HandleAuthEvent(event services.AuthEvent) {
	s.notify(Event{Kind: EventAuth, ID: event.UserID})
}

func (s *Store) notify(event Event) {
	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *Store) fetchMenu(ctx context.Context) error {
	s.mu.Lock()
	s.menuIssued++
	seq := s.menuIssued
	s.mu.Unlock()

	items, err := s.menuSvc.ListItems(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch menu items")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.menuApplied {
		s.menuItems = items
		s.menuApplied = seq
	}
	return nil
}

func (s *Store) fetchOrders(ctx context.Context) error {
	s.mu.Lock()
	s.orderIssued++
	seq := s.orderIssued
	s.mu.Unlock()

	orders, err := s.orderSvc.ListOrders(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "fetch orders")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.orderApplied {
		s.orders = orders
		s.orderApplied = seq
		s.lastRefresh = s.now()
	}
	return nil
}

// reconcileMenu re-fetches after an acknowledged write. If the re-fetch
// fails the acknowledged entity is patched in so the write stays visible.
func (s *Store) reconcileMenu(ctx context.Context, saved *models.MenuItem, deleted uuid.UUID) {
	id := deleted
	if saved != nil {
		id = saved.ID
	}
	if err := s.fetchMenu(ctx); err != nil {
		log.Printf("WARN: menu re-fetch after write failed, patching locally: %v", err)
		s.mu.Lock()
		if saved != nil {
			s.menuItems = upsertMenuItem(s.menuItems, saved)
		} else {
			s.menuItems = removeMenuItem(s.menuItems, deleted)
		}
		s.mu.Unlock()
	}
	s.notify(Event{Kind: EventMenu, ID: id})
}

func (s *Store) reconcileOrders(ctx context.Context, saved *models.Order) {
	if err := s.fetchOrders(ctx); err != nil {
		log.Printf("WARN: order re-fetch after write failed, patching locally: %v", err)
		s.mu.Lock()
		s.orders = upsertOrder(s.orders, saved)
		s.mu.Unlock()
	}
	s.notify(Event{Kind: EventOrders, ID: saved.ID})
}

func upsertMenuItem(items []*models.MenuItem, item *models.MenuItem) []*models.MenuItem {
	c := *item
	out := make([]*models.MenuItem, 0, len(items)+1)
	for _, existing := range items {
		if existing.ID != item.ID {
			out = append(out, existing)
		}
	}
	out = append(out, &c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func removeMenuItem(items []*models.MenuItem, id uuid.UUID) []*models.MenuItem {
	out := make([]*models.MenuItem, 0, len(items))
	for _, existing := range items {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}

func upsertOrder(orders []*models.Order, order *models.Order) []*models.Order {
	c := copyOrder(order)
	out := make([]*models.Order, 0, len(orders)+1)
	replaced := false
	for _, existing := range orders {
		if existing.ID == order.ID {
			if c.Items == nil {
				c.Items = existing.Items
			}
			out = append(out, c)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append([]*models.Order{c}, out...)
	}
	return out
}

func copyOrder(order *models.Order) *models.Order {
	c := *order
	if order.Items != nil {
		c.Items = append([]models.OrderLineItem(nil), order.Items...)
	}
	if order.Customer != nil {
		customer := *order.Customer
		c.Customer = &customer
	}
	return &c
}
