package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the four lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Customer is a denormalized snapshot embedded in the order row.
type Customer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// OrderLineItem snapshots a menu item's name and price at order time.
type OrderLineItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OrderID    uuid.UUID       `json:"order_id" db:"order_id"`
	MenuItemID uuid.UUID       `json:"menu_item_id" db:"menu_item_id"`
	Name       string          `json:"name" db:"name"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
	LineNo     int             `json:"-" db:"line_no"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Items       []OrderLineItem `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      OrderStatus     `json:"status" db:"status"`
	Customer    *Customer       `json:"customer,omitempty"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderLineInput is one requested line of a new order
type OrderLineInput struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
}

// OrderFilter holds the criteria for order listings
type OrderFilter struct {
	From      *time.Time  `json:"from,omitempty"`   // created_at >= From
	To        *time.Time  `json:"to,omitempty"`     // created_at <= To
	Status    OrderStatus `json:"status,omitempty"` // exact status
	Query     string      `json:"query,omitempty"`  // order id, customer name or contact
	SortOrder string      `json:"sort_order,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Offset    int         `json:"offset,omitempty"`
}

// Ascending reports whether the filter asks for oldest-first ordering.
func (f *OrderFilter) Ascending() bool {
	return f != nil && strings.EqualFold(f.SortOrder, "asc")
}

// Matches applies the filter to an order already in memory. Paging is not applied.
func (f *OrderFilter) Matches(o *Order) bool {
	if f == nil {
		return true
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if strings.Contains(strings.ToLower(o.ID.String()), q) {
			return true
		}
		if o.Customer == nil {
			return false
		}
		return strings.Contains(strings.ToLower(o.Customer.Name), q) ||
			strings.Contains(strings.ToLower(o.Customer.Contact), q)
	}
	return true
}
