package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalOrders     int             `json:"total_orders"`
	CompletedOrders int             `json:"completed_orders"`
	PendingOrders   int             `json:"pending_orders"`
	Revenue         decimal.Decimal `json:"revenue"`
	MenuItems       int             `json:"menu_items"`
	Categories      map[string]int  `json:"categories"`
	RecentOrders    []Order         `json:"recent_orders"`
}

// ItemPopularity aggregates sold quantity and revenue for one item name
type ItemPopularity struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type DailyReport struct {
	Date              string              `json:"date"`
	TotalOrders       int                 `json:"total_orders"`
	CompletedOrders   int                 `json:"completed_orders"`
	Revenue           decimal.Decimal     `json:"revenue"`
	AverageOrderValue decimal.Decimal     `json:"average_order_value"`
	StatusBreakdown   map[OrderStatus]int `json:"status_breakdown"`
	PopularItems      []ItemPopularity    `json:"popular_items"`
	Orders            []Order             `json:"orders,omitempty"`
}

type LiveReport struct {
	DailyReport
	ActiveOrders []Order   `json:"active_orders"`
	LastRefresh  time.Time `json:"last_refresh"`
	AutoRefresh  bool      `json:"auto_refresh"`
}

// SalesDay is one row of the sales export
type SalesDay struct {
	Date      string          `json:"date"`
	Orders    int             `json:"orders"`
	Completed int             `json:"completed"`
	Revenue   decimal.Decimal `json:"revenue"`
}
