package reports

import (
	"sort"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/shopspring/decimal"
)

const (
	recentOrderCount  = 5
	popularItemsCount = 5
)

// BuildDashboard summarizes orders (newest first) and the menu
func BuildDashboard(orders []*models.Order, items []*models.MenuItem) *models.DashboardStats {
	stats := &models.DashboardStats{
		TotalOrders:  len(orders),
		Revenue:      decimal.Zero,
		MenuItems:    len(items),
		Categories:   make(map[string]int),
		RecentOrders: []models.Order{},
	}
	for _, order := range orders {
		switch order.Status {
		case models.OrderStatusCompleted:
			stats.CompletedOrders++
		case models.OrderStatusPending:
			stats.PendingOrders++
		}
		if order.Status != models.OrderStatusCancelled {
			stats.Revenue = stats.Revenue.Add(order.TotalAmount)
		}
	}
	for _, item := range items {
		stats.Categories[item.Category]++
	}
	for i := 0; i < len(orders) && i < recentOrderCount; i++ {
		stats.RecentOrders = append(stats.RecentOrders, *orders[i])
	}
	return stats
}

// BuildDailyReport aggregates the orders of one calendar day. Revenue and the
// average count completed orders only; popularity also counts in-progress ones.
func BuildDailyReport(day time.Time, orders []*models.Order) *models.DailyReport {
	report := &models.DailyReport{
		Date:              day.Format(common.DateLayout),
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
		StatusBreakdown: map[models.OrderStatus]int{
			models.OrderStatusPending:    0,
			models.OrderStatusInProgress: 0,
			models.OrderStatusCompleted:  0,
			models.OrderStatusCancelled:  0,
		},
		PopularItems: PopularItems(orders, popularItemsCount),
		Orders:       make([]models.Order, 0, len(orders)),
	}
	for _, order := range orders {
		report.TotalOrders++
		report.StatusBreakdown[order.Status]++
		if order.Status == models.OrderStatusCompleted {
			report.CompletedOrders++
			report.Revenue = report.Revenue.Add(order.TotalAmount)
		}
		report.Orders = append(report.Orders, *order)
	}
	if report.CompletedOrders > 0 {
		report.AverageOrderValue = report.Revenue.Div(decimal.NewFromInt(int64(report.CompletedOrders))).Round(2)
	}
	return report
}

// PopularItems ranks line item names by quantity sold in completed and
// in-progress orders. Ties keep name order.
func PopularItems(orders []*models.Order, limit int) []models.ItemPopularity {
	byName := make(map[string]*models.ItemPopularity)
	for _, order := range orders {
		if order.Status != models.OrderStatusCompleted && order.Status != models.OrderStatusInProgress {
			continue
		}
		for _, line := range order.Items {
			p, ok := byName[line.Name]
			if !ok {
				p = &models.ItemPopularity{Name: line.Name, Revenue: decimal.Zero}
				byName[line.Name] = p
			}
			p.Quantity += line.Quantity
			p.Revenue = p.Revenue.Add(line.Subtotal)
		}
	}

	out := make([]models.ItemPopularity, 0, len(byName))
	for _, p := range byName {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ActiveOrders returns the pending and in-progress orders
func ActiveOrders(orders []*models.Order) []models.Order {
	active := []models.Order{}
	for _, order := range orders {
		if !order.Status.Terminal() {
			active = append(active, *order)
		}
	}
	return active
}

// SalesByDay buckets orders into one row per calendar day in [from, to]
func SalesByDay(from, to time.Time, orders []*models.Order) []models.SalesDay {
	start := common.StartOfDay(from)
	end := common.StartOfDay(to)

	index := make(map[string]int)
	var days []models.SalesDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(common.DateLayout)
		index[key] = len(days)
		days = append(days, models.SalesDay{Date: key, Revenue: decimal.Zero})
	}

	for _, order := range orders {
		i, ok := index[order.CreatedAt.In(from.Location()).Format(common.DateLayout)]
		if !ok {
			continue
		}
		days[i].Orders++
		if order.Status == models.OrderStatusCompleted {
			days[i].Completed++
			days[i].Revenue = days[i].Revenue.Add(order.TotalAmount)
		}
	}
	return days
}
