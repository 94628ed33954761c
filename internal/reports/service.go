// Package reports computes dashboard, daily and live statistics and the CSV
// exports. Aggregation is pure; the Service only gathers the inputs.
package reports

import (
	"context"
	"io"
	"time"

	"restaurantpos/internal/appstate"
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
)

// DefaultSalesDays is the range of the sales export when none is given
const DefaultSalesDays = 7

// LiveStatus reports whether the live view is being auto-refreshed
type LiveStatus interface {
	LiveRefreshActive() bool
}

type Service struct {
	store  *appstate.Store
	orders services.OrderService
	users  services.UserService
	live   LiveStatus
	now    func() time.Time
}

func NewService(store *appstate.Store, orders services.OrderService, users services.UserService, live LiveStatus) *Service {
	return &Service{
		store:  store,
		orders: orders,
		users:  users,
		live:   live,
		now:    time.Now,
	}
}

// Dashboard refreshes the projection and summarizes it
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	if err := s.store.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "dashboard")
	}
	return BuildDashboard(s.store.Orders(nil), s.store.MenuItems()), nil
}

// Daily reads the orders of day straight from the store
func (s *Service) Daily(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	from, to := common.StartOfDay(day), common.EndOfDay(day)
	orders, err := s.orders.ListOrders(ctx, &models.OrderFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	return BuildDailyReport(day, orders), nil
}

// Live reports today from the projection kept fresh by the live refresh job
func (s *Service) Live(ctx context.Context) (*models.LiveReport, error) {
	today := s.now()
	from, to := common.StartOfDay(today), common.EndOfDay(today)
	orders := s.store.Orders(&models.OrderFilter{From: &from, To: &to})

	report := &models.LiveReport{
		DailyReport:  *BuildDailyReport(today, orders),
		ActiveOrders: ActiveOrders(orders),
		LastRefresh:  s.store.LastRefresh(),
	}
	if s.live != nil {
		report.AutoRefresh = s.live.LiveRefreshActive()
	}
	return report, nil
}

// ExportRange bounds the order and sales exports. Nil ends are open, except
// for sales which default to the last DefaultSalesDays days.
type ExportRange struct {
	From *time.Time
	To   *time.Time
}

// Export writes the CSV for t to w and returns the download filename
func (s *Service) Export(ctx context.Context, t ExportType, r ExportRange, w io.Writer) (string, error) {
	now := s.now()
	switch t {
	case ExportOrders:
		filter := &models.OrderFilter{}
		if r.From != nil {
			from := common.StartOfDay(*r.From)
			filter.From = &from
		}
		if r.To != nil {
			to := common.EndOfDay(*r.To)
			filter.To = &to
		}
		orders, err := s.orders.ListOrders(ctx, filter)
		if err != nil {
			return "", err
		}
		return Filename(t, now), WriteOrders(w, orders)

	case ExportUsers:
		profiles, err := s.users.ListUsers(ctx, nil)
		if err != nil {
			return "", err
		}
		return Filename(t, now), WriteUsers(w, profiles)

	case ExportSales:
		to := common.EndOfDay(now)
		if r.To != nil {
			to = common.EndOfDay(*r.To)
		}
		from := common.StartOfDay(to.AddDate(0, 0, -(DefaultSalesDays - 1)))
		if r.From != nil {
			from = common.StartOfDay(*r.From)
		}
		if err := common.ValidateDateRange(from, to); err != nil {
			return "", err
		}
		orders, err := s.orders.ListOrders(ctx, &models.OrderFilter{From: &from, To: &to})
		if err != nil {
			return "", err
		}
		return Filename(t, now), WriteSales(w, SalesByDay(from, to, orders))
	}
	return "", common.NewValidationError("type", "report type must be one of: order, user, sales")
}
