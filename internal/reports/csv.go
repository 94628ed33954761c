package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
)

// ExportType names a downloadable report
type ExportType string

const (
	ExportOrders ExportType = "order"
	ExportUsers  ExportType = "user"
	ExportSales  ExportType = "sales"
)

func (t ExportType) Valid() bool {
	switch t {
	case ExportOrders, ExportUsers, ExportSales:
		return true
	}
	return false
}

const walkInCustomer = "Walk-in"

// Filename is <type>-report-YYYY-MM-DD.csv for the given day
func Filename(t ExportType, day time.Time) string {
	return fmt.Sprintf("%s-report-%s.csv", t, day.Format(common.DateLayout))
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func WriteOrders(w io.Writer, orders []*models.Order) error {
	rows := make([][]string, 0, len(orders))
	for _, order := range orders {
		customer := walkInCustomer
		if order.Customer != nil && order.Customer.Name != "" {
			customer = order.Customer.Name
		}
		rows = append(rows, []string{
			order.ID.String(),
			order.CreatedAt.Local().Format(common.DateLayout),
			customer,
			strconv.Itoa(len(order.Items)),
			order.TotalAmount.StringFixed(2),
			string(order.Status),
		})
	}
	return writeAll(w, []string{"Order ID", "Date", "Customer", "Items", "Total Amount", "Status"}, rows)
}

func WriteUsers(w io.Writer, profiles []*models.Profile) error {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			p.Email,
			string(p.Role),
			p.CreatedAt.Local().Format(common.DateLayout),
		})
	}
	return writeAll(w, []string{"Email", "Role", "Created At"}, rows)
}

func WriteSales(w io.Writer, days []models.SalesDay) error {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			strconv.Itoa(d.Orders),
			strconv.Itoa(d.Completed),
			d.Revenue.StringFixed(2),
		})
	}
	return writeAll(w, []string{"Date", "Orders", "Completed", "Revenue"}, rows)
}
