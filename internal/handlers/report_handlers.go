package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/reports"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

// LiveRefresher starts and stops the live report poll for one viewer
type LiveRefresher interface {
	StartLiveRefresh(viewer string) error
	StopLiveRefresh(viewer string) error
}

// ReportHandlers serves the dashboard, reports and CSV exports
type ReportHandlers struct {
	reports     *reports.Service
	live        LiveRefresher
	rbacService services.RBACService
}

// NewReportHandlers creates a new report handlers instance
func NewReportHandlers(reportService *reports.Service, live LiveRefresher, rbacService services.RBACService) *ReportHandlers {
	return &ReportHandlers{
		reports:     reportService,
		live:        live,
		rbacService: rbacService,
	}
}

// Dashboard handles GET /dashboard
func (h *ReportHandlers) Dashboard(c echo.Context) error {
	stats, err := h.reports.Dashboard(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// DailyReport handles GET /reports/daily?date=YYYY-MM-DD, defaulting to today
func (h *ReportHandlers) DailyReport(c echo.Context) error {
	day, err := common.ParseDate(c.QueryParam("date"), "date")
	if err != nil {
		return common.SendError(c, err)
	}
	if day == nil {
		today := time.Now()
		day = &today
	}

	report, err := h.reports.Daily(c.Request().Context(), *day)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// LiveReport handles GET /reports/live
func (h *ReportHandlers) LiveReport(c echo.Context) error {
	report, err := h.reports.Live(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// StartLiveRefresh handles POST /reports/live/subscription
func (h *ReportHandlers) StartLiveRefresh(c echo.Context) error {
	viewer, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
	}
	if err := h.live.StartLiveRefresh(viewer.String()); err != nil {
		return common.SendError(c, errors.Wrap(err, "start live refresh"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"auto_refresh": true})
}

// StopLiveRefresh handles DELETE /reports/live/subscription
func (h *ReportHandlers) StopLiveRefresh(c echo.Context) error {
	viewer, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
	}
	if err := h.live.StopLiveRefresh(viewer.String()); err != nil {
		return common.SendError(c, errors.Wrap(err, "stop live refresh"))
	}
	return c.JSON(http.StatusOK, map[string]bool{"auto_refresh": false})
}

// ExportReport handles GET /reports/export/:type?from=&to=. The user export
// additionally requires manage-users.
func (h *ReportHandlers) ExportReport(c echo.Context) error {
	ctx := c.Request().Context()

	exportType := reports.ExportType(c.Param("type"))
	if !exportType.Valid() {
		return common.SendValidationError(c, "type", "report type must be one of: order, user, sales")
	}

	if exportType == reports.ExportUsers {
		userID, ok := common.GetUserIDFromContext(ctx)
		if !ok {
			return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
		}
		if _, err := h.rbacService.Authorize(ctx, userID, models.ActionManageUsers); err != nil {
			return common.SendError(c, err)
		}
	}

	var r reports.ExportRange
	var err error
	if r.From, err = common.ParseDate(c.QueryParam("from"), "from"); err != nil {
		return common.SendError(c, err)
	}
	if r.To, err = common.ParseDate(c.QueryParam("to"), "to"); err != nil {
		return common.SendError(c, err)
	}

	// Buffered so a failure mid-export still produces an error response
	var buf bytes.Buffer
	filename, err := h.reports.Export(ctx, exportType, r, &buf)
	if err != nil {
		return common.SendError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
