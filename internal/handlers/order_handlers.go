package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"restaurantpos/internal/appstate"
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/labstack/echo/v4"
)

const defaultOrderPageSize = 50

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	store        *appstate.Store
	orderService services.OrderService
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(store *appstate.Store, orderService services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		store:        store,
		orderService: orderService,
	}
}

// CreateOrderRequest is the POST /orders payload
type CreateOrderRequest struct {
	Items    []models.OrderLineInput `json:"items"`
	Customer *models.Customer        `json:"customer,omitempty"`
}

// UpdateStatusRequest is the PUT /orders/:id/status payload
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// OrderListResponse is a page of orders
type OrderListResponse struct {
	Orders []*models.Order `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.store.CreateOrder(c.Request().Context(), req.Items, req.Customer)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// UpdateOrderStatus handles PUT /orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	order, err := h.store.UpdateOrderStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /orders?from=&to=&status=&q=&sort=&limit=&offset=
func (h *OrderHandlers) ListOrders(c echo.Context) error {
	filter, err := parseOrderFilter(c)
	if err != nil {
		return common.SendError(c, err)
	}

	orders, err := h.orderService.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, OrderListResponse{
		Orders: orders,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func parseOrderFilter(c echo.Context) (*models.OrderFilter, error) {
	filter := &models.OrderFilter{
		Status: models.OrderStatus(strings.TrimSpace(c.QueryParam("status"))),
		Query:  common.SanitizeSearchQuery(c.QueryParam("q")),
	}

	from, err := common.ParseDate(c.QueryParam("from"), "from")
	if err != nil {
		return nil, err
	}
	if from != nil {
		start := common.StartOfDay(*from)
		filter.From = &start
	}
	to, err := common.ParseDate(c.QueryParam("to"), "to")
	if err != nil {
		return nil, err
	}
	if to != nil {
		end := common.EndOfDay(*to)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, common.NewValidationError("to", "to must not be before from")
	}

	switch sort := strings.ToLower(c.QueryParam("sort")); sort {
	case "", "desc", "asc":
		filter.SortOrder = sort
	default:
		return nil, common.NewValidationError("sort", "sort must be asc or desc")
	}

	limit := defaultOrderPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return nil, common.NewValidationError("limit", "limit must be a number")
		}
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return nil, common.NewValidationError("offset", "offset must be a number")
		}
	}
	filter.Limit, filter.Offset = common.ValidatePaginationParams(limit, offset)
	return filter, nil
}
