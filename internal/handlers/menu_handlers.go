package handlers

import (
	"net/http"
	"strings"

	"restaurantpos/internal/appstate"
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/labstack/echo/v4"
)

// MenuHandlers serves the menu catalog. Mutations go through the sync
// store so the shared projection reflects them before the response.
type MenuHandlers struct {
	store       *appstate.Store
	menuService services.MenuService
}

// NewMenuHandlers creates a new menu handlers instance
func NewMenuHandlers(store *appstate.Store, menuService services.MenuService) *MenuHandlers {
	return &MenuHandlers{
		store:       store,
		menuService: menuService,
	}
}

// MenuListResponse is the catalog listing
type MenuListResponse struct {
	Items      []*models.MenuItem `json:"items"`
	Categories []string           `json:"categories"`
	Total      int                `json:"total"`
}

// ListMenuItems handles GET /menu with optional category and q filters
func (h *MenuHandlers) ListMenuItems(c echo.Context) error {
	category := strings.TrimSpace(c.QueryParam("category"))
	query := strings.ToLower(common.SanitizeSearchQuery(c.QueryParam("q")))

	items := make([]*models.MenuItem, 0)
	for _, item := range h.store.MenuItems() {
		if category != "" && !strings.EqualFold(item.Category, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		items = append(items, item)
	}

	return c.JSON(http.StatusOK, MenuListResponse{
		Items:      items,
		Categories: h.menuService.Categories(),
		Total:      len(items),
	})
}

// GetMenuItem handles GET /menu/:id
func (h *MenuHandlers) GetMenuItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	item, err := h.menuService.GetItem(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// CreateMenuItem handles POST /menu
func (h *MenuHandlers) CreateMenuItem(c echo.Context) error {
	var input models.MenuItemInput
	if err := c.Bind(&input); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	item, err := h.store.AddMenuItem(c.Request().Context(), &input)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /menu/:id
func (h *MenuHandlers) UpdateMenuItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	var input models.MenuItemInput
	if err := c.Bind(&input); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	item, err := h.store.UpdateMenuItem(c.Request().Context(), id, &input)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /menu/:id. Past orders keep their line snapshots.
func (h *MenuHandlers) DeleteMenuItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	if err := h.store.DeleteMenuItem(c.Request().Context(), id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadMenuImage handles POST /menu/:id/image as multipart form field "image"
func (h *MenuHandlers) UploadMenuImage(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return common.SendValidationError(c, "image", "image file is required")
	}
	if fileHeader.Size > services.MaxImageSize {
		return common.SendValidationError(c, "image", "image must be 5MB or smaller")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return common.SendClientError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	item, err := h.store.UploadMenuImage(c.Request().Context(), id, file, fileHeader.Size, fileHeader.Header.Get(echo.HeaderContentType))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
