package handlers

import (
	"net/http"

	"restaurantpos/internal/common"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

type SettingsHandlers struct {
	settingsService services.SettingsService
}

func NewSettingsHandlers(settingsService services.SettingsService) *SettingsHandlers {
	return &SettingsHandlers{
		settingsService: settingsService,
	}
}

// ProjectSettings is the settings payload
type ProjectSettings struct {
	ProjectName string `json:"project_name"`
}

// GetSettings handles GET /settings
func (h *SettingsHandlers) GetSettings(c echo.Context) error {
	name, err := h.settingsService.GetProjectName(c.Request().Context())
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, ProjectSettings{ProjectName: name})
}

// UpdateSettings handles PUT /settings. A blank name restores the default.
func (h *SettingsHandlers) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
	}

	var req ProjectSettings
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	name, err := h.settingsService.SetProjectName(ctx, actorID, req.ProjectName)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, ProjectSettings{ProjectName: name})
}
