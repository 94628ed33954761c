package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type SettingsService interface {
	GetProjectName(ctx context.Context) (string, error)
	SetProjectName(ctx context.Context, actorID uuid.UUID, name string) (string, error)
}

type settingsService struct {
	repo    repositories.SettingsRepository
	rbacSvc RBACService
}

func NewSettingsService(repo repositories.SettingsRepository, rbacSvc RBACService) SettingsService {
	return &settingsService{
		repo:    repo,
		rbacSvc: rbacSvc,
	}
}

// GetProjectName falls back to the default when nothing has been saved
func (s *settingsService) GetProjectName(ctx context.Context) (string, error) {
	name, err := s.repo.Get(ctx, models.SettingProjectName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.DefaultProjectName, nil
		}
		return "", common.Persistence("load project name", err)
	}
	if strings.TrimSpace(name) == "" {
		return models.DefaultProjectName, nil
	}
	return name, nil
}

// SetProjectName saves a trimmed name; blank resets to the default
func (s *settingsService) SetProjectName(ctx context.Context, actorID uuid.UUID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > models.MaxProjectNameLength {
		return "", common.NewValidationError("project_name", fmt.Sprintf("project name must be at most %d characters", models.MaxProjectNameLength))
	}
	if name == "" {
		name = models.DefaultProjectName
	}
	if _, err := s.rbacSvc.Authorize(ctx, actorID, models.ActionManageSettings); err != nil {
		return "", err
	}
	if err := s.repo.Set(ctx, models.SettingProjectName, name); err != nil {
		return "", common.Persistence("save project name", err)
	}
	return name, nil
}
