package services

import (
	"context"
	"log"
	"strings"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type UserService interface {
	ListUsers(ctx context.Context, filter *models.ProfileFilter) ([]*models.Profile, error)
	UpdateRole(ctx context.Context, actorID, userID uuid.UUID, role models.Role) (*models.Profile, error)
	EnsureUser(ctx context.Context, email, password string, role models.Role) (*models.Profile, bool, error)
}

type userService struct {
	profileRepo repositories.ProfileRepository
	rbacSvc     RBACService
	authSvc     AuthService
}

func NewUserService(profileRepo repositories.ProfileRepository, rbacSvc RBACService, authSvc AuthService) UserService {
	return &userService{
		profileRepo: profileRepo,
		rbacSvc:     rbacSvc,
		authSvc:     authSvc,
	}
}

func (s *userService) ListUsers(ctx context.Context, filter *models.ProfileFilter) ([]*models.Profile, error) {
	if filter != nil {
		if filter.Role != "" && !filter.Role.Valid() {
			return nil, common.NewValidationError("role", "role must be one of: admin, manager, cashier")
		}
		filter.Query = common.SanitizeSearchQuery(filter.Query)
	}
	profiles, err := s.profileRepo.List(ctx, filter)
	if err != nil {
		return nil, common.Persistence("list users", err)
	}
	if profiles == nil {
		profiles = []*models.Profile{}
	}
	return profiles, nil
}

// UpdateRole re-checks the actor against the store; the target sees the new
// role on its next request because every guard re-reads it.
func (s *userService) UpdateRole(ctx context.Context, actorID, userID uuid.UUID, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, common.NewValidationError("role", "role must be one of: admin, manager, cashier")
	}
	if _, err := s.rbacSvc.Authorize(ctx, actorID, models.ActionManageUsers); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, common.Persistence("load user", err)
	}
	if profile.Role == role {
		return profile, nil
	}

	if err := s.profileRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, common.Persistence("update role", err)
	}
	log.Printf("INFO: user %s changed role of %s from %s to %s", actorID, userID, profile.Role, role)
	profile.Role = role
	return profile, nil
}

// EnsureUser creates the account or corrects the role of an existing one.
// The bool reports whether a profile was created.
func (s *userService) EnsureUser(ctx context.Context, email, password string, role models.Role) (*models.Profile, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !role.Valid() {
		return nil, false, common.NewValidationError("role", "role must be one of: admin, manager, cashier")
	}

	existing, err := s.profileRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != role {
			if err := s.profileRepo.UpdateRole(ctx, existing.ID, role); err != nil {
				return nil, false, common.Persistence("update role", err)
			}
			existing.Role = role
		}
		return existing, false, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, common.Persistence("load user", err)
	}

	if err := validateCredentials(email, password); err != nil {
		return nil, false, err
	}
	hash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, false, common.Persistence("create user", err)
	}
	return profile, true, nil
}
