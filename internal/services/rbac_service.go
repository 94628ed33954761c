package services

import (
	"context"
	"fmt"
	"strings"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// rolePolicy is the canonical (role, action) table. Anything absent is denied.
var rolePolicy = map[models.Role]map[models.Action]bool{
	models.RoleAdmin: {
		models.ActionViewDashboard:  true,
		models.ActionManageMenu:     true,
		models.ActionManageOrders:   true,
		models.ActionCreateOrder:    true,
		models.ActionManageUsers:    true,
		models.ActionViewReports:    true,
		models.ActionManageSettings: true,
	},
	models.RoleManager: {
		models.ActionViewDashboard: true,
		models.ActionManageMenu:    true,
		models.ActionManageOrders:  true,
		models.ActionViewReports:   true,
	},
	models.RoleCashier: {
		models.ActionViewDashboard: true,
		models.ActionManageOrders:  true,
		models.ActionCreateOrder:   true,
	},
}

var landingPages = map[models.Role]string{
	models.RoleAdmin:   "/dashboard",
	models.RoleManager: "/menu",
	models.RoleCashier: "/new-order",
}

// UnauthorizedRoute is where unrecognized roles are sent
const UnauthorizedRoute = "/unauthorized"

var routeActions = map[string]models.Action{
	"/dashboard": models.ActionViewDashboard,
	"/menu":      models.ActionManageMenu,
	"/orders":    models.ActionManageOrders,
	"/new-order": models.ActionCreateOrder,
	"/users":     models.ActionManageUsers,
	"/reports":   models.ActionViewReports,
	"/settings":  models.ActionManageSettings,
}

var publicRoutes = map[string]bool{
	"/login":          true,
	UnauthorizedRoute: true,
}

// Allowed is the pure policy check. It never consults remote state.
func Allowed(role models.Role, action models.Action) bool {
	return rolePolicy[role][action]
}

// RequiredRoles lists the roles permitted to perform action, in display order
func RequiredRoles(action models.Action) []models.Role {
	var roles []models.Role
	for _, role := range models.Roles {
		if Allowed(role, action) {
			roles = append(roles, role)
		}
	}
	return roles
}

// DefaultLanding returns the page a role is sent to after a denial
func DefaultLanding(role models.Role) string {
	if page, ok := landingPages[role]; ok {
		return page
	}
	return UnauthorizedRoute
}

// RouteAction maps a navigation route to the action that gates it
func RouteAction(route string) (models.Action, bool) {
	action, ok := routeActions[route]
	return action, ok
}

// Deny builds the AuthorizationError for role attempting action
func Deny(role models.Role, action models.Action) error {
	required := RequiredRoles(action)
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	return common.NewAuthorizationError(string(role), string(action), names, DefaultLanding(role))
}

// DenialMessage is the user-facing notice for a denied action
func DenialMessage(action models.Action) string {
	required := RequiredRoles(action)
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	return fmt.Sprintf("Access denied: this page requires the %s role", strings.Join(names, " or "))
}

type RBACService interface {
	CurrentRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
	Authorize(ctx context.Context, userID uuid.UUID, action models.Action) (models.Role, error)
	Navigate(ctx context.Context, userID uuid.UUID, route string) (*models.NavigationDecision, error)
}

type rbacService struct {
	profileRepo repositories.ProfileRepository
}

func NewRBACService(profileRepo repositories.ProfileRepository) RBACService {
	return &rbacService{
		profileRepo: profileRepo,
	}
}

// CurrentRole re-reads the role from the profile record. Another admin may have
// changed it since the caller's token was issued, so it is never cached.
func (s *rbacService) CurrentRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	role, err := s.profileRepo.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil
		}
		return "", common.Persistence("load role", err)
	}
	return role, nil
}

func (s *rbacService) Authorize(ctx context.Context, userID uuid.UUID, action models.Action) (models.Role, error) {
	role, err := s.CurrentRole(ctx, userID)
	if err != nil {
		return "", err
	}
	if !Allowed(role, action) {
		return role, Deny(role, action)
	}
	return role, nil
}

func (s *rbacService) Navigate(ctx context.Context, userID uuid.UUID, route string) (*models.NavigationDecision, error) {
	if publicRoutes[route] {
		return &models.NavigationDecision{Route: route, Allowed: true}, nil
	}
	action, ok := RouteAction(route)
	if !ok {
		return nil, common.NewValidationError("route", fmt.Sprintf("unknown route %s", route))
	}

	role, err := s.CurrentRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	decision := &models.NavigationDecision{Route: route, Role: role, Allowed: Allowed(role, action)}
	if !decision.Allowed {
		decision.Redirect = DefaultLanding(role)
		decision.Message = DenialMessage(action)
	}
	return decision, nil
}
