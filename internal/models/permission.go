package models

// Action is something a role may or may not be permitted to do.
type Action string

const (
	ActionViewDashboard  Action = "view-dashboard"
	ActionManageMenu     Action = "manage-menu"
	ActionManageOrders   Action = "manage-orders"
	ActionCreateOrder    Action = "create-order"
	ActionManageUsers    Action = "manage-users"
	ActionViewReports    Action = "view-reports"
	ActionManageSettings Action = "manage-settings"
)

// Actions lists every action known to the policy.
var Actions = []Action{
	ActionViewDashboard,
	ActionManageMenu,
	ActionManageOrders,
	ActionCreateOrder,
	ActionManageUsers,
	ActionViewReports,
	ActionManageSettings,
}

// NavigationDecision is the outcome of checking a route for the current user.
type NavigationDecision struct {
	Route    string `json:"route"`
	Allowed  bool   `json:"allowed"`
	Role     Role   `json:"role,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}
