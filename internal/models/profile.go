package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the single role an account holds.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// Roles lists every recognized role in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleCashier}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier:
		return true
	}
	return false
}

// Profile is the authoritative account record. Role is only ever read from here.
type Profile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProfileFilter narrows the user management listing
type ProfileFilter struct {
	Query string `json:"query,omitempty"` // substring of the email, case-insensitive
	Role  Role   `json:"role,omitempty"`
}
