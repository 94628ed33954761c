package common

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinels used as markers. Match them with errors.Is from github.com/cockroachdb/errors.
var (
	ErrValidation        = errors.New("validation failed")
	ErrAuthorization     = errors.New("not authorized")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("too many attempts")
)

// ValidationError reports bad input on a single field. No store call has been made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError returns a ValidationError marked with ErrValidation.
func NewValidationError(field, message string) error {
	return errors.Mark(&ValidationError{Field: field, Message: message}, ErrValidation)
}

// AuthorizationError is a policy denial. Redirect is the role's landing page.
type AuthorizationError struct {
	Role     string
	Action   string
	Required []string
	Redirect string
}

func (e *AuthorizationError) Error() string {
	role := e.Role
	if role == "" {
		role = "unknown"
	}
	return fmt.Sprintf("role %s may not %s; requires one of: %s", role, e.Action, strings.Join(e.Required, ", "))
}

// NewAuthorizationError returns an AuthorizationError marked with ErrAuthorization.
func NewAuthorizationError(role, action string, required []string, redirect string) error {
	return errors.Mark(&AuthorizationError{
		Role:     role,
		Action:   action,
		Required: required,
		Redirect: redirect,
	}, ErrAuthorization)
}

// TransitionError is an order status change outside the lifecycle table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// NewTransitionError returns a TransitionError marked with ErrInvalidTransition.
func NewTransitionError(from, to string) error {
	return errors.Mark(&TransitionError{From: from, To: to}, ErrInvalidTransition)
}

// Persistence converts a store error into a persistence failure. The cause stays
// reachable, so errors.Is(err, ErrNotFound) still holds for missing rows.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "failed to %s", op), ErrPersistence)
}

// IsRetryable reports whether the caller may simply try again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict)
}
