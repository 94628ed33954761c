package common

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// DateLayout is the calendar date format used by query parameters and reports
const DateLayout = "2006-01-02"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, map[string]string{"retryable": "true"}))
}

// SendForbiddenError sends a policy denial with the redirect the client should follow
func SendForbiddenError(c echo.Context, authErr *AuthorizationError) error {
	details := map[string]string{
		"redirect": authErr.Redirect,
		"required": strings.Join(authErr.Required, ","),
	}
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", authErr.Error(), details))
}

// SendError maps an error from the service layer onto the response taxonomy.
func SendError(c echo.Context, err error) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return SendValidationError(c, validationErr.Field, validationErr.Message)
	}

	var authErr *AuthorizationError
	if errors.As(err, &authErr) {
		return SendForbiddenError(c, authErr)
	}

	var transitionErr *TransitionError
	if errors.As(err, &transitionErr) {
		return c.JSON(http.StatusConflict, CreateErrorResponse("INVALID_TRANSITION", transitionErr.Error(), map[string]string{
			"from": transitionErr.From,
			"to":   transitionErr.To,
		}))
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	case errors.Is(err, ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", err.Error(), nil))
	case errors.Is(err, ErrConflict):
		return c.JSON(http.StatusConflict, CreateErrorResponse("CONFLICT", err.Error(), nil))
	case errors.Is(err, ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, CreateErrorResponse("RATE_LIMITED", err.Error(), nil))
	}

	log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Path(), err)
	return SendServerError(c, "The operation could not be completed, please retry")
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, NewValidationError(fieldName, fmt.Sprintf("%s is required", fieldName))
	}
	if len(idStr) != 36 {
		return uuid.Nil, NewValidationError(fieldName, fmt.Sprintf("%s must be exactly 36 characters (including hyphens)", fieldName))
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, NewValidationError(fieldName, fmt.Sprintf("%s contains invalid characters", fieldName))
	}
	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fieldName, fmt.Sprintf("%s is required", fieldName))
	}
	return nil
}

// ParseDate parses an optional YYYY-MM-DD query value
func ParseDate(dateStr, fieldName string) (*time.Time, error) {
	if strings.TrimSpace(dateStr) == "" {
		return nil, nil
	}
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(dateStr), time.Local)
	if err != nil {
		return nil, NewValidationError(fieldName, fmt.Sprintf("%s must be in YYYY-MM-DD format", fieldName))
	}
	return &date, nil
}

// StartOfDay returns midnight of t in its location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ValidateDateRange validates date ranges to prevent abuse
func ValidateDateRange(startDate, endDate time.Time) error {
	if endDate.Before(startDate) {
		return NewValidationError("to", "end date cannot be before start date")
	}
	if endDate.Sub(startDate) > time.Hour*24*366 {
		return NewValidationError("to", "date range cannot exceed one year")
	}
	return nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// maxSearchQueryLen bounds search input in bytes
const maxSearchQueryLen = 100

// SanitizeSearchQuery trims the query and bounds its length without splitting a rune
func SanitizeSearchQuery(query string) string {
	query = strings.TrimSpace(query)
	if len(query) > maxSearchQueryLen {
		cut := maxSearchQueryLen
		for cut > 0 && !utf8.RuneStart(query[cut]) {
			cut--
		}
		query = query[:cut]
	}
	return strings.TrimSpace(query)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ContainsPattern turns a search query into an ILIKE substring pattern. The
// wildcards in the query match literally; use it with ESCAPE '\'.
func ContainsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// WithUserID returns a copy of ctx carrying the authenticated user ID
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRoleFromContext returns the role the RBAC middleware resolved for this request
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// WithRole returns a copy of ctx carrying the freshly resolved role
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}
