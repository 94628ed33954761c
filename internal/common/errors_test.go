package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMarkers(t *testing.T) {
	validation := NewValidationError("price", "price must be greater than 0")
	assert.True(t, errors.Is(validation, ErrValidation))
	assert.False(t, errors.Is(validation, ErrPersistence))

	var ve *ValidationError
	require.True(t, errors.As(validation, &ve))
	assert.Equal(t, "price", ve.Field)

	transition := NewTransitionError("completed", "pending")
	assert.True(t, errors.Is(transition, ErrInvalidTransition))
	assert.Equal(t, "cannot move order from completed to pending", transition.Error())

	denied := NewAuthorizationError("cashier", "manage-menu", []string{"admin", "manager"}, "/new-order")
	assert.True(t, errors.Is(denied, ErrAuthorization))
	assert.Contains(t, denied.Error(), "requires one of: admin, manager")
}

func TestPersistenceKeepsCause(t *testing.T) {
	assert.Nil(t, Persistence("list orders", nil))

	err := Persistence("delete menu item", ErrNotFound)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsRetryable(err))

	err = Persistence("list orders", pgx.ErrTxClosed)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "failed to list orders")
}

func TestSendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail map[string]string
	}{
		{
			name:       "validation",
			err:        NewValidationError("name", "name is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantDetail: map[string]string{"name": "name is required"},
		},
		{
			name:       "authorization",
			err:        NewAuthorizationError("cashier", "manage-menu", []string{"admin", "manager"}, "/new-order"),
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
			wantDetail: map[string]string{"redirect": "/new-order", "required": "admin,manager"},
		},
		{
			name:       "transition",
			err:        NewTransitionError("cancelled", "completed"),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_TRANSITION",
			wantDetail: map[string]string{"from": "cancelled", "to": "completed"},
		},
		{
			name:       "not found through persistence",
			err:        Persistence("update order status", ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "store failure",
			err:        Persistence("create order", errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "SERVER_ERROR",
			wantDetail: map[string]string{"retryable": "true"},
		},
		{
			name:       "rate limited",
			err:        errors.Wrap(ErrRateLimited, "login"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, SendError(c, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantDetail != nil {
				assert.Equal(t, tt.wantDetail, resp.Error.Details)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	id, err := ValidateUUID(" 550e8400-e29b-41d4-a716-446655440000 ", "id")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	_, err = ValidateUUID("", "id")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ValidateUUID("550e8400-e29b-41d4-g716-446655440000", "id")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDayBounds(t *testing.T) {
	day, err := ParseDate("2024-03-09", "date")
	require.NoError(t, err)
	start := StartOfDay(*day)
	end := EndOfDay(*day)
	assert.Equal(t, 9, start.Day())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 9, end.Day())
	assert.Equal(t, 23, end.Hour())

	none, err := ParseDate("", "date")
	assert.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseDate("09/03/2024", "date")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSanitizeSearchQuery(t *testing.T) {
	assert.Equal(t, "al%ice_", SanitizeSearchQuery("  al%ice_ "))
	assert.Equal(t, "raj_k@x.in", SanitizeSearchQuery("raj_k@x.in"))
	assert.Equal(t, "", SanitizeSearchQuery("   "))

	long := SanitizeSearchQuery(strings.Repeat("a", 99) + "é")
	assert.True(t, utf8.ValidString(long))
	assert.Equal(t, strings.Repeat("a", 99), long)

	devanagari := SanitizeSearchQuery(strings.Repeat("क", 40))
	assert.True(t, utf8.ValidString(devanagari))
	assert.LessOrEqual(t, len(devanagari), 100)
	assert.Equal(t, 33, utf8.RuneCountInString(devanagari))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%asha%", ContainsPattern("asha"))
	assert.Equal(t, `%raj\_k@x.in%`, ContainsPattern("raj_k@x.in"))
	assert.Equal(t, `%50\%%`, ContainsPattern("50%"))
	assert.Equal(t, `%a\\b%`, ContainsPattern(`a\b`))
}
