package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.RequestIDKey, "req-1")
	return c, w
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "validation",
			err:     shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive"),
			status:  http.StatusBadRequest,
			code:    "INVALID_AMOUNT",
			message: "Payment amount must be positive",
		},
		{
			name:   "not found",
			err:    shared.NewNotFoundError("ORDER_NOT_FOUND", "Order x not found"),
			status: http.StatusNotFound,
			code:   "ORDER_NOT_FOUND",
		},
		{
			name:   "consistency",
			err:    shared.NewConsistencyError("ALLOCATION_EXCEEDS_OUTSTANDING", "too much"),
			status: http.StatusUnprocessableEntity,
			code:   "ALLOCATION_EXCEEDS_OUTSTANDING",
		},
		{
			name:   "wrapped concurrency conflict",
			err:    fmt.Errorf("save order: %w", shared.ErrConcurrencyConflict),
			status: http.StatusConflict,
			code:   "CONCURRENT_MODIFICATION",
		},
		{
			name:    "plain error hides its text",
			err:     errors.New("pq: connection refused"),
			status:  http.StatusInternalServerError,
			code:    dto.ErrCodeInternal,
			message: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(t)
			h := &BaseHandler{}

			h.HandleError(c, tt.err)

			errInfo := readError(t, w, tt.status)
			assert.Equal(t, tt.code, errInfo.Code)
			assert.Equal(t, "req-1", errInfo.RequestID)
			if tt.message != "" {
				assert.Equal(t, tt.message, errInfo.Message)
			}
			assert.True(t, c.IsAborted())
			assert.Len(t, c.Errors, 1)
		})
	}

	t.Run("nil is a no-op", func(t *testing.T) {
		c, w := newTestContext(t)
		(&BaseHandler{}).HandleError(c, nil)
		assert.False(t, c.IsAborted())
		assert.Equal(t, 0, w.Body.Len())
	})
}

func TestBaseHandler_BindError(t *testing.T) {
	validatorOnce.Do(func() {
		require.NoError(t, middleware.SetupValidator())
	})

	bind := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req AllocationInput
		err := c.ShouldBindJSON(&req)
		require.Error(t, err)
		(&BaseHandler{}).BindError(c, err)
		return w
	}

	t.Run("validator errors carry details", func(t *testing.T) {
		errInfo := readError(t, bind(`{"order_id":"x","amount":"5"}`), http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
		require.Len(t, errInfo.Details, 1)
		assert.Equal(t, "order_id", errInfo.Details[0].Field)
	})

	t.Run("syntax error", func(t *testing.T) {
		errInfo := readError(t, bind(`{"order_id": }`), http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeInvalidJSON, errInfo.Code)
	})

	t.Run("type error", func(t *testing.T) {
		errInfo := readError(t, bind(`{"order_id": 7}`), http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeInvalidJSON, errInfo.Code)
	})
}

func TestBaseHandler_SuccessWithMeta(t *testing.T) {
	c, w := newTestContext(t)
	(&BaseHandler{}).SuccessWithMeta(c, []string{"a", "b"}, 7, 2, 2)

	require.Equal(t, http.StatusOK, w.Code)
	env := readEnvelope(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(7), env.Meta.Total)
	assert.Equal(t, 4, env.Meta.TotalPages)
}
