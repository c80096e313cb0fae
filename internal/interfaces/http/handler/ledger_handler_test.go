package handler

import (
	"net/http"
	"strconv"
	"testing"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const api = "/api/v1/ledger"

func (s *ledgerServer) createCustomer(t *testing.T, name string) ledgerapp.CustomerResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, api+"/customers", map[string]any{"name": name})
	return readData[ledgerapp.CustomerResponse](t, w, http.StatusCreated)
}

func (s *ledgerServer) dueOrder(t *testing.T, customerID uuid.UUID, total string) ledgerapp.OrderResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, api+"/orders", map[string]any{
		"customer_id":    customerID.String(),
		"items":          []map[string]string{{"quantity": "1", "unit_price": total}},
		"payment_status": "due",
	})
	return readData[ledgerapp.OrderResponse](t, w, http.StatusCreated)
}

func (s *ledgerServer) getOrder(t *testing.T, id uuid.UUID) ledgerapp.OrderResponse {
	t.Helper()
	w := s.do(t, http.MethodGet, api+"/orders/"+id.String(), nil)
	return readData[ledgerapp.OrderResponse](t, w, http.StatusOK)
}

func TestOrderRoutes(t *testing.T) {
	s := newLedgerServer(t)

	t.Run("create with a new customer", func(t *testing.T) {
		w := s.do(t, http.MethodPost, api+"/orders", map[string]any{
			"customer":       map[string]string{"name": "Alice", "phone": "555-0100"},
			"items":          []map[string]string{{"quantity": "2", "unit_price": "50"}},
			"discount":       "10",
			"payment_status": "due",
		})
		order := readData[ledgerapp.OrderResponse](t, w, http.StatusCreated)

		assert.NotEmpty(t, order.OrderNumber)
		assert.Equal(t, "Alice", order.CustomerName)
		assert.True(t, order.CustomerCreated)
		assertDecimal(t, "100", order.Subtotal)
		assertDecimal(t, "90", order.Total)
		assertDecimal(t, "90", order.Outstanding)
		assert.Equal(t, "due", order.PaymentStatus)

		got := s.getOrder(t, order.ID)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
	})

	t.Run("revise amounts", func(t *testing.T) {
		customer := s.createCustomer(t, "Reviser")
		order := s.dueOrder(t, customer.ID, "100")

		w := s.do(t, http.MethodPut, api+"/orders/"+order.ID.String()+"/amounts", map[string]any{
			"items": []map[string]string{{"quantity": "1", "unit_price": "80"}},
		})
		revised := readData[ledgerapp.OrderResponse](t, w, http.StatusOK)
		assertDecimal(t, "80", revised.Total)
		assertDecimal(t, "80", revised.Outstanding)
	})

	t.Run("order numbers increase", func(t *testing.T) {
		first := readData[OrderNumberResponse](t, s.do(t, http.MethodPost, api+"/order-numbers", nil), http.StatusCreated)
		second := readData[OrderNumberResponse](t, s.do(t, http.MethodPost, api+"/order-numbers", nil), http.StatusCreated)

		a, err := strconv.Atoi(first.OrderNumber)
		require.NoError(t, err)
		b, err := strconv.Atoi(second.OrderNumber)
		require.NoError(t, err)
		assert.Greater(t, b, a)
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name   string
			method string
			target string
			body   any
			status int
			code   string
		}{
			{"bad id", http.MethodGet, api + "/orders/nope", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
			{"unknown order", http.MethodGet, api + "/orders/" + uuid.NewString(), nil, http.StatusNotFound, "ORDER_NOT_FOUND"},
			{"no items", http.MethodPost, api + "/orders", map[string]any{"items": []any{}}, http.StatusBadRequest, dto.ErrCodeValidation},
			{
				"negative price", http.MethodPost, api + "/orders",
				map[string]any{"items": []map[string]string{{"quantity": "1", "unit_price": "-1"}}},
				http.StatusBadRequest, dto.ErrCodeValidation,
			},
			{"malformed json", http.MethodPost, api + "/orders", `{"items": [}`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
			{
				"unknown status", http.MethodPost, api + "/orders",
				map[string]any{"items": []map[string]string{{"quantity": "1", "unit_price": "5"}}, "payment_status": "settled"},
				http.StatusBadRequest, "INVALID_PAYMENT_STATUS",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				errInfo := readError(t, s.do(t, tt.method, tt.target, tt.body), tt.status)
				assert.Equal(t, tt.code, errInfo.Code)
			})
		}
	})

	t.Run("validation details name the field", func(t *testing.T) {
		w := s.do(t, http.MethodPost, api+"/orders", map[string]any{
			"items": []map[string]string{{"quantity": "0", "unit_price": "5"}},
		})
		errInfo := readError(t, w, http.StatusBadRequest)
		require.NotEmpty(t, errInfo.Details)
		assert.Equal(t, "quantity", errInfo.Details[0].Field)
	})
}

func TestCustomerRoutes(t *testing.T) {
	s := newLedgerServer(t)

	bob := s.createCustomer(t, "Bob")

	t.Run("find returns the existing customer", func(t *testing.T) {
		w := s.do(t, http.MethodPost, api+"/customers", map[string]any{"name": "Bob"})
		again := readData[ledgerapp.CustomerResponse](t, w, http.StatusOK)
		assert.Equal(t, bob.ID, again.ID)
	})

	t.Run("name required", func(t *testing.T) {
		errInfo := readError(t, s.do(t, http.MethodPost, api+"/customers", map[string]any{}), http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	})

	t.Run("get", func(t *testing.T) {
		got := readData[ledgerapp.CustomerResponse](t, s.do(t, http.MethodGet, api+"/customers/"+bob.ID.String(), nil), http.StatusOK)
		assert.Equal(t, "Bob", got.Name)

		errInfo := readError(t, s.do(t, http.MethodGet, api+"/customers/"+uuid.NewString(), nil), http.StatusNotFound)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", errInfo.Code)
	})

	first := s.dueOrder(t, bob.ID, "100")
	s.dueOrder(t, bob.ID, "50")

	t.Run("summary", func(t *testing.T) {
		w := s.do(t, http.MethodGet, api+"/customers/"+bob.ID.String()+"/summary", nil)
		summary := readData[ledgerapp.CustomerDueSummaryResponse](t, w, http.StatusOK)
		assertDecimal(t, "150", summary.TotalDue)
		assertDecimal(t, "150", summary.Balance)
		assert.Equal(t, 2, summary.OrdersCount)
	})

	t.Run("fifo plan", func(t *testing.T) {
		w := s.do(t, http.MethodGet, api+"/customers/"+bob.ID.String()+"/fifo-plan?amount=120", nil)
		plan := readData[ledgerapp.AllocationPlanResponse](t, w, http.StatusOK)
		require.Len(t, plan.Allocations, 2)
		assert.Equal(t, first.ID, plan.Allocations[0].OrderID)
		assertDecimal(t, "100", plan.Allocations[0].Amount)
		assertDecimal(t, "20", plan.Allocations[1].Amount)
		assertDecimal(t, "0", plan.Remaining)

		// planning writes nothing
		assertDecimal(t, "0", s.getOrder(t, first.ID).PaidAmount)
	})

	t.Run("fifo plan needs a positive amount", func(t *testing.T) {
		for _, q := range []string{"", "?amount=-5", "?amount=abc"} {
			w := s.do(t, http.MethodGet, api+"/customers/"+bob.ID.String()+"/fifo-plan"+q, nil)
			errInfo := readError(t, w, http.StatusBadRequest)
			assert.Equal(t, dto.ErrCodeValidation, errInfo.Code, "query %q", q)
		}
	})

	t.Run("summaries list", func(t *testing.T) {
		s.createCustomer(t, "Carol")

		w := s.do(t, http.MethodGet, api+"/summaries?status=pending", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := readEnvelope(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)

		summaries := readData[[]ledgerapp.CustomerDueSummaryResponse](t, w, http.StatusOK)
		require.Len(t, summaries, 1)
		assert.Equal(t, bob.ID, summaries[0].CustomerID)

		w = s.do(t, http.MethodGet, api+"/summaries?search=car&page_size=5", nil)
		env = readEnvelope(t, w)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Equal(t, 5, env.Meta.PageSize)
	})

	t.Run("summaries reject bad filters", func(t *testing.T) {
		errInfo := readError(t, s.do(t, http.MethodGet, api+"/summaries?status=bogus", nil), http.StatusBadRequest)
		assert.Equal(t, "VALIDATION_FAILED", errInfo.Code)

		errInfo = readError(t, s.do(t, http.MethodGet, api+"/summaries?from_date=yesterday", nil), http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeBadRequest, errInfo.Code)
	})
}

func TestPaymentRoutes(t *testing.T) {
	s := newLedgerServer(t)
	customer := s.createCustomer(t, "Dana")
	order := s.dueOrder(t, customer.ID, "100")

	record := func(body map[string]any, headers ...string) ledgerapp.DuePaymentResponse {
		t.Helper()
		w := s.do(t, http.MethodPost, api+"/payments", body, headers...)
		return readData[ledgerapp.DuePaymentResponse](t, w, http.StatusCreated)
	}

	body := map[string]any{
		"customer_id":    customer.ID.String(),
		"amount":         "40",
		"payment_method": "cash",
		"payment_date":   "2026-01-15",
		"allocations":    []map[string]string{{"order_id": order.ID.String(), "amount": "40"}},
	}
	payment := record(body, "Idempotency-Key", "pay-1")
	assertDecimal(t, "40", payment.AllocatedAmount)
	assertDecimal(t, "0", payment.UnappliedAmount)
	assert.Equal(t, "cash", payment.PaymentMethod)

	settled := s.getOrder(t, order.ID)
	assertDecimal(t, "40", settled.PaidAmount)
	assert.Equal(t, "partial", settled.PaymentStatus)

	t.Run("replayed key", func(t *testing.T) {
		errInfo := readError(t, s.do(t, http.MethodPost, api+"/payments", body, "Idempotency-Key", "pay-1"), http.StatusConflict)
		assert.Equal(t, "DUPLICATE_REQUEST", errInfo.Code)
		assertDecimal(t, "40", s.getOrder(t, order.ID).PaidAmount)
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name   string
			body   map[string]any
			status int
			code   string
		}{
			{
				"unknown method",
				map[string]any{"customer_id": customer.ID.String(), "amount": "5", "payment_method": "barter"},
				http.StatusBadRequest, "INVALID_PAYMENT_METHOD",
			},
			{
				"zero amount",
				map[string]any{"customer_id": customer.ID.String(), "amount": "0", "payment_method": "cash"},
				http.StatusBadRequest, dto.ErrCodeValidation,
			},
			{
				"split finer than four places",
				map[string]any{
					"customer_id": customer.ID.String(), "amount": "10", "payment_method": "cash",
					"allocations": []map[string]string{{"order_id": order.ID.String(), "amount": "1.00005"}},
				},
				http.StatusBadRequest, "INVALID_AMOUNT",
			},
			{
				"over allocation",
				map[string]any{
					"customer_id": customer.ID.String(), "amount": "100", "payment_method": "cash",
					"allocations": []map[string]string{{"order_id": order.ID.String(), "amount": "100"}},
				},
				http.StatusUnprocessableEntity, "ALLOCATION_EXCEEDS_OUTSTANDING",
			},
			{
				"unknown customer",
				map[string]any{"customer_id": uuid.NewString(), "amount": "5", "payment_method": "cash"},
				http.StatusNotFound, "CUSTOMER_NOT_FOUND",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				errInfo := readError(t, s.do(t, http.MethodPost, api+"/payments", tt.body), tt.status)
				assert.Equal(t, tt.code, errInfo.Code)
			})
		}
	})

	t.Run("list and get", func(t *testing.T) {
		w := s.do(t, http.MethodGet, api+"/payments?customer_id="+customer.ID.String(), nil)
		list := readData[[]ledgerapp.DuePaymentResponse](t, w, http.StatusOK)
		require.Len(t, list, 1)
		assert.Equal(t, payment.ID, list[0].ID)
		assert.Equal(t, int64(1), readEnvelope(t, w).Meta.Total)

		got := readData[ledgerapp.DuePaymentResponse](t, s.do(t, http.MethodGet, api+"/payments/"+payment.ID.String(), nil), http.StatusOK)
		require.Len(t, got.Allocations, 1)
		assert.Equal(t, order.ID, got.Allocations[0].OrderID)

		w = s.do(t, http.MethodGet, api+"/payments?sort_by=amount&sort_order=asc", nil)
		assert.Len(t, readData[[]ledgerapp.DuePaymentResponse](t, w, http.StatusOK), 1)

		errInfo := readError(t, s.do(t, http.MethodGet, api+"/payments?sort_by=note", nil), http.StatusBadRequest)
		assert.Equal(t, "ERR_VALIDATION", errInfo.Code)
	})

	t.Run("update", func(t *testing.T) {
		target := api + "/payments/" + payment.ID.String()

		errInfo := readError(t, s.do(t, http.MethodPut, target, map[string]any{"amount": "50"}), http.StatusBadRequest)
		assert.Equal(t, "AMOUNT_NOT_EDITABLE", errInfo.Code)

		updated := readData[ledgerapp.DuePaymentResponse](t,
			s.do(t, http.MethodPut, target, map[string]any{"note": "counter receipt", "payment_method": "card"}), http.StatusOK)
		assert.Equal(t, "counter receipt", updated.Note)
		assert.Equal(t, "card", updated.PaymentMethod)
		assertDecimal(t, "40", updated.Amount)
	})

	t.Run("auto allocate leaves surplus as credit", func(t *testing.T) {
		auto := record(map[string]any{
			"customer_id":    customer.ID.String(),
			"amount":         "80",
			"payment_method": "bank_transfer",
			"auto_allocate":  true,
		})
		assertDecimal(t, "60", auto.AllocatedAmount)
		assertDecimal(t, "20", auto.UnappliedAmount)
		assert.Equal(t, "paid", s.getOrder(t, order.ID).PaymentStatus)

		w := s.do(t, http.MethodDelete, api+"/payments/"+auto.ID.String(), nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("delete reverses allocations", func(t *testing.T) {
		w := s.do(t, http.MethodDelete, api+"/payments/"+payment.ID.String(), nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		errInfo := readError(t, s.do(t, http.MethodGet, api+"/payments/"+payment.ID.String(), nil), http.StatusNotFound)
		assert.Equal(t, "PAYMENT_NOT_FOUND", errInfo.Code)

		reverted := s.getOrder(t, order.ID)
		assertDecimal(t, "0", reverted.PaidAmount)
		assert.Equal(t, "due", reverted.PaymentStatus)
	})
}

func TestBranchScope(t *testing.T) {
	s := newLedgerServer(t)
	customer := s.createCustomer(t, "Eve")
	branch := uuid.New()

	w := s.do(t, http.MethodPost, api+"/payments", map[string]any{
		"customer_id":    customer.ID.String(),
		"amount":         "10",
		"payment_method": "cash",
	}, "X-Branch-ID", branch.String())
	payment := readData[ledgerapp.DuePaymentResponse](t, w, http.StatusCreated)
	require.NotNil(t, payment.BranchID)
	assert.Equal(t, branch, *payment.BranchID)

	w = s.do(t, http.MethodGet, api+"/payments", nil, "X-Branch-ID", uuid.NewString())
	other := readData[[]ledgerapp.DuePaymentResponse](t, w, http.StatusOK)
	assert.Empty(t, other)

	errInfo := readError(t, s.do(t, http.MethodGet, api+"/payments", nil, "X-Branch-ID", "north"), http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeBadRequest, errInfo.Code)
}
