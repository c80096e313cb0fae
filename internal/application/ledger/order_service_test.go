package ledger

import (
	"context"
	"strconv"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestOrderFinancialService_NextOrderNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("starts at one and increments", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		first, err := f.orders.NextOrderNumber(ctx)
		require.NoError(t, err)
		second, err := f.orders.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", first)
		assert.Equal(t, "2", second)
	})

	t.Run("concurrent callers get distinct sequential numbers", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		const callers = 12
		numbers := make([]string, callers)

		var g errgroup.Group
		for i := 0; i < callers; i++ {
			g.Go(func() error {
				n, err := f.orders.NextOrderNumber(ctx)
				numbers[i] = n
				return err
			})
		}
		require.NoError(t, g.Wait())

		seen := make(map[int]bool, callers)
		for _, n := range numbers {
			v, err := strconv.Atoi(n)
			require.NoError(t, err)
			assert.False(t, seen[v], "duplicate order number %d", v)
			seen[v] = true
		}
		for v := 1; v <= callers; v++ {
			assert.True(t, seen[v], "order number %d missing", v)
		}
	})

	t.Run("uses the configured counter", func(t *testing.T) {
		settings := DefaultSettings()
		settings.CounterName = "branch_a_orders"
		f := newFixture(t, settings)

		n, err := f.orders.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", n)

		var value int64
		require.NoError(t, f.db.Table("order_counters").Select("value").Where("name = ?", "branch_a_orders").Scan(&value).Error)
		assert.Equal(t, int64(1), value)
	})
}

func TestOrderFinancialService_CreateOrderFinancials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings())
	branch := uuid.New()

	t.Run("due order creates its customer and owes the total", func(t *testing.T) {
		resp, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			Customer: &CustomerInput{Name: "  Karim Traders ", Phone: "0171"},
			BranchID: &branch,
			Items: []LineItemInput{
				{Quantity: decimal.NewFromInt(2), UnitPrice: d("30")},
				{Quantity: decimal.NewFromInt(1), UnitPrice: d("50")},
			},
			Discount:      d("10"),
			PaymentStatus: "due",
		})
		require.NoError(t, err)

		assert.Equal(t, "1", resp.OrderNumber)
		assert.True(t, resp.CustomerCreated)
		require.NotNil(t, resp.CustomerID)
		assert.Equal(t, "Karim Traders", resp.CustomerName)
		assertAmount(t, "110", resp.Subtotal)
		assertAmount(t, "100", resp.Total)
		require.NotNil(t, resp.DueAmount)
		assertAmount(t, "100", *resp.DueAmount)
		assertAmount(t, "0", resp.PaidAmount)
		assertAmount(t, "100", resp.Outstanding)
		assert.Equal(t, "due", resp.PaymentStatus)

		customer, err := f.customers.GetCustomer(ctx, *resp.CustomerID)
		require.NoError(t, err)
		require.NotNil(t, customer.BranchID)
		assert.Equal(t, branch, *customer.BranchID)
	})

	t.Run("same name and phone reuses the customer", func(t *testing.T) {
		first, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			Customer:      &CustomerInput{Name: "Nadia", Phone: "555"},
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("10")}},
			PaymentStatus: "due",
		})
		require.NoError(t, err)
		second, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			Customer:      &CustomerInput{Name: "Nadia", Phone: "555"},
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("15")}},
			PaymentStatus: "due",
		})
		require.NoError(t, err)

		assert.True(t, first.CustomerCreated)
		assert.False(t, second.CustomerCreated)
		assert.Equal(t, *first.CustomerID, *second.CustomerID)
	})

	t.Run("partial order keeps the declared amounts", func(t *testing.T) {
		due := d("80")
		customerID := f.customer(t, "Partial Buyer")
		resp, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			CustomerID:    &customerID,
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("100")}},
			PaymentStatus: "partial",
			PaidAmount:    d("30"),
			DueAmount:     &due,
		})
		require.NoError(t, err)
		assert.Equal(t, "partial", resp.PaymentStatus)
		assertAmount(t, "30", resp.PaidAmount)
		assertAmount(t, "50", resp.Outstanding)
	})

	t.Run("paid walk-in sale needs no customer", func(t *testing.T) {
		resp, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(3), UnitPrice: d("5")}},
			PaymentStatus: "PAID",
			PaidAmount:    d("15"),
		})
		require.NoError(t, err)
		assert.Nil(t, resp.CustomerID)
		assert.Equal(t, "paid", resp.PaymentStatus)
		assertAmount(t, "15", resp.PaidAmount)
		assert.Nil(t, resp.DueAmount)
	})

	t.Run("credit sale without a customer is rejected", func(t *testing.T) {
		_, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("5")}},
			PaymentStatus: "due",
		})
		assertKind(t, shared.KindValidation, err)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		customerID := f.customer(t, "Status Tester")
		_, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			CustomerID:    &customerID,
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("5")}},
			PaymentStatus: "refunded",
		})
		assertCode(t, ledger.CodeInvalidPaymentStatus, err)
	})

	t.Run("discount above subtotal is rejected", func(t *testing.T) {
		customerID := f.customer(t, "Discount Tester")
		_, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
			CustomerID:    &customerID,
			Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("5")}},
			Discount:      d("6"),
			PaymentStatus: "due",
		})
		assertKind(t, shared.KindValidation, err)
	})
}

func TestOrderFinancialService_FailedInsertKeepsNumbering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings())
	customerID := f.customer(t, "Gapless")

	first := f.dueOrder(t, customerID, "10")
	assert.Equal(t, "1", first.OrderNumber)

	missing := uuid.New()
	_, err := f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
		CustomerID:    &missing,
		Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("10")}},
		PaymentStatus: "due",
	})
	assertCode(t, ledger.CodeCustomerNotFound, err)

	due := d("200")
	_, err = f.orders.CreateOrderFinancials(ctx, CreateOrderRequest{
		CustomerID:    &customerID,
		Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("10")}},
		PaymentStatus: "partial",
		DueAmount:     &due,
	})
	assertKind(t, shared.KindValidation, err)

	second := f.dueOrder(t, customerID, "10")
	assert.Equal(t, "2", second.OrderNumber)
}

func TestOrderFinancialService_ReviseOrderAmounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings())
	customerID := f.customer(t, "Reviser")

	t.Run("due amount follows the new total", func(t *testing.T) {
		order := f.dueOrder(t, customerID, "100")
		resp, err := f.orders.ReviseOrderAmounts(ctx, order.ID, ReviseOrderRequest{
			Items: []LineItemInput{{Quantity: decimal.NewFromInt(2), UnitPrice: d("60")}},
		})
		require.NoError(t, err)
		assertAmount(t, "120", resp.Total)
		require.NotNil(t, resp.DueAmount)
		assertAmount(t, "120", *resp.DueAmount)
		assert.Equal(t, "due", resp.PaymentStatus)
		assert.Equal(t, 2, resp.Version)
	})

	t.Run("edit below the paid amount is refused", func(t *testing.T) {
		order := f.dueOrder(t, customerID, "100")
		_, err := f.payments.RecordPayment(ctx, RecordPaymentRequest{
			CustomerID:    customerID,
			Amount:        d("60"),
			PaymentMethod: "cash",
			Allocations:   []AllocationInput{{OrderID: order.ID, Amount: d("60")}},
		})
		require.NoError(t, err)

		_, err = f.orders.ReviseOrderAmounts(ctx, order.ID, ReviseOrderRequest{
			Items: []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("50")}},
		})
		assertCode(t, ledger.CodePaidExceedsOwed, err)

		unchanged := f.order(t, order.ID)
		assertAmount(t, "100", unchanged.Total)
		assert.Equal(t, "partial", unchanged.PaymentStatus)

		settled, err := f.orders.ReviseOrderAmounts(ctx, order.ID, ReviseOrderRequest{
			Items: []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("60")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "paid", settled.PaymentStatus)
		assertAmount(t, "0", settled.Outstanding)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.orders.ReviseOrderAmounts(ctx, uuid.New(), ReviseOrderRequest{
			Items: []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d("1")}},
		})
		assertKind(t, shared.KindNotFound, err)
	})
}
