package ledger

import (
	"context"
	"testing"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/sqlitetest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

type fixture struct {
	db          *gorm.DB
	idempotency *cache.InMemoryIdempotencyStore
	orders      *OrderFinancialService
	payments    *PaymentAllocationService
	ledger      *CustomerLedgerService
	customers   *CustomerService
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	db := sqlitetest.Open(t)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	uow := persistence.NewGormUnitOfWork(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	customerRepo := persistence.NewGormCustomerRepository(db)
	paymentRepo := persistence.NewGormDuePaymentRepository(db)
	logger := zap.NewNop()

	return &fixture{
		db:          db,
		idempotency: store,
		orders:      NewOrderFinancialService(uow, orderRepo, settings, nil, logger),
		payments:    NewPaymentAllocationService(uow, orderRepo, customerRepo, paymentRepo, store, settings, nil, logger),
		ledger:      NewCustomerLedgerService(persistence.NewGormLedgerReader(db), settings, nil, logger),
		customers:   NewCustomerService(uow, customerRepo, logger),
	}
}

// dueOrder books a due order of a single line at the given total
func (f *fixture) dueOrder(t *testing.T, customerID uuid.UUID, total string) *OrderResponse {
	t.Helper()
	resp, err := f.orders.CreateOrderFinancials(context.Background(), CreateOrderRequest{
		CustomerID:    &customerID,
		Items:         []LineItemInput{{Quantity: decimal.NewFromInt(1), UnitPrice: d(total)}},
		PaymentStatus: "due",
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) customer(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp, _, err := f.customers.FindOrCreateCustomer(context.Background(), CustomerInput{Name: name})
	require.NoError(t, err)
	return resp.ID
}

func (f *fixture) order(t *testing.T, id uuid.UUID) *OrderResponse {
	t.Helper()
	resp, err := f.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return resp
}

func assertKind(t *testing.T, want shared.ErrorKind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, shared.KindOf(err), "error: %v", err)
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}
