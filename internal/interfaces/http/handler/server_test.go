package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/sqlitetest"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var validatorOnce sync.Once

// envelope mirrors dto.Response with the data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type ledgerServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

// newLedgerServer wires the ledger routes over an in-memory database the way
// the server binary does, minus telemetry.
func newLedgerServer(t *testing.T) *ledgerServer {
	t.Helper()
	validatorOnce.Do(func() {
		require.NoError(t, middleware.SetupValidator())
	})

	db := sqlitetest.Open(t)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	uow := persistence.NewGormUnitOfWork(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	customerRepo := persistence.NewGormCustomerRepository(db)
	paymentRepo := persistence.NewGormDuePaymentRepository(db)
	settings := ledgerapp.DefaultSettings()

	orders := ledgerapp.NewOrderFinancialService(uow, orderRepo, settings, nil, nil)
	payments := ledgerapp.NewPaymentAllocationService(uow, orderRepo, customerRepo, paymentRepo, store, settings, nil, nil)
	ledgerSvc := ledgerapp.NewCustomerLedgerService(persistence.NewGormLedgerReader(db), settings, nil, nil)
	customers := ledgerapp.NewCustomerService(uow, customerRepo, nil)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine, router.WithAPIMiddleware(middleware.BranchScope()))
	r.Register(LedgerRoutes(
		NewOrderHandler(orders),
		NewCustomerHandler(customers, ledgerSvc, payments),
		NewDuePaymentHandler(payments),
	))
	r.RegisterRoot(SystemRoutes(NewSystemHandler("due-ledger", "test", map[string]Pinger{
		"database": PingerFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	})))
	r.Setup()

	return &ledgerServer{engine: engine, db: db}
}

// do sends a request; headers come as name, value pairs
func (s *ledgerServer) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func readEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

// readData asserts the status and decodes the data field
func readData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	env := readEnvelope(t, w)
	require.True(t, env.Success)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// readError asserts the status and returns the error payload
func readError(t *testing.T, w *httptest.ResponseRecorder, status int) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	env := readEnvelope(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
