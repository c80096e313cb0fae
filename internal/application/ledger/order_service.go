package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderFinancialService owns the ledger fields of orders: numbering, initial
// financial state and administrative amount edits.
type OrderFinancialService struct {
	uow      ledger.UnitOfWork
	orders   ledger.OrderRepository
	settings Settings
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewOrderFinancialService creates a new OrderFinancialService. metrics may be nil.
func NewOrderFinancialService(
	uow ledger.UnitOfWork,
	orders ledger.OrderRepository,
	settings Settings,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *OrderFinancialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderFinancialService{
		uow:      uow,
		orders:   orders,
		settings: settings.withDefaults(),
		metrics:  metrics,
		logger:   logger,
	}
}

// NextOrderNumber hands out a number in its own transaction. A number taken
// this way and never used for an order leaves a gap.
func (s *OrderFinancialService) NextOrderNumber(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "next_number")
	defer span.End()

	var number string
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		value, err := repos.Counters().Next(ctx, s.settings.CounterName)
		if err != nil {
			return fmt.Errorf("failed to advance order counter: %w", err)
		}
		number = ledger.FormatOrderNumber(value)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderNumber, number)
	return number, nil
}

// CreateOrderFinancials books a new order. The number, the customer and the
// order row are written in one transaction, so a failed insert does not use up a number.
func (s *OrderFinancialService) CreateOrderFinancials(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create_financials")
	defer span.End()

	status := ledger.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus)))
	if status == "" {
		status = ledger.PaymentStatusDue
	}
	lines := toLineAmounts(req.Items)
	if _, _, err := ledger.ComputeTotals(lines, req.Discount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		order           *ledger.Order
		customerCreated bool
	)
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		customerID, customerName, created, err := s.resolveCustomer(ctx, repos.Customers(), req)
		if err != nil {
			return err
		}
		customerCreated = created

		value, err := repos.Counters().Next(ctx, s.settings.CounterName)
		if err != nil {
			return fmt.Errorf("failed to advance order counter: %w", err)
		}

		order, err = ledger.NewOrder(
			ledger.FormatOrderNumber(value),
			customerID,
			customerName,
			req.BranchID,
			lines,
			req.Discount,
			ledger.InitialFinancials{
				Status:     status,
				PaidAmount: req.PaidAmount,
				DueAmount:  req.DueAmount,
			},
		)
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID,
		telemetry.SpanAttrOrderNumber, order.OrderNumber,
		telemetry.SpanAttrAmount, order.Total,
	)
	s.metrics.RecordOrderCreated(ctx, order.PaymentStatus.String())
	s.logger.Info("Order financials created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_status", order.PaymentStatus.String()),
		zap.String("total", order.Total.String()),
	)

	resp := ToOrderResponse(order)
	resp.CustomerCreated = customerCreated
	return &resp, nil
}

// resolveCustomer picks the order's customer: an explicit id must exist, a
// customer input is found or created, and neither means a walk-in sale.
func (s *OrderFinancialService) resolveCustomer(
	ctx context.Context,
	repo ledger.CustomerRepository,
	req CreateOrderRequest,
) (*uuid.UUID, string, bool, error) {
	if req.CustomerID != nil && *req.CustomerID != uuid.Nil {
		customer, err := repo.FindByID(ctx, *req.CustomerID)
		if err != nil {
			return nil, "", false, err
		}
		id := customer.ID
		return &id, customer.Name, false, nil
	}
	if req.Customer == nil || strings.TrimSpace(req.Customer.Name) == "" {
		return nil, "", false, nil
	}

	in := req.Customer.toDomain()
	if in.BranchID == nil {
		in.BranchID = req.BranchID
	}
	customer, created, err := findOrCreateCustomer(ctx, repo, in)
	if err != nil {
		return nil, "", false, err
	}
	id := customer.ID
	return &id, customer.Name, created, nil
}

// ReviseOrderAmounts applies an administrative edit of lines and discount
// under a row lock. Recorded payments are left as they are.
func (s *OrderFinancialService) ReviseOrderAmounts(ctx context.Context, orderID uuid.UUID, req ReviseOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "revise_amounts",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID))
	defer span.End()

	var order *ledger.Order
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		var err error
		order, err = repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Revise(toLineAmounts(req.Items), req.Discount); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order amounts revised",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.String()),
		zap.String("payment_status", order.PaymentStatus.String()),
	)
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns the financial view of an order
func (s *OrderFinancialService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}
