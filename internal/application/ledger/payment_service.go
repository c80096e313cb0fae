package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const idempotencyKeyPrefix = "due_payment:"

// PaymentAllocationService records due payments and applies them to orders
type PaymentAllocationService struct {
	uow         ledger.UnitOfWork
	orders      ledger.OrderRepository
	customers   ledger.CustomerRepository
	payments    ledger.DuePaymentRepository
	idempotency shared.IdempotencyStore
	settings    Settings
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
}

// NewPaymentAllocationService creates a new PaymentAllocationService.
// idempotency and metrics may be nil.
func NewPaymentAllocationService(
	uow ledger.UnitOfWork,
	orders ledger.OrderRepository,
	customers ledger.CustomerRepository,
	payments ledger.DuePaymentRepository,
	idempotency shared.IdempotencyStore,
	settings Settings,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
) *PaymentAllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentAllocationService{
		uow:         uow,
		orders:      orders,
		customers:   customers,
		payments:    payments,
		idempotency: idempotency,
		settings:    settings.withDefaults(),
		metrics:     metrics,
		logger:      logger,
	}
}

func allocationMode(req RecordPaymentRequest) string {
	switch {
	case len(req.Allocations) > 0:
		return telemetry.AllocationModeManual
	case req.AutoAllocate:
		return telemetry.AllocationModeAuto
	}
	return telemetry.AllocationModeNone
}

// RecordPayment stores a payment and applies it to the customer's orders in
// one transaction. Anything not allocated stays on the payment as credit.
func (s *PaymentAllocationService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*DuePaymentResponse, error) {
	start := time.Now()
	mode := allocationMode(req)

	ctx, span := telemetry.StartServiceSpan(ctx, "due_payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID,
		telemetry.SpanAttrAmount, req.Amount,
		telemetry.SpanAttrPaymentMethod, req.PaymentMethod,
		telemetry.SpanAttrAllocations, len(req.Allocations),
		telemetry.SpanAttrAutoAllocate, req.AutoAllocate,
	)

	fail := func(outcome string, err error) (*DuePaymentResponse, error) {
		telemetry.RecordError(span, err)
		s.metrics.RecordPayment(ctx, outcome, mode, req.PaymentMethod, req.Amount, decimal.Zero, time.Since(start))
		return nil, err
	}

	payment, err := s.newPayment(req)
	if err != nil {
		return fail(telemetry.OutcomeRejected, err)
	}
	var requests []ledger.AllocationRequest
	if mode == telemetry.AllocationModeManual {
		requests = req.allocationRequests()
		if _, err := ledger.ValidateAllocationRequests(payment.Amount, requests); err != nil {
			return fail(telemetry.OutcomeRejected, err)
		}
	}

	recorded := false
	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKeyPrefix + req.IdempotencyKey
		claimed, err := s.idempotency.MarkProcessed(ctx, key, s.settings.IdempotencyTTL)
		if err != nil {
			return fail(telemetry.OutcomeRejected, fmt.Errorf("failed to claim idempotency key: %w", err))
		}
		if !claimed {
			return fail(telemetry.OutcomeDuplicate, shared.ErrDuplicateRequest)
		}
		defer func() {
			if !recorded {
				if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
					s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
				}
			}
		}()
	}

	settled := 0
	err = s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		if err := ensureCustomerKnown(ctx, repos.Customers(), repos.Orders(), payment.CustomerID); err != nil {
			return err
		}

		targets, err := s.lockTargets(ctx, repos.Orders(), payment, mode, &requests)
		if err != nil {
			return err
		}

		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to create due payment: %w", err)
		}

		for _, r := range requests {
			order := targets[r.OrderID]
			if !order.BelongsTo(payment.CustomerID) {
				return shared.NewConsistencyError(ledger.CodeOrderCustomerMismatch,
					fmt.Sprintf("Order %s does not belong to customer %s", order.OrderNumber, payment.CustomerID))
			}
			if err := order.ApplyPayment(r.Amount); err != nil {
				return err
			}
			alloc, err := payment.Allocate(order.ID, r.Amount)
			if err != nil {
				return err
			}
			if err := repos.Payments().CreateAllocation(ctx, alloc); err != nil {
				return fmt.Errorf("failed to create allocation: %w", err)
			}
			if err := repos.Orders().Save(ctx, order); err != nil {
				return err
			}
			if order.PaymentStatus == ledger.PaymentStatusPaid {
				settled++
			}
		}

		if !payment.IsBalanced() {
			return fmt.Errorf("due payment %s is unbalanced: allocated %s, unapplied %s, amount %s",
				payment.ID, payment.AllocatedAmount(), payment.UnappliedAmount, payment.Amount)
		}
		if len(payment.Allocations) > 0 {
			payment.Touch()
			if err := repos.Payments().Save(ctx, payment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		outcome := telemetry.OutcomeRejected
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			outcome = telemetry.OutcomeConflict
		}
		return fail(outcome, err)
	}

	recorded = true
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID)
	telemetry.AddEvent(span, "due_payment_recorded",
		"allocated", payment.AllocatedAmount(),
		"unapplied", payment.UnappliedAmount,
	)
	s.metrics.RecordPayment(ctx, telemetry.OutcomeRecorded, mode, payment.PaymentMethod.String(),
		payment.Amount, payment.UnappliedAmount, time.Since(start))
	s.metrics.RecordAllocations(ctx, mode, len(payment.Allocations), settled)
	s.logger.Info("Due payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("unapplied_amount", payment.UnappliedAmount.String()),
		zap.Int("allocations", len(payment.Allocations)),
		zap.String("allocation_mode", mode),
	)

	resp := ToDuePaymentResponse(payment)
	return &resp, nil
}

func (s *PaymentAllocationService) newPayment(req RecordPaymentRequest) (*ledger.DuePayment, error) {
	method, err := ledger.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	payment, err := ledger.NewDuePayment(req.CustomerID, req.Amount, method, req.PaymentDate)
	if err != nil {
		return nil, err
	}
	payment.BranchID = req.BranchID
	if err := payment.SetReference(req.Reference); err != nil {
		return nil, err
	}
	if err := payment.SetNote(req.Note); err != nil {
		return nil, err
	}
	payment.PaymentSlips = append([]string(nil), req.PaymentSlips...)
	return payment, nil
}

// lockTargets takes the row locks on every order the payment will touch. For
// automatic allocation it plans against the locked rows and fills requests.
func (s *PaymentAllocationService) lockTargets(
	ctx context.Context,
	orders ledger.OrderRepository,
	payment *ledger.DuePayment,
	mode string,
	requests *[]ledger.AllocationRequest,
) (map[uuid.UUID]*ledger.Order, error) {
	switch mode {
	case telemetry.AllocationModeManual:
		ids := make([]uuid.UUID, len(*requests))
		for i, r := range *requests {
			ids[i] = r.OrderID
		}
		return orders.LockByIDs(ctx, ids)

	case telemetry.AllocationModeAuto:
		open, err := orders.FindOpenByCustomerForUpdate(ctx, payment.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock open orders: %w", err)
		}
		plan, err := ledger.PlanFIFO(payment.Amount, ledger.TargetsFromOrders(open))
		if err != nil {
			return nil, err
		}
		*requests = plan.Requests()
		targets := make(map[uuid.UUID]*ledger.Order, len(open))
		for i := range open {
			targets[open[i].ID] = &open[i]
		}
		return targets, nil
	}
	return map[uuid.UUID]*ledger.Order{}, nil
}

// ensureCustomerKnown accepts a customer row or a customer only referenced by orders
func ensureCustomerKnown(ctx context.Context, customers ledger.CustomerRepository, orders ledger.OrderRepository, id uuid.UUID) error {
	exists, err := customers.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check customer: %w", err)
	}
	if exists {
		return nil
	}
	referenced, err := orders.ExistsForCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check customer orders: %w", err)
	}
	if !referenced {
		return ledger.ErrCustomerNotFound(id)
	}
	return nil
}

// PlanFIFOAllocation previews how an amount would be spread over the
// customer's open orders, oldest first. Nothing is written or locked.
func (s *PaymentAllocationService) PlanFIFOAllocation(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*AllocationPlanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "due_payment", "plan_fifo",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, customerID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, amount),
	)
	defer span.End()

	if !amount.IsPositive() {
		err := shared.NewDomainError(ledger.CodeInvalidAmount, "Payment amount must be positive")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := ensureCustomerKnown(ctx, s.customers, s.orders, customerID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	open, err := s.orders.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}
	plan, err := ledger.PlanFIFO(amount, ledger.TargetsFromOrders(open))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := toAllocationPlanResponse(customerID, amount, plan)
	return &resp, nil
}

// UpdateDuePayment corrects the method, date, reference or note of a payment.
// The amount and allocations cannot be edited.
func (s *PaymentAllocationService) UpdateDuePayment(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*DuePaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "due_payment", "update",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, id))
	defer span.End()

	correction := ledger.PaymentCorrection{
		PaymentDate: req.PaymentDate,
		Reference:   req.Reference,
		Note:        req.Note,
	}
	if req.PaymentMethod != nil {
		method, err := ledger.ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		correction.PaymentMethod = &method
	}

	var payment *ledger.DuePayment
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		var err error
		payment, err = repos.Payments().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Amount != nil && !req.Amount.Equal(payment.Amount) {
			return shared.NewDomainError(ledger.CodeAmountNotEditable,
				"Payment amount cannot be changed; delete the payment and record it again")
		}
		if err := payment.Correct(correction); err != nil {
			return err
		}
		return repos.Payments().Save(ctx, payment)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Due payment corrected",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_method", payment.PaymentMethod.String()),
	)
	resp := ToDuePaymentResponse(payment)
	return &resp, nil
}

// DeleteDuePayment removes a payment and its allocations. When reversal is
// enabled the allocated amounts are taken back off the orders.
func (s *PaymentAllocationService) DeleteDuePayment(ctx context.Context, id uuid.UUID) error {
	reverse := s.settings.ReverseOnDelete
	ctx, span := telemetry.StartServiceSpan(ctx, "due_payment", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, id),
		telemetry.WithAttribute(telemetry.SpanAttrReversed, reverse),
	)
	defer span.End()

	var payment *ledger.DuePayment
	err := s.uow.Transaction(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		var err error
		payment, err = repos.Payments().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if reverse && len(payment.Allocations) > 0 {
			ids := make([]uuid.UUID, len(payment.Allocations))
			for i, a := range payment.Allocations {
				ids[i] = a.OrderID
			}
			orders, err := repos.Orders().LockByIDs(ctx, ids)
			if err != nil {
				return err
			}
			for _, a := range payment.Allocations {
				order := orders[a.OrderID]
				if err := order.ReversePayment(a.Amount); err != nil {
					return err
				}
				if err := repos.Orders().Save(ctx, order); err != nil {
					return err
				}
			}
		}

		return repos.Payments().Delete(ctx, id)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.metrics.RecordPaymentDeleted(ctx, reverse)
	s.logger.Info("Due payment deleted",
		zap.String("payment_id", id.String()),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.Int("allocations", len(payment.Allocations)),
		zap.Bool("reversed", reverse),
	)
	return nil
}

// GetDuePayment returns a payment with its allocations
func (s *PaymentAllocationService) GetDuePayment(ctx context.Context, id uuid.UUID) (*DuePaymentResponse, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDuePaymentResponse(payment)
	return &resp, nil
}

// ListDuePayments returns one page of payments, newest payment date first
// unless the filter asks for another order.
func (s *PaymentAllocationService) ListDuePayments(ctx context.Context, filter DuePaymentListFilter) (*shared.Paginated[DuePaymentResponse], error) {
	page := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "payment_date",
		OrderDir: "desc",
	}
	if filter.SortBy != "" {
		page.OrderBy = filter.SortBy
	}
	if filter.SortOrder != "" {
		page.OrderDir = filter.SortOrder
	}
	page = page.Normalize(s.settings.DefaultPageSize, s.settings.MaxPageSize)

	query := ledger.DuePaymentFilter{
		Filter:     page,
		CustomerID: filter.CustomerID,
		BranchID:   filter.BranchID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	if filter.PaymentMethod != "" {
		method, err := ledger.ParsePaymentMethod(filter.PaymentMethod)
		if err != nil {
			return nil, err
		}
		query.PaymentMethod = &method
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, shared.NewDomainError(ledger.CodeValidationFailed, "From date cannot be after to date")
	}

	payments, total, err := s.payments.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list due payments: %w", err)
	}
	items := make([]DuePaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToDuePaymentResponse(&payments[i])
	}
	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}
