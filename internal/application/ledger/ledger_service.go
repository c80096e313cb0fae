package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// CustomerLedgerService derives customer balances from orders and payments on every call
type CustomerLedgerService struct {
	reader   ledger.LedgerReader
	settings Settings
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewCustomerLedgerService creates a new CustomerLedgerService. metrics may be nil.
func NewCustomerLedgerService(reader ledger.LedgerReader, settings Settings, metrics *telemetry.LedgerMetrics, logger *zap.Logger) *CustomerLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerLedgerService{
		reader:   reader,
		settings: settings.withDefaults(),
		metrics:  metrics,
		logger:   logger,
	}
}

type ledgerRows struct {
	customers []ledger.Customer
	orders    []ledger.Order
	credits   []ledger.PaymentCredit
}

func (r *ledgerRows) empty() bool {
	return len(r.customers) == 0 && len(r.orders) == 0 && len(r.credits) == 0
}

// load reads customers, orders and payment credits concurrently
func (s *CustomerLedgerService) load(ctx context.Context, scope ledger.LedgerScope) (*ledgerRows, error) {
	rows := &ledgerRows{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if rows.customers, err = s.reader.ListCustomers(gctx, scope); err != nil {
			return fmt.Errorf("failed to load customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rows.orders, err = s.reader.ListOrders(gctx, scope); err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rows.credits, err = s.reader.ListPaymentCredits(gctx, scope); err != nil {
			return fmt.Errorf("failed to load payments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetCustomerDueSummary computes one customer's totals, balance and credit.
// A customer known only from orders or payments gets a placeholder summary.
func (s *CustomerLedgerService) GetCustomerDueSummary(ctx context.Context, customerID uuid.UUID) (*CustomerDueSummaryResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "customer_ledger", "summary",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, customerID))
	defer span.End()

	rows, err := s.load(ctx, ledger.LedgerScope{CustomerID: &customerID})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if rows.empty() {
		err := ledger.ErrCustomerNotFound(customerID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var summary *ledger.CustomerDueSummary
	all := ledger.BuildCustomerSummaries(rows.customers, rows.orders, rows.credits)
	for i := range all {
		if all[i].CustomerID == customerID {
			summary = &all[i]
			break
		}
	}
	if summary == nil {
		err := ledger.ErrCustomerNotFound(customerID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordSummary(ctx, "customer", time.Since(start))
	resp := toSummaryResponse(summary)
	return &resp, nil
}

// GetAllCustomersDueSummary rolls up every customer in the branch and date
// scope, then applies search, status, balance bounds and paging.
func (s *CustomerLedgerService) GetAllCustomersDueSummary(ctx context.Context, filter SummaryListFilter) (*CustomerDueSummaryList, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "customer_ledger", "summaries")
	defer span.End()
	if filter.BranchID != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrBranchID, *filter.BranchID)
	}

	status, err := ledger.ParseLedgerStatus(filter.Status)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		err := shared.NewDomainError(ledger.CodeValidationFailed, "From date cannot be after to date")
		telemetry.RecordError(span, err)
		return nil, err
	}
	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.
		Normalize(s.settings.DefaultPageSize, s.settings.MaxPageSize)
	query := ledger.SummaryQuery{
		Search:        filter.Search,
		Status:        status,
		MinBalance:    filter.MinBalance,
		MaxBalance:    filter.MaxBalance,
		InvoicePrefix: s.settings.InvoicePrefix,
		Page:          page.Page,
		PageSize:      page.PageSize,
	}
	if err := query.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rows, err := s.load(ctx, ledger.LedgerScope{
		BranchID: filter.BranchID,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	summaries, total := query.Apply(ledger.BuildCustomerSummaries(rows.customers, rows.orders, rows.credits))
	out := make([]CustomerDueSummaryResponse, len(summaries))
	for i := range summaries {
		out[i] = toSummaryResponse(&summaries[i])
	}

	elapsed := time.Since(start)
	s.metrics.RecordSummary(ctx, "all", elapsed)
	s.logger.Debug("Customer ledger rolled up",
		zap.Int("customers", len(rows.customers)),
		zap.Int("orders", len(rows.orders)),
		zap.Int("matches", total),
		zap.Duration("elapsed", elapsed),
	)
	return &CustomerDueSummaryList{
		Summaries: out,
		Total:     total,
		Page:      page.Page,
		PageSize:  page.PageSize,
	}, nil
}
