package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("ledger metrics: meter cannot be nil")

// Allocation modes
const (
	AllocationModeAuto   = "auto"
	AllocationModeManual = "manual"
	AllocationModeNone   = "none"
)

// Payment outcomes
const (
	OutcomeRecorded  = "recorded"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
)

// LedgerMetrics counts what the settlement engine does. A nil *LedgerMetrics
// records nothing, so services can run without a meter.
type LedgerMetrics struct {
	paymentsTotal      *Counter
	paymentAmount      *FloatCounter
	creditAmount       *FloatCounter
	allocationsTotal   *Counter
	ordersSettledTotal *Counter
	paymentsDeleted    *Counter
	ordersCreatedTotal *Counter
	allocationDuration *Histogram
	summaryDuration    *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.paymentsTotal, err = NewCounter(meter, "ledger_due_payments_total",
		"Due payment attempts by outcome and allocation mode", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewFloatCounter(meter, "ledger_due_payment_amount_total",
		"Money received through recorded due payments", "{currency}"); err != nil {
		return nil, err
	}
	if m.creditAmount, err = NewFloatCounter(meter, "ledger_unapplied_credit_total",
		"Part of recorded payments left unallocated as customer credit", "{currency}"); err != nil {
		return nil, err
	}
	if m.allocationsTotal, err = NewCounter(meter, "ledger_allocations_total",
		"Payment allocations written", "{allocations}"); err != nil {
		return nil, err
	}
	if m.ordersSettledTotal, err = NewCounter(meter, "ledger_orders_settled_total",
		"Orders moved to paid by an allocation", "{orders}"); err != nil {
		return nil, err
	}
	if m.paymentsDeleted, err = NewCounter(meter, "ledger_due_payments_deleted_total",
		"Due payments deleted, by whether allocations were reversed", "{payments}"); err != nil {
		return nil, err
	}
	if m.ordersCreatedTotal, err = NewCounter(meter, "ledger_orders_created_total",
		"Orders whose financials were created, by payment status", "{orders}"); err != nil {
		return nil, err
	}
	if m.allocationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_payment_record_duration_seconds",
		Description: "Time to record a due payment including locks and allocation",
		Unit:        "s",
		Boundaries:  ServiceDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.summaryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_summary_duration_seconds",
		Description: "Time to build customer ledger summaries",
		Unit:        "s",
		Boundaries:  ServiceDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment counts a due payment attempt. Amounts are only added for recorded payments.
func (m *LedgerMetrics) RecordPayment(ctx context.Context, outcome, mode, method string, amount, credit decimal.Decimal, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrOutcome.String(outcome),
		AttrAllocationMode.String(mode),
		AttrPaymentMethod.String(method),
	}
	m.paymentsTotal.Inc(ctx, attrs...)
	m.allocationDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome), AttrAllocationMode.String(mode))
	if outcome != OutcomeRecorded {
		return
	}
	m.paymentAmount.Add(ctx, amount.InexactFloat64(), AttrPaymentMethod.String(method))
	if credit.IsPositive() {
		m.creditAmount.Add(ctx, credit.InexactFloat64())
	}
}

// RecordAllocations counts written allocations and the orders they settled
func (m *LedgerMetrics) RecordAllocations(ctx context.Context, mode string, allocations, settled int) {
	if m == nil {
		return
	}
	m.allocationsTotal.Add(ctx, int64(allocations), AttrAllocationMode.String(mode))
	if settled > 0 {
		m.ordersSettledTotal.Add(ctx, int64(settled))
	}
}

// RecordPaymentDeleted counts a deleted payment
func (m *LedgerMetrics) RecordPaymentDeleted(ctx context.Context, reversed bool) {
	if m == nil {
		return
	}
	m.paymentsDeleted.Inc(ctx, AttrReversed.Bool(reversed))
}

// RecordOrderCreated counts an order by its initial payment status
func (m *LedgerMetrics) RecordOrderCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.ordersCreatedTotal.Inc(ctx, attribute.String("payment_status", status))
}

// RecordSummary records how long a ledger rollup took
func (m *LedgerMetrics) RecordSummary(ctx context.Context, scope string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.summaryDuration.RecordDuration(ctx, elapsed, attribute.String("scope", scope))
}
