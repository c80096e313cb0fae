package ledger

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineAmount is the priced quantity of one order line
type LineAmount struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// ComputeTotals sums the line amounts and applies the order-level discount
func ComputeTotals(lines []LineAmount, discount decimal.Decimal) (subtotal, total decimal.Decimal, err error) {
	if len(lines) == 0 {
		return decimal.Zero, decimal.Zero, validationError("Order must have at least one line")
	}
	if discount.IsNegative() {
		return decimal.Zero, decimal.Zero, validationError("Discount cannot be negative")
	}
	if err := checkScale("Discount", discount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	subtotal = decimal.Zero
	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return decimal.Zero, decimal.Zero, validationError(fmt.Sprintf("Line %d quantity must be positive", i+1))
		}
		if line.UnitPrice.IsNegative() {
			return decimal.Zero, decimal.Zero, validationError(fmt.Sprintf("Line %d unit price cannot be negative", i+1))
		}
		if err := checkScale(fmt.Sprintf("Line %d unit price", i+1), line.UnitPrice); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		subtotal = subtotal.Add(line.Quantity.Mul(line.UnitPrice))
	}
	subtotal = subtotal.Round(MoneyScale)
	total = subtotal.Sub(discount).Round(MoneyScale)
	if total.IsNegative() {
		return decimal.Zero, decimal.Zero, validationError("Discount cannot exceed subtotal")
	}
	return subtotal, total, nil
}

// InitialFinancials is what the order-entry collaborator declares when creating an order
type InitialFinancials struct {
	Status     PaymentStatus
	PaidAmount decimal.Decimal
	DueAmount  *decimal.Decimal
}

// Order is the financial view of a sale. The ledger owns PaidAmount, DueAmount and PaymentStatus.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber   string
	CustomerID    *uuid.UUID
	CustomerName  string
	BranchID      *uuid.UUID
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	PaidAmount    decimal.Decimal
	DueAmount     *decimal.Decimal
	PaymentStatus PaymentStatus
}

// NewOrder creates an order and sets its ledger fields from the declared status
func NewOrder(
	orderNumber string,
	customerID *uuid.UUID,
	customerName string,
	branchID *uuid.UUID,
	lines []LineAmount,
	discount decimal.Decimal,
	fin InitialFinancials,
) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, validationError("Order number cannot be empty")
	}
	if !fin.Status.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidPaymentStatus, fmt.Sprintf("Unknown payment status %q", fin.Status))
	}
	subtotal, total, err := ComputeTotals(lines, discount)
	if err != nil {
		return nil, err
	}
	if err := checkScale("Paid amount", fin.PaidAmount); err != nil {
		return nil, err
	}
	if fin.DueAmount != nil {
		if err := checkScale("Due amount", *fin.DueAmount); err != nil {
			return nil, err
		}
	}
	if fin.Status.IsOpen() && (customerID == nil || *customerID == uuid.Nil) {
		return nil, validationError("Orders sold on credit require a customer")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		CustomerName:      strings.TrimSpace(customerName),
		BranchID:          branchID,
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             total,
		PaidAmount:        decimal.Zero,
		PaymentStatus:     fin.Status,
	}

	switch fin.Status {
	case PaymentStatusDue:
		due := total
		order.DueAmount = &due
	case PaymentStatusPartial:
		if fin.DueAmount == nil {
			return nil, validationError("Partial orders require a due amount")
		}
		if fin.PaidAmount.IsNegative() || fin.DueAmount.IsNegative() {
			return nil, validationError("Paid and due amounts cannot be negative")
		}
		if fin.DueAmount.GreaterThan(total) {
			return nil, validationError("Due amount cannot exceed order total")
		}
		if fin.PaidAmount.GreaterThan(*fin.DueAmount) {
			return nil, shared.NewConsistencyError(CodePaidExceedsOwed, "Paid amount cannot exceed due amount")
		}
		due := *fin.DueAmount
		order.DueAmount = &due
		order.PaidAmount = fin.PaidAmount
	default:
		// paid and pending orders keep whatever order entry recorded
		if fin.PaidAmount.IsNegative() || (fin.DueAmount != nil && fin.DueAmount.IsNegative()) {
			return nil, validationError("Paid and due amounts cannot be negative")
		}
		order.PaidAmount = fin.PaidAmount
		if fin.DueAmount != nil {
			due := *fin.DueAmount
			order.DueAmount = &due
		}
	}

	return order, nil
}

// Owed is the amount PaidAmount is measured against: DueAmount when set, else Total
func (o *Order) Owed() decimal.Decimal {
	if o.DueAmount != nil {
		return *o.DueAmount
	}
	return o.Total
}

// Outstanding is what the customer still owes on this order
func (o *Order) Outstanding() decimal.Decimal {
	rest := o.Owed().Sub(o.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// IsOpen reports whether the order can take payments
func (o *Order) IsOpen() bool {
	return o.PaymentStatus.IsOpen()
}

// BelongsTo reports whether the order was sold to the given customer
func (o *Order) BelongsTo(customerID uuid.UUID) bool {
	return o.CustomerID != nil && *o.CustomerID == customerID
}

// ApplyPayment adds an allocated amount to PaidAmount and re-derives the status.
// The amount may not exceed Outstanding.
func (o *Order) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidAmount("Allocation amount")
	}
	if err := checkScale("Allocation amount", amount); err != nil {
		return err
	}
	if !o.IsOpen() {
		return shared.NewConsistencyError(CodeOrderNotOpen,
			fmt.Sprintf("Order %s is %s and cannot take payments", o.OrderNumber, o.PaymentStatus))
	}
	if outstanding := o.Outstanding(); amount.GreaterThan(outstanding) {
		return exceedsOutstanding(o.OrderNumber, amount, outstanding)
	}
	o.PaidAmount = o.PaidAmount.Add(amount)
	o.deriveStatus()
	o.Touch()
	return nil
}

// ReversePayment takes a previously applied amount back off the order.
// An order left with nothing paid returns to due.
func (o *Order) ReversePayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidAmount("Reversal amount")
	}
	if amount.GreaterThan(o.PaidAmount) {
		return shared.NewConsistencyError(CodeReversalExceedsPaid,
			fmt.Sprintf("Cannot reverse %s from order %s with %s paid", amount.StringFixed(2), o.OrderNumber, o.PaidAmount.StringFixed(2)))
	}
	o.PaidAmount = o.PaidAmount.Sub(amount)
	if o.PaidAmount.IsZero() {
		o.PaymentStatus = PaymentStatusDue
	} else {
		o.deriveStatus()
	}
	o.Touch()
	return nil
}

// Revise recomputes subtotal and total after an administrative edit.
// Recorded payments are not reconciled; the edit is refused if the new owed
// amount would fall below what has already been paid.
func (o *Order) Revise(lines []LineAmount, discount decimal.Decimal) error {
	subtotal, total, err := ComputeTotals(lines, discount)
	if err != nil {
		return err
	}

	newOwed := total
	mirrorsTotal := o.DueAmount != nil && o.DueAmount.Equal(o.Total)
	if o.DueAmount != nil && !mirrorsTotal {
		newOwed = *o.DueAmount
		if newOwed.GreaterThan(total) {
			return validationError("Revised total cannot be below the order's due amount")
		}
	}
	if o.PaidAmount.GreaterThan(newOwed) {
		return shared.NewConsistencyError(CodePaidExceedsOwed,
			fmt.Sprintf("Revised amount %s is below the %s already paid on order %s", newOwed.StringFixed(2), o.PaidAmount.StringFixed(2), o.OrderNumber))
	}

	o.Subtotal = subtotal
	o.Discount = discount
	o.Total = total
	if mirrorsTotal {
		due := total
		o.DueAmount = &due
	}
	if o.PaidAmount.IsPositive() && o.DueAmount != nil {
		o.deriveStatus()
	}
	o.Touch()
	return nil
}

// deriveStatus applies the settlement rule: fully covered is paid, anything
// paid is partial, otherwise the status is left alone.
func (o *Order) deriveStatus() {
	switch {
	case o.PaidAmount.GreaterThanOrEqual(o.Owed()):
		o.PaymentStatus = PaymentStatusPaid
	case o.PaidAmount.IsPositive():
		o.PaymentStatus = PaymentStatusPartial
	}
}
