package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DuePaymentAllocation is the portion of a payment applied to one order
type DuePaymentAllocation struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// DuePayment is money received from a customer against what they owe.
// The part not allocated to any order stays on the payment as credit.
type DuePayment struct {
	shared.BaseAggregateRoot
	CustomerID      uuid.UUID
	BranchID        *uuid.UUID
	Amount          decimal.Decimal
	PaymentMethod   PaymentMethod
	PaymentDate     time.Time
	UnappliedAmount decimal.Decimal
	Reference       string
	Note            string
	PaymentSlips    []string
	Allocations     []DuePaymentAllocation
}

// NewDuePayment creates an unallocated payment
func NewDuePayment(customerID uuid.UUID, amount decimal.Decimal, method PaymentMethod, paymentDate time.Time) (*DuePayment, error) {
	if customerID == uuid.Nil {
		return nil, validationError("Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, invalidAmount("Payment amount")
	}
	if err := checkScale("Payment amount", amount); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, invalidPaymentMethod(string(method))
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	return &DuePayment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Amount:            amount,
		PaymentMethod:     method,
		PaymentDate:       paymentDate,
		UnappliedAmount:   amount,
		Allocations:       make([]DuePaymentAllocation, 0),
	}, nil
}

// Allocate applies part of the payment to an order and shrinks the unapplied remainder
func (p *DuePayment) Allocate(orderID uuid.UUID, amount decimal.Decimal) (*DuePaymentAllocation, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError(CodeInvalidAllocation, "Allocation order ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, invalidAmount("Allocation amount")
	}
	if err := checkScale("Allocation amount", amount); err != nil {
		return nil, err
	}
	for _, a := range p.Allocations {
		if a.OrderID == orderID {
			return nil, shared.NewDomainError(CodeDuplicateAllocation, fmt.Sprintf("Order %s is already allocated on this payment", orderID))
		}
	}
	if amount.GreaterThan(p.UnappliedAmount) {
		return nil, shared.NewDomainError(CodeAllocationExceedsPayment,
			fmt.Sprintf("Allocation %s exceeds unapplied amount %s", amount.StringFixed(2), p.UnappliedAmount.StringFixed(2)))
	}

	alloc := DuePaymentAllocation{
		ID:        uuid.New(),
		PaymentID: p.ID,
		OrderID:   orderID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	p.Allocations = append(p.Allocations, alloc)
	p.UnappliedAmount = p.UnappliedAmount.Sub(amount)
	return &alloc, nil
}

// AllocatedAmount returns the sum of all allocations
func (p *DuePayment) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// IsBalanced checks allocations plus the unapplied remainder add up to the amount received
func (p *DuePayment) IsBalanced() bool {
	return p.AllocatedAmount().Add(p.UnappliedAmount).Equal(p.Amount)
}

// SetReference sets the external reference, e.g. a cheque or transfer number
func (p *DuePayment) SetReference(ref string) error {
	ref = strings.TrimSpace(ref)
	if len(ref) > 100 {
		return validationError("Payment reference cannot exceed 100 characters")
	}
	p.Reference = ref
	return nil
}

// SetNote sets a free-text note
func (p *DuePayment) SetNote(note string) error {
	if len(note) > 500 {
		return validationError("Payment note cannot exceed 500 characters")
	}
	p.Note = note
	return nil
}

// PaymentCorrection holds the administrative edits allowed after a payment is recorded
type PaymentCorrection struct {
	PaymentMethod *PaymentMethod
	PaymentDate   *time.Time
	Reference     *string
	Note          *string
}

// Correct applies an administrative correction. Amount and allocations are never touched.
func (p *DuePayment) Correct(c PaymentCorrection) error {
	if c.PaymentMethod != nil {
		if !c.PaymentMethod.IsValid() {
			return invalidPaymentMethod(string(*c.PaymentMethod))
		}
		p.PaymentMethod = *c.PaymentMethod
	}
	if c.PaymentDate != nil {
		if c.PaymentDate.IsZero() {
			return validationError("Payment date cannot be empty")
		}
		p.PaymentDate = *c.PaymentDate
	}
	if c.Reference != nil {
		if err := p.SetReference(*c.Reference); err != nil {
			return err
		}
	}
	if c.Note != nil {
		if err := p.SetNote(*c.Note); err != nil {
			return err
		}
	}
	p.Touch()
	return nil
}
