package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for part of a payment to be applied to one order
type AllocationRequest struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
}

// ValidateAllocationRequests checks caller-directed allocations before anything is written
// and returns their sum.
func ValidateAllocationRequests(paymentAmount decimal.Decimal, requests []AllocationRequest) (decimal.Decimal, error) {
	if !paymentAmount.IsPositive() {
		return decimal.Zero, invalidAmount("Payment amount")
	}
	if err := checkScale("Payment amount", paymentAmount); err != nil {
		return decimal.Zero, err
	}
	seen := make(map[uuid.UUID]struct{}, len(requests))
	sum := decimal.Zero
	for i, r := range requests {
		if r.OrderID == uuid.Nil {
			return decimal.Zero, shared.NewDomainError(CodeInvalidAllocation, fmt.Sprintf("Allocation %d is missing an order ID", i+1))
		}
		if !r.Amount.IsPositive() {
			return decimal.Zero, shared.NewDomainError(CodeInvalidAllocation, fmt.Sprintf("Allocation %d amount must be positive", i+1))
		}
		if err := checkScale(fmt.Sprintf("Allocation %d amount", i+1), r.Amount); err != nil {
			return decimal.Zero, err
		}
		if _, dup := seen[r.OrderID]; dup {
			return decimal.Zero, shared.NewDomainError(CodeDuplicateAllocation, fmt.Sprintf("Order %s appears more than once", r.OrderID))
		}
		seen[r.OrderID] = struct{}{}
		sum = sum.Add(r.Amount)
	}
	if sum.GreaterThan(paymentAmount) {
		return decimal.Zero, shared.NewDomainError(CodeAllocationExceedsPayment,
			fmt.Sprintf("Allocations total %s exceeds payment amount %s", sum.StringFixed(2), paymentAmount.StringFixed(2)))
	}
	return sum, nil
}

// AllocationTarget is an open order seen by the FIFO planner
type AllocationTarget struct {
	OrderID     uuid.UUID
	OrderNumber string
	Outstanding decimal.Decimal
	CreatedAt   time.Time
}

// TargetsFromOrders keeps the open orders of a customer that still owe something
func TargetsFromOrders(orders []Order) []AllocationTarget {
	targets := make([]AllocationTarget, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if !o.IsOpen() {
			continue
		}
		outstanding := o.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}
		targets = append(targets, AllocationTarget{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Outstanding: outstanding,
			CreatedAt:   o.CreatedAt,
		})
	}
	return targets
}

// PlannedAllocation is one step of a FIFO plan
type PlannedAllocation struct {
	OrderID          uuid.UUID
	OrderNumber      string
	Amount           decimal.Decimal
	OutstandingAfter decimal.Decimal
}

// SettlesOrder reports whether this allocation clears the order
func (a PlannedAllocation) SettlesOrder() bool {
	return a.OutstandingAfter.IsZero()
}

// AllocationPlan is the result of walking a customer's open orders oldest first
type AllocationPlan struct {
	Allocations    []PlannedAllocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal
}

// FullyAllocated is true when no part of the amount would be left as credit
func (p *AllocationPlan) FullyAllocated() bool {
	return p.Remaining.IsZero()
}

// Requests converts the plan into caller-directed allocations
func (p *AllocationPlan) Requests() []AllocationRequest {
	reqs := make([]AllocationRequest, len(p.Allocations))
	for i, a := range p.Allocations {
		reqs[i] = AllocationRequest{OrderID: a.OrderID, Amount: a.Amount}
	}
	return reqs
}

// PlanFIFO distributes amount across targets, oldest debt first. Each target
// receives min(remaining, outstanding) and the walk stops once nothing remains.
func PlanFIFO(amount decimal.Decimal, targets []AllocationTarget) (*AllocationPlan, error) {
	if !amount.IsPositive() {
		return nil, invalidAmount("Payment amount")
	}
	if err := checkScale("Payment amount", amount); err != nil {
		return nil, err
	}

	sorted := make([]AllocationTarget, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return lessOrderNumber(sorted[i].OrderNumber, sorted[j].OrderNumber)
	})

	plan := &AllocationPlan{
		Allocations:    make([]PlannedAllocation, 0),
		TotalAllocated: decimal.Zero,
		Remaining:      amount,
	}
	for _, t := range sorted {
		if plan.Remaining.IsZero() {
			break
		}
		if !t.Outstanding.IsPositive() {
			continue
		}
		alloc := decimal.Min(plan.Remaining, t.Outstanding)
		plan.Allocations = append(plan.Allocations, PlannedAllocation{
			OrderID:          t.OrderID,
			OrderNumber:      t.OrderNumber,
			Amount:           alloc,
			OutstandingAfter: t.Outstanding.Sub(alloc),
		})
		plan.TotalAllocated = plan.TotalAllocated.Add(alloc)
		plan.Remaining = plan.Remaining.Sub(alloc)
	}
	return plan, nil
}

// lessOrderNumber orders sequence numbers; they carry no leading zeros, so shorter is smaller
func lessOrderNumber(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
