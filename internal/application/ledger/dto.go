package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Customer DTOs
// =============================================================================

// CustomerInput identifies the customer of an order or a find-or-create call
type CustomerInput struct {
	Name     string
	Phone    string
	Email    string
	Address  string
	BranchID *uuid.UUID
}

func (in CustomerInput) toDomain() ledger.CustomerInput {
	return ledger.CustomerInput{
		Name:     in.Name,
		Phone:    in.Phone,
		Email:    in.Email,
		Address:  in.Address,
		BranchID: in.BranchID,
	}
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToCustomerResponse converts a domain customer
func ToCustomerResponse(c *ledger.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		BranchID:  c.BranchID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// =============================================================================
// Order DTOs
// =============================================================================

// LineItemInput is the priced quantity of one order line
type LineItemInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

func toLineAmounts(items []LineItemInput) []ledger.LineAmount {
	lines := make([]ledger.LineAmount, len(items))
	for i, item := range items {
		lines[i] = ledger.LineAmount{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	return lines
}

// CreateOrderRequest is what order entry hands the ledger when a sale is booked.
// The customer is taken from CustomerID when set, otherwise found or created from Customer.
type CreateOrderRequest struct {
	CustomerID    *uuid.UUID
	Customer      *CustomerInput
	BranchID      *uuid.UUID
	Items         []LineItemInput
	Discount      decimal.Decimal
	PaymentStatus string
	PaidAmount    decimal.Decimal
	DueAmount     *decimal.Decimal
}

// ReviseOrderRequest replaces the priced lines and discount of an order
type ReviseOrderRequest struct {
	Items    []LineItemInput
	Discount decimal.Decimal
}

// OrderResponse represents the financial state of an order
type OrderResponse struct {
	ID              uuid.UUID        `json:"id"`
	OrderNumber     string           `json:"order_number"`
	CustomerID      *uuid.UUID       `json:"customer_id,omitempty"`
	CustomerName    string           `json:"customer_name"`
	BranchID        *uuid.UUID       `json:"branch_id,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	Discount        decimal.Decimal  `json:"discount"`
	Total           decimal.Decimal  `json:"total"`
	PaidAmount      decimal.Decimal  `json:"paid_amount"`
	DueAmount       *decimal.Decimal `json:"due_amount"`
	Outstanding     decimal.Decimal  `json:"outstanding"`
	PaymentStatus   string           `json:"payment_status"`
	CustomerCreated bool             `json:"customer_created,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Version         int              `json:"version"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *ledger.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		BranchID:      o.BranchID,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Total:         o.Total,
		PaidAmount:    o.PaidAmount,
		DueAmount:     o.DueAmount,
		Outstanding:   o.Outstanding(),
		PaymentStatus: o.PaymentStatus.String(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}

// =============================================================================
// Due payment DTOs
// =============================================================================

// AllocationInput directs part of a payment to one order
type AllocationInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
}

// RecordPaymentRequest records money received from a customer.
// Allocations, when present, are applied in the given order. AutoAllocate
// applies the payment oldest order first and is ignored when Allocations are given.
type RecordPaymentRequest struct {
	CustomerID     uuid.UUID
	BranchID       *uuid.UUID
	Amount         decimal.Decimal
	PaymentMethod  string
	PaymentDate    time.Time
	Allocations    []AllocationInput
	AutoAllocate   bool
	Reference      string
	Note           string
	PaymentSlips   []string
	IdempotencyKey string
}

func (r RecordPaymentRequest) allocationRequests() []ledger.AllocationRequest {
	reqs := make([]ledger.AllocationRequest, len(r.Allocations))
	for i, a := range r.Allocations {
		reqs[i] = ledger.AllocationRequest{OrderID: a.OrderID, Amount: a.Amount}
	}
	return reqs
}

// UpdatePaymentRequest is an administrative correction of a recorded payment.
// Amount is accepted only to reject it.
type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal
	PaymentMethod *string
	PaymentDate   *time.Time
	Reference     *string
	Note          *string
}

// AllocationResponse is one applied allocation
type AllocationResponse struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// DuePaymentResponse represents a recorded payment
type DuePaymentResponse struct {
	ID              uuid.UUID            `json:"id"`
	CustomerID      uuid.UUID            `json:"customer_id"`
	BranchID        *uuid.UUID           `json:"branch_id,omitempty"`
	Amount          decimal.Decimal      `json:"amount"`
	PaymentMethod   string               `json:"payment_method"`
	PaymentDate     time.Time            `json:"payment_date"`
	UnappliedAmount decimal.Decimal      `json:"unapplied_amount"`
	AllocatedAmount decimal.Decimal      `json:"allocated_amount"`
	Reference       string               `json:"reference"`
	Note            string               `json:"note"`
	PaymentSlips    []string             `json:"payment_slips"`
	Allocations     []AllocationResponse `json:"allocations"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Version         int                  `json:"version"`
}

// ToDuePaymentResponse converts a domain payment
func ToDuePaymentResponse(p *ledger.DuePayment) DuePaymentResponse {
	allocations := make([]AllocationResponse, len(p.Allocations))
	for i, a := range p.Allocations {
		allocations[i] = AllocationResponse{
			ID:        a.ID,
			OrderID:   a.OrderID,
			Amount:    a.Amount,
			CreatedAt: a.CreatedAt,
		}
	}
	slips := p.PaymentSlips
	if slips == nil {
		slips = []string{}
	}
	return DuePaymentResponse{
		ID:              p.ID,
		CustomerID:      p.CustomerID,
		BranchID:        p.BranchID,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod.String(),
		PaymentDate:     p.PaymentDate,
		UnappliedAmount: p.UnappliedAmount,
		AllocatedAmount: p.AllocatedAmount(),
		Reference:       p.Reference,
		Note:            p.Note,
		PaymentSlips:    slips,
		Allocations:     allocations,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
}

// DuePaymentListFilter narrows the payment list
type DuePaymentListFilter struct {
	CustomerID    *uuid.UUID
	BranchID      *uuid.UUID
	PaymentMethod string
	FromDate      *time.Time
	ToDate        *time.Time
	SortBy        string
	SortOrder     string
	Page          int
	PageSize      int
}

// PlannedAllocationResponse is one step of a FIFO plan
type PlannedAllocationResponse struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	Amount           decimal.Decimal `json:"amount"`
	OutstandingAfter decimal.Decimal `json:"outstanding_after"`
}

// AllocationPlanResponse is the oldest-first split of an amount over open orders
type AllocationPlanResponse struct {
	CustomerID     uuid.UUID                   `json:"customer_id"`
	Amount         decimal.Decimal             `json:"amount"`
	Allocations    []PlannedAllocationResponse `json:"allocations"`
	TotalAllocated decimal.Decimal             `json:"total_allocated"`
	Remaining      decimal.Decimal             `json:"remaining"`
}

func toAllocationPlanResponse(customerID uuid.UUID, amount decimal.Decimal, plan *ledger.AllocationPlan) AllocationPlanResponse {
	steps := make([]PlannedAllocationResponse, len(plan.Allocations))
	for i, a := range plan.Allocations {
		steps[i] = PlannedAllocationResponse{
			OrderID:          a.OrderID,
			OrderNumber:      a.OrderNumber,
			Amount:           a.Amount,
			OutstandingAfter: a.OutstandingAfter,
		}
	}
	return AllocationPlanResponse{
		CustomerID:     customerID,
		Amount:         amount,
		Allocations:    steps,
		TotalAllocated: plan.TotalAllocated,
		Remaining:      plan.Remaining,
	}
}

// =============================================================================
// Ledger summary DTOs
// =============================================================================

// CustomerDueSummaryResponse is the derived ledger position of one customer
type CustomerDueSummaryResponse struct {
	CustomerID    uuid.UUID       `json:"customer_id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	BranchID      *uuid.UUID      `json:"branch_id,omitempty"`
	Placeholder   bool            `json:"placeholder"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Balance       decimal.Decimal `json:"balance"`
	Credit        decimal.Decimal `json:"credit"`
	OrdersCount   int             `json:"orders_count"`
	TotalOrders   int             `json:"total_orders"`
	PaymentsCount int             `json:"payments_count"`
}

func toSummaryResponse(s *ledger.CustomerDueSummary) CustomerDueSummaryResponse {
	return CustomerDueSummaryResponse{
		CustomerID:    s.CustomerID,
		Name:          s.Name,
		Phone:         s.Phone,
		Email:         s.Email,
		BranchID:      s.BranchID,
		Placeholder:   s.Placeholder,
		TotalDue:      s.TotalDue,
		TotalPaid:     s.TotalPaid,
		Balance:       s.Balance,
		Credit:        s.Credit,
		OrdersCount:   s.OrdersCount,
		TotalOrders:   s.TotalOrders,
		PaymentsCount: s.PaymentsCount,
	}
}

// SummaryListFilter selects and pages the all-customers ledger
type SummaryListFilter struct {
	BranchID   *uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
	Search     string
	Status     string
	MinBalance *decimal.Decimal
	MaxBalance *decimal.Decimal
	Page       int
	PageSize   int
}

// CustomerDueSummaryList is one page of customer summaries. Total counts every match.
type CustomerDueSummaryList struct {
	Summaries []CustomerDueSummaryResponse `json:"summaries"`
	Total     int                          `json:"total"`
	Page      int                          `json:"page"`
	PageSize  int                          `json:"page_size"`
}
