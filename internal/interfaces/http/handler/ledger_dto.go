package handler

import (
	"strings"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Money travels as decimal strings so no amount passes through float64.

// CustomerInput identifies a customer to find or create
type CustomerInput struct {
	Name     string `json:"name" binding:"required,max=200"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	Email    string `json:"email" binding:"omitempty,email,max=200"`
	Address  string `json:"address"`
	BranchID string `json:"branch_id" binding:"omitempty,uuid"`
}

func (in CustomerInput) toApp(c *gin.Context) (ledgerapp.CustomerInput, error) {
	branchID, err := branchOrDefault(c, "branch_id", in.BranchID)
	if err != nil {
		return ledgerapp.CustomerInput{}, err
	}
	return ledgerapp.CustomerInput{
		Name:     in.Name,
		Phone:    in.Phone,
		Email:    in.Email,
		Address:  in.Address,
		BranchID: branchID,
	}, nil
}

// LineItemInput is one priced order line
type LineItemInput struct {
	Quantity  string `json:"quantity" binding:"required,decimal_gt0"`
	UnitPrice string `json:"unit_price" binding:"required,decimal_gte0"`
}

func toLineItems(items []LineItemInput) ([]ledgerapp.LineItemInput, error) {
	out := make([]ledgerapp.LineItemInput, len(items))
	for i, item := range items {
		qty, err := parseDecimal("quantity", item.Quantity)
		if err != nil {
			return nil, err
		}
		price, err := parseDecimal("unit_price", item.UnitPrice)
		if err != nil {
			return nil, err
		}
		out[i] = ledgerapp.LineItemInput{Quantity: qty, UnitPrice: price}
	}
	return out, nil
}

// CreateOrderRequest books the financial side of a new order.
// The customer is customer_id when given, else found or created from customer.
type CreateOrderRequest struct {
	CustomerID    string          `json:"customer_id" binding:"omitempty,uuid"`
	Customer      *CustomerInput  `json:"customer"`
	BranchID      string          `json:"branch_id" binding:"omitempty,uuid"`
	Items         []LineItemInput `json:"items" binding:"required,min=1,dive"`
	Discount      string          `json:"discount" binding:"omitempty,decimal_gte0"`
	PaymentStatus string          `json:"payment_status"`
	PaidAmount    string          `json:"paid_amount" binding:"omitempty,decimal_gte0"`
	DueAmount     *string         `json:"due_amount" binding:"omitempty,decimal_gte0"`
}

func (r CreateOrderRequest) toApp(c *gin.Context) (ledgerapp.CreateOrderRequest, error) {
	var out ledgerapp.CreateOrderRequest
	var err error
	if out.CustomerID, err = parseUUIDPtr("customer_id", r.CustomerID); err != nil {
		return out, err
	}
	if out.BranchID, err = branchOrDefault(c, "branch_id", r.BranchID); err != nil {
		return out, err
	}
	if r.Customer != nil && out.CustomerID == nil {
		in, err := r.Customer.toApp(c)
		if err != nil {
			return out, err
		}
		out.Customer = &in
	}
	if out.Items, err = toLineItems(r.Items); err != nil {
		return out, err
	}
	if out.Discount, err = parseDecimal("discount", r.Discount); err != nil {
		return out, err
	}
	if out.PaidAmount, err = parseDecimal("paid_amount", r.PaidAmount); err != nil {
		return out, err
	}
	if out.DueAmount, err = parseDecimalPtr("due_amount", r.DueAmount); err != nil {
		return out, err
	}
	out.PaymentStatus = r.PaymentStatus
	return out, nil
}

// ReviseOrderRequest replaces the priced lines and discount of an order
type ReviseOrderRequest struct {
	Items    []LineItemInput `json:"items" binding:"required,min=1,dive"`
	Discount string          `json:"discount" binding:"omitempty,decimal_gte0"`
}

func (r ReviseOrderRequest) toApp() (ledgerapp.ReviseOrderRequest, error) {
	items, err := toLineItems(r.Items)
	if err != nil {
		return ledgerapp.ReviseOrderRequest{}, err
	}
	discount, err := parseDecimal("discount", r.Discount)
	if err != nil {
		return ledgerapp.ReviseOrderRequest{}, err
	}
	return ledgerapp.ReviseOrderRequest{Items: items, Discount: discount}, nil
}

// OrderNumberResponse carries a freshly issued order number
type OrderNumberResponse struct {
	OrderNumber string `json:"order_number"`
}

// AllocationInput directs part of a payment to one order
type AllocationInput struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
	Amount  string `json:"amount" binding:"required,decimal_gt0"`
}

// RecordPaymentRequest records money received from a customer
type RecordPaymentRequest struct {
	CustomerID     string            `json:"customer_id" binding:"required,uuid"`
	BranchID       string            `json:"branch_id" binding:"omitempty,uuid"`
	Amount         string            `json:"amount" binding:"required,decimal_gt0"`
	PaymentMethod  string            `json:"payment_method" binding:"required"`
	PaymentDate    string            `json:"payment_date"`
	Allocations    []AllocationInput `json:"allocations" binding:"omitempty,dive"`
	AutoAllocate   bool              `json:"auto_allocate"`
	Reference      string            `json:"reference" binding:"omitempty,max=100"`
	Note           string            `json:"note"`
	PaymentSlips   []string          `json:"payment_slips"`
	IdempotencyKey string            `json:"idempotency_key" binding:"omitempty,max=128"`
}

func (r RecordPaymentRequest) toApp(c *gin.Context) (ledgerapp.RecordPaymentRequest, error) {
	out := ledgerapp.RecordPaymentRequest{
		PaymentMethod: r.PaymentMethod,
		AutoAllocate:  r.AutoAllocate,
		Reference:     r.Reference,
		Note:          r.Note,
		PaymentSlips:  r.PaymentSlips,
	}
	customerID, err := uuid.Parse(r.CustomerID)
	if err != nil {
		return out, err
	}
	out.CustomerID = customerID
	if out.BranchID, err = branchOrDefault(c, "branch_id", r.BranchID); err != nil {
		return out, err
	}
	if out.Amount, err = parseDecimal("amount", r.Amount); err != nil {
		return out, err
	}
	date, err := parseTime("payment_date", r.PaymentDate, false)
	if err != nil {
		return out, err
	}
	if date != nil {
		out.PaymentDate = *date
	}
	for _, a := range r.Allocations {
		orderID, err := uuid.Parse(a.OrderID)
		if err != nil {
			return out, err
		}
		amount, err := parseDecimal("allocation amount", a.Amount)
		if err != nil {
			return out, err
		}
		out.Allocations = append(out.Allocations, ledgerapp.AllocationInput{OrderID: orderID, Amount: amount})
	}

	// the header wins over the body
	out.IdempotencyKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	if out.IdempotencyKey == "" {
		out.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	}
	return out, nil
}

// UpdatePaymentRequest corrects a recorded payment. Only fields present change.
type UpdatePaymentRequest struct {
	Amount        *string `json:"amount"`
	PaymentMethod *string `json:"payment_method"`
	PaymentDate   *string `json:"payment_date"`
	Reference     *string `json:"reference" binding:"omitempty,max=100"`
	Note          *string `json:"note"`
}

func (r UpdatePaymentRequest) toApp() (ledgerapp.UpdatePaymentRequest, error) {
	out := ledgerapp.UpdatePaymentRequest{
		PaymentMethod: r.PaymentMethod,
		Reference:     r.Reference,
		Note:          r.Note,
	}
	var err error
	if out.Amount, err = parseDecimalPtr("amount", r.Amount); err != nil {
		return out, err
	}
	if r.PaymentDate != nil {
		if out.PaymentDate, err = parseTime("payment_date", *r.PaymentDate, false); err != nil {
			return out, err
		}
	}
	return out, nil
}

// PaymentListQuery filters the payment list
type PaymentListQuery struct {
	dto.PageRequest
	CustomerID    string `form:"customer_id" binding:"omitempty,uuid"`
	BranchID      string `form:"branch_id" binding:"omitempty,uuid"`
	PaymentMethod string `form:"payment_method"`
	FromDate      string `form:"from_date"`
	ToDate        string `form:"to_date"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=payment_date amount unapplied_amount payment_method created_at"`
	SortOrder     string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

func (q PaymentListQuery) toApp(c *gin.Context) (ledgerapp.DuePaymentListFilter, error) {
	out := ledgerapp.DuePaymentListFilter{
		PaymentMethod: q.PaymentMethod,
		SortBy:        q.SortBy,
		SortOrder:     q.SortOrder,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}
	var err error
	if out.CustomerID, err = parseUUIDPtr("customer_id", q.CustomerID); err != nil {
		return out, err
	}
	if out.BranchID, err = branchOrDefault(c, "branch_id", q.BranchID); err != nil {
		return out, err
	}
	if out.FromDate, err = parseTime("from_date", q.FromDate, false); err != nil {
		return out, err
	}
	if out.ToDate, err = parseTime("to_date", q.ToDate, true); err != nil {
		return out, err
	}
	return out, nil
}

// SummaryListQuery filters the all-customers ledger
type SummaryListQuery struct {
	dto.PageRequest
	BranchID   string `form:"branch_id" binding:"omitempty,uuid"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Search     string `form:"search" binding:"omitempty,max=200"`
	Status     string `form:"status"`
	MinBalance string `form:"min_balance" binding:"omitempty,decimal_gte0"`
	MaxBalance string `form:"max_balance" binding:"omitempty,decimal_gte0"`
}

func (q SummaryListQuery) toApp(c *gin.Context) (ledgerapp.SummaryListFilter, error) {
	out := ledgerapp.SummaryListFilter{
		Search:   q.Search,
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	var err error
	if out.BranchID, err = branchOrDefault(c, "branch_id", q.BranchID); err != nil {
		return out, err
	}
	if out.FromDate, err = parseTime("from_date", q.FromDate, false); err != nil {
		return out, err
	}
	if out.ToDate, err = parseTime("to_date", q.ToDate, true); err != nil {
		return out, err
	}
	if out.MinBalance, err = parseDecimalPtr("min_balance", &q.MinBalance); err != nil {
		return out, err
	}
	if out.MaxBalance, err = parseDecimalPtr("max_balance", &q.MaxBalance); err != nil {
		return out, err
	}
	return out, nil
}

// FIFOPlanQuery holds the amount to plan
type FIFOPlanQuery struct {
	Amount string `form:"amount" binding:"required,decimal_gt0"`
}
