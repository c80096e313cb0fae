package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customers and their ledger positions
type CustomerHandler struct {
	BaseHandler
	customerService *ledgerapp.CustomerService
	ledgerService   *ledgerapp.CustomerLedgerService
	paymentService  *ledgerapp.PaymentAllocationService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(
	customerService *ledgerapp.CustomerService,
	ledgerService *ledgerapp.CustomerLedgerService,
	paymentService *ledgerapp.PaymentAllocationService,
) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		ledgerService:   ledgerService,
		paymentService:  paymentService,
	}
}

// FindOrCreate handles POST /ledger/customers. An existing match answers 200,
// a new customer 201.
func (h *CustomerHandler) FindOrCreate(c *gin.Context) {
	var req CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	in, err := req.toApp(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customer, created, err := h.customerService.FindOrCreateCustomer(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, customer)
		return
	}
	h.Success(c, customer)
}

// Get handles GET /ledger/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	id, err := pathID(c, "customer")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Summary handles GET /ledger/customers/:id/summary
func (h *CustomerHandler) Summary(c *gin.Context) {
	id, err := pathID(c, "customer")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	summary, err := h.ledgerService.GetCustomerDueSummary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// FIFOPlan handles GET /ledger/customers/:id/fifo-plan?amount=. Nothing is written.
func (h *CustomerHandler) FIFOPlan(c *gin.Context) {
	id, err := pathID(c, "customer")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var q FIFOPlanQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	amount, err := parseDecimal("amount", q.Amount)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	plan, err := h.paymentService.PlanFIFOAllocation(c.Request.Context(), id, amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ListSummaries handles GET /ledger/summaries
func (h *CustomerHandler) ListSummaries(c *gin.Context) {
	var q SummaryListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := q.toApp(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	list, err := h.ledgerService.GetAllCustomersDueSummary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, list.Summaries, int64(list.Total), list.Page, list.PageSize)
}
