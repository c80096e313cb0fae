package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// DuePaymentHandler handles payments received against customer dues
type DuePaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentAllocationService
}

// NewDuePaymentHandler creates a new DuePaymentHandler
func NewDuePaymentHandler(paymentService *ledgerapp.PaymentAllocationService) *DuePaymentHandler {
	return &DuePaymentHandler{paymentService: paymentService}
}

// Record handles POST /ledger/payments. An Idempotency-Key header guards
// against a retried request booking the same payment twice.
func (h *DuePaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// List handles GET /ledger/payments
func (h *DuePaymentHandler) List(c *gin.Context) {
	var q PaymentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := q.toApp(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.paymentService.ListDuePayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get handles GET /ledger/payments/:id
func (h *DuePaymentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "payment")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	payment, err := h.paymentService.GetDuePayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Update handles PUT /ledger/payments/:id. The amount cannot change here.
func (h *DuePaymentHandler) Update(c *gin.Context) {
	id, err := pathID(c, "payment")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.UpdateDuePayment(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Delete handles DELETE /ledger/payments/:id
func (h *DuePaymentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "payment")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if err := h.paymentService.DeleteDuePayment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
