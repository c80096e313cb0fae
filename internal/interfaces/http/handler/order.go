package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles the financial side of orders
type OrderHandler struct {
	BaseHandler
	orderService *ledgerapp.OrderFinancialService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *ledgerapp.OrderFinancialService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// NextOrderNumber handles POST /ledger/order-numbers.
// The number is issued immediately and is never handed out twice.
func (h *OrderHandler) NextOrderNumber(c *gin.Context) {
	number, err := h.orderService.NextOrderNumber(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, OrderNumberResponse{OrderNumber: number})
}

// Create handles POST /ledger/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.CreateOrderFinancials(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get handles GET /ledger/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := pathID(c, "order")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ReviseAmounts handles PUT /ledger/orders/:id/amounts
func (h *OrderHandler) ReviseAmounts(c *gin.Context) {
	id, err := pathID(c, "order")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req ReviseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	appReq, err := req.toApp()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.ReviseOrderAmounts(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
