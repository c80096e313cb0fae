package handler

import (
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// LedgerRoutes creates the route group for the due ledger
func LedgerRoutes(
	orders *OrderHandler,
	customers *CustomerHandler,
	payments *DuePaymentHandler,
	middleware ...gin.HandlerFunc,
) *router.DomainGroup {
	group := router.NewDomainGroup("ledger", "/ledger")
	group.Use(middleware...)

	// Order financials
	group.POST("/order-numbers", orders.NextOrderNumber)
	group.POST("/orders", orders.Create)
	group.GET("/orders/:id", orders.Get)
	group.PUT("/orders/:id/amounts", orders.ReviseAmounts)

	// Customers and their positions
	group.POST("/customers", customers.FindOrCreate)
	group.GET("/customers/:id", customers.Get)
	group.GET("/customers/:id/summary", customers.Summary)
	group.GET("/customers/:id/fifo-plan", customers.FIFOPlan)
	group.GET("/summaries", customers.ListSummaries)

	// Due payments
	group.POST("/payments", payments.Record)
	group.GET("/payments", payments.List)
	group.GET("/payments/:id", payments.Get)
	group.PUT("/payments/:id", payments.Update)
	group.DELETE("/payments/:id", payments.Delete)

	return group
}

// SystemRoutes creates the unversioned health and system group
func SystemRoutes(handler *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/")
	group.GET("/health", handler.Health)
	group.GET("/system/ping", handler.Ping)
	group.GET("/system/info", handler.GetSystemInfo)
	return group
}
