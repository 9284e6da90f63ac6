package order

import (
	"net/http"

	"marketplace/api/ctxutil"
	"marketplace/api/response"
	orderapp "marketplace/application/order"

	"github.com/gin-gonic/gin"
)

// AdminController 平台管理员操作
type AdminController struct {
	orderService *orderapp.ApplicationService
}

func NewAdminController(orderService *orderapp.ApplicationService) *AdminController {
	return &AdminController{orderService: orderService}
}

func (c *AdminController) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	{
		admin.GET("/orders", c.ListOrders)
		admin.PATCH("/orders/:id/status", c.UpdateOrderStatus)
		admin.DELETE("/orders/:id", c.RemoveOrder)
		admin.PATCH("/after-sales/:id", c.HandleAfterSale)
	}
}

func (c *AdminController) ListOrders(ctx *gin.Context) {
	listOrders(ctx, c.orderService)
}

// UpdateOrderStatus 管理员覆盖订单状态
// PATCH /api/v1/admin/orders/:id/status
func (c *AdminController) UpdateOrderStatus(ctx *gin.Context) {
	var req orderapp.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.UpdateOrderStatus(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order status updated")
}

// RemoveOrder 软删除
// DELETE /api/v1/admin/orders/:id
func (c *AdminController) RemoveOrder(ctx *gin.Context) {
	var req orderapp.RemoveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.RemoveOrder(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order removed")
}

// HandleAfterSale 平台介入售后
// PATCH /api/v1/admin/after-sales/:id
func (c *AdminController) HandleAfterSale(ctx *gin.Context) {
	var req orderapp.HandleAfterSaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.AdminHandleAfterSale(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "after-sale request handled by platform")
}
