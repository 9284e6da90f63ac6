/*
Package order - 顾客侧订单 API 控制器

职责:
1. 接收 HTTP 请求，解析参数
2. 从 context 取出操作者，调用应用服务
3. 使用 response 包统一处理响应和错误

错误处理原则:
1. 参数绑定错误: 使用 response.HandleError 直接返回 400
2. 业务错误: 使用 response.HandleAppError 自动映射状态码
*/
package order

import (
	"net/http"

	"marketplace/api/ctxutil"
	"marketplace/api/response"
	orderapp "marketplace/application/order"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader 结账幂等键
const IdempotencyKeyHeader = "Idempotency-Key"

// Controller 订单控制器
type Controller struct {
	orderService *orderapp.ApplicationService
}

// NewController 创建订单控制器
func NewController(orderService *orderapp.ApplicationService) *Controller {
	return &Controller{
		orderService: orderService,
	}
}

// RegisterRoutes 注册订单路由
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/checkout", c.Checkout)

	orderGroup := router.Group("/orders")
	{
		orderGroup.GET("", c.ListOrders)
		orderGroup.GET("/:id", c.GetOrder)
		orderGroup.GET("/:id/cancel-window", c.GetCancelWindow)
		orderGroup.POST("/:id/cancel", c.Cancel)
		orderGroup.POST("/:id/pay", c.Pay)
		orderGroup.POST("/:id/confirm-receipt", c.ConfirmReceipt)
		orderGroup.POST("/:id/after-sales", c.CreateAfterSale)
	}

	router.POST("/order-groups/:id/pay", c.PayGroup)
	router.POST("/after-sales/:id/return-ship", c.ReturnShip)
}

// Checkout 结账
// POST /api/v1/checkout
func (c *Controller) Checkout(ctx *gin.Context) {
	var req orderapp.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}
	req.IdempotencyKey = ctx.GetHeader(IdempotencyKeyHeader)

	resp, err := c.orderService.Checkout(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	if resp.Replayed {
		response.HandleSuccess(ctx, resp, "checkout already completed")
		return
	}
	response.HandleCreated(ctx, resp, "order group created successfully")
}

// ListOrders 订单列表
// GET /api/v1/orders?page=&size=&status=
func (c *Controller) ListOrders(ctx *gin.Context) {
	listOrders(ctx, c.orderService)
}

// GetOrder 订单详情；未支付且已过截止时间的订单会先被自动取消
// GET /api/v1/orders/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	resp, err := c.orderService.GetOrder(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order retrieved successfully")
}

// GetCancelWindow 取消窗口剩余时间
// GET /api/v1/orders/:id/cancel-window
func (c *Controller) GetCancelWindow(ctx *gin.Context) {
	resp, err := c.orderService.GetCancelWindow(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cancel window retrieved successfully")
}

// Cancel 顾客取消；需要商家审批时返回 202
// POST /api/v1/orders/:id/cancel
func (c *Controller) Cancel(ctx *gin.Context) {
	var req orderapp.CancelOrderRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.Cancel(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	if resp.RequiresMerchantApproval {
		response.HandleAccepted(ctx, resp, "cancel request submitted for merchant approval")
		return
	}
	response.HandleSuccess(ctx, resp, "order cancelled successfully")
}

// Pay 单笔支付
// POST /api/v1/orders/:id/pay
func (c *Controller) Pay(ctx *gin.Context) {
	var req orderapp.PayRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.Pay(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "payment processed")
}

// PayGroup 合并支付
// POST /api/v1/order-groups/:id/pay
func (c *Controller) PayGroup(ctx *gin.Context) {
	var req orderapp.PayRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.PayGroup(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "group payment processed")
}

// ConfirmReceipt 确认收货
// POST /api/v1/orders/:id/confirm-receipt
func (c *Controller) ConfirmReceipt(ctx *gin.Context) {
	resp, err := c.orderService.ConfirmReceipt(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "receipt confirmed")
}

// CreateAfterSale 申请售后
// POST /api/v1/orders/:id/after-sales
func (c *Controller) CreateAfterSale(ctx *gin.Context) {
	var req orderapp.CreateAfterSaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.CreateAfterSale(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, resp, "after-sale request created")
}

// ReturnShip 顾客寄回退货
// POST /api/v1/after-sales/:id/return-ship
func (c *Controller) ReturnShip(ctx *gin.Context) {
	var req orderapp.ReturnShipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.ReturnShip(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "return shipment recorded")
}
