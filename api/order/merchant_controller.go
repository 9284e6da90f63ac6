package order

import (
	"net/http"

	"marketplace/api/ctxutil"
	"marketplace/api/response"
	orderapp "marketplace/application/order"

	"github.com/gin-gonic/gin"
)

// MerchantController 商家侧履约、审核与售后处理。管理员同样可以调用这些接口。
type MerchantController struct {
	orderService *orderapp.ApplicationService
}

func NewMerchantController(orderService *orderapp.ApplicationService) *MerchantController {
	return &MerchantController{orderService: orderService}
}

// RegisterRoutes 注册 /merchant 路由
func (c *MerchantController) RegisterRoutes(router *gin.RouterGroup) {
	merchant := router.Group("/merchant")
	{
		merchant.GET("/orders", c.ListOrders)
		merchant.POST("/orders/:id/ship", c.Ship)
		merchant.PATCH("/orders/:id/shipping-status", c.UpdateShippingStatus)
		merchant.POST("/orders/:id/void", c.Void)

		merchant.GET("/cancel-requests", c.ListCancelRequests)
		merchant.POST("/cancel-requests/:id/approve", c.ApproveCancelRequest)
		merchant.POST("/cancel-requests/:id/reject", c.RejectCancelRequest)

		merchant.PATCH("/after-sales/:id", c.HandleAfterSale)
		merchant.POST("/after-sales/:id/receive-return", c.ReceiveReturn)
		merchant.POST("/after-sales/:id/complete-exchange", c.CompleteExchange)
	}
}

func (c *MerchantController) ListOrders(ctx *gin.Context) {
	listOrders(ctx, c.orderService)
}

// Ship 发货
// POST /api/v1/merchant/orders/:id/ship
func (c *MerchantController) Ship(ctx *gin.Context) {
	var req orderapp.ShipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.ShipOrder(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order shipped")
}

// UpdateShippingStatus 更新物流状态
// PATCH /api/v1/merchant/orders/:id/shipping-status
func (c *MerchantController) UpdateShippingStatus(ctx *gin.Context) {
	var req orderapp.ShippingStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.UpdateShippingStatus(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "shipping status updated")
}

// Void 作废订单
// POST /api/v1/merchant/orders/:id/void
func (c *MerchantController) Void(ctx *gin.Context) {
	var req orderapp.VoidRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.VoidOrder(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "order voided")
}

// ListCancelRequests 取消申请列表，status 缺省为 PENDING
// GET /api/v1/merchant/cancel-requests?status=
func (c *MerchantController) ListCancelRequests(ctx *gin.Context) {
	resp, err := c.orderService.ListCancelRequests(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Query("status"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cancel requests retrieved successfully")
}

// ApproveCancelRequest 同意取消申请
// POST /api/v1/merchant/cancel-requests/:id/approve
func (c *MerchantController) ApproveCancelRequest(ctx *gin.Context) {
	var req orderapp.DecisionRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.ApproveCancelRequest(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cancel request approved")
}

// RejectCancelRequest 拒绝取消申请
// POST /api/v1/merchant/cancel-requests/:id/reject
func (c *MerchantController) RejectCancelRequest(ctx *gin.Context) {
	var req orderapp.DecisionRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	resp, err := c.orderService.RejectCancelRequest(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cancel request rejected")
}

// HandleAfterSale 商家审核售后
// PATCH /api/v1/merchant/after-sales/:id
func (c *MerchantController) HandleAfterSale(ctx *gin.Context) {
	var req orderapp.HandleAfterSaleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.orderService.HandleAfterSale(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "after-sale request handled")
}

// ReceiveReturn 商家确认收到退货
// POST /api/v1/merchant/after-sales/:id/receive-return
func (c *MerchantController) ReceiveReturn(ctx *gin.Context) {
	resp, err := c.orderService.ReceiveReturn(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "return received")
}

// CompleteExchange 换货完成（暂不支持，返回 501）
// POST /api/v1/merchant/after-sales/:id/complete-exchange
func (c *MerchantController) CompleteExchange(ctx *gin.Context) {
	resp, err := c.orderService.CompleteExchange(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "exchange completed")
}
