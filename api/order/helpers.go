package order

import (
	"net/http"

	"marketplace/api/ctxutil"
	"marketplace/api/response"
	orderapp "marketplace/application/order"

	"github.com/gin-gonic/gin"
)

// bindOptionalJSON 请求体可以为空；非空时必须是合法 JSON
func bindOptionalJSON(ctx *gin.Context, obj any) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	if err := ctx.ShouldBindJSON(obj); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return false
	}
	return true
}

// listOrders 三种角色共用，可见范围由应用服务按操作者决定
func listOrders(ctx *gin.Context, svc *orderapp.ApplicationService) {
	var q orderapp.ListOrdersQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		response.HandleError(ctx, err, "invalid query parameters", http.StatusBadRequest)
		return
	}

	resp, err := svc.ListOrders(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), q)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandlePaginated(ctx, resp.Items, response.NewPagination(resp.Page, resp.Size, resp.Total), "orders retrieved successfully")
}
