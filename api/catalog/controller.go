package catalog

import (
	"net/http"

	"marketplace/api/ctxutil"
	"marketplace/api/response"
	catalogapp "marketplace/application/catalog"

	"github.com/gin-gonic/gin"
)

// Controller 商品与购物车
type Controller struct {
	catalogService *catalogapp.ApplicationService
}

func NewController(catalogService *catalogapp.ApplicationService) *Controller {
	return &Controller{catalogService: catalogService}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/merchant/products", c.RegisterProduct)
	router.GET("/products/:id", c.GetProduct)
	router.GET("/cart", c.ViewCart)
	router.PUT("/cart/items/:productId", c.SetCartItem)
}

// RegisterProduct 商家上架商品
// POST /api/v1/merchant/products
func (c *Controller) RegisterProduct(ctx *gin.Context) {
	var req catalogapp.RegisterProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.catalogService.RegisterProduct(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleCreated(ctx, resp, "product registered")
}

// GetProduct GET /api/v1/products/:id
func (c *Controller) GetProduct(ctx *gin.Context) {
	resp, err := c.catalogService.GetProduct(ctxutil.WithRequestID(ctx), ctx.Param("id"))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "product retrieved successfully")
}

// SetCartItem 设置购物车商品数量，quantity 为 0 时移除
// PUT /api/v1/cart/items/:productId
func (c *Controller) SetCartItem(ctx *gin.Context) {
	var req catalogapp.SetCartItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.HandleError(ctx, err, "invalid request parameters", http.StatusBadRequest)
		return
	}

	resp, err := c.catalogService.SetCartItem(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx), ctx.Param("productId"), req)
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cart updated")
}

// ViewCart GET /api/v1/cart
func (c *Controller) ViewCart(ctx *gin.Context) {
	resp, err := c.catalogService.ViewCart(ctxutil.WithRequestID(ctx), ctxutil.Actor(ctx))
	if err != nil {
		response.HandleAppError(ctx, err)
		return
	}
	response.HandleSuccess(ctx, resp, "cart retrieved successfully")
}
