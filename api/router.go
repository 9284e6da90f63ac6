package api

import (
	"marketplace/api/catalog"
	"marketplace/api/health"
	"marketplace/api/middleware"
	"marketplace/api/order"
	"marketplace/config"

	"github.com/gin-gonic/gin"
)

// Router Route configuration
type Router struct {
	engine             *gin.Engine
	config             *config.Config
	healthController   *health.Controller
	orderController    *order.Controller
	merchantController *order.MerchantController
	adminController    *order.AdminController
	catalogController  *catalog.Controller
}

// NewRouter Create route configuration
func NewRouter(
	cfg *config.Config,
	healthController *health.Controller,
	orderController *order.Controller,
	merchantController *order.MerchantController,
	adminController *order.AdminController,
	catalogController *catalog.Controller,
) *Router {
	// Set Gin mode based on environment
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Add middleware (order is important)
	engine.Use(middleware.RequestIDMiddleware())                      // 1. Generate request ID first
	engine.Use(middleware.RecoveryMiddleware())                       // 2. Recovery middleware
	engine.Use(middleware.LoggingMiddleware())                        // 3. Logging middleware
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))                  // 4. CORS
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit)) // 5. Rate limiting

	return &Router{
		engine:             engine,
		config:             cfg,
		healthController:   healthController,
		orderController:    orderController,
		merchantController: merchantController,
		adminController:    adminController,
		catalogController:  catalogController,
	}
}

// SetupRoutes Set up all routes
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	r.healthController.RegisterRoutes(apiGroup)

	// 6. 业务接口需要网关注入的操作者身份
	business := apiGroup.Group("")
	business.Use(middleware.ActorMiddleware())
	{
		r.orderController.RegisterRoutes(business)
		r.merchantController.RegisterRoutes(business)
		r.adminController.RegisterRoutes(business)
		r.catalogController.RegisterRoutes(business)
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

// GetEngine Get Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
