// Package router wires middleware and handlers into the gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/infrastructure/logger"
	"github.com/procurehub/portal/internal/interfaces/http/handler"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	Reference     *handler.ReferenceHandler
	Warmup        *handler.WarmupHandler
	System        *handler.SystemHandler
}

// Config holds router-level settings.
type Config struct {
	CORS         middleware.CORSConfig
	Session      middleware.SessionConfig
	MaxBodyBytes int64
	// LoginLimiter, when set, throttles the credential endpoints.
	LoginLimiter *middleware.RateLimiter
}

// New builds the gin engine with the portal's middleware stack and
// routes. Middleware order: recovery, request id, request logging,
// security headers, CORS, body limit, then the cookie session guard on
// the API group.
func New(log *zap.Logger, h Handlers, cfg Config) *gin.Engine {
	engine := gin.New()

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/healthz", h.System.Health)

	api := engine.Group("/api/v1")
	api.Use(middleware.SessionMiddleware(cfg.Session))

	auth := api.Group("/auth")
	if cfg.LoginLimiter != nil {
		auth.Use(middleware.RateLimit(cfg.LoginLimiter))
	}
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/session", h.Auth.Session)
	}

	orders := api.Group("/purchase-orders")
	{
		orders.GET("", h.PurchaseOrder.List)
		orders.POST("", h.PurchaseOrder.Create)
		orders.GET("/:id", h.PurchaseOrder.Get)
		orders.PATCH("/:id", h.PurchaseOrder.Edit)
		orders.DELETE("/:id", h.PurchaseOrder.Delete)

		orders.PUT("/:id/steps/requester", h.PurchaseOrder.SaveStepOne)
		orders.PUT("/:id/steps/items", h.PurchaseOrder.SaveStepTwo)
		orders.PUT("/:id/steps/payment", h.PurchaseOrder.SaveStepThree)
		orders.PUT("/:id/steps/compliance", h.PurchaseOrder.SaveStepFour)
		orders.PUT("/:id/steps/review", h.PurchaseOrder.SaveStepFive)

		orders.POST("/:id/items", h.PurchaseOrder.SaveItem)
		orders.DELETE("/:id/items/:itemId", h.PurchaseOrder.DeleteItem)
		orders.PUT("/:id/items/reorder", h.PurchaseOrder.ReorderItems)
	}

	api.GET("/reference-data", h.Reference.All)
	api.GET("/departments", h.Reference.Departments)
	api.GET("/users", h.Reference.Users)
	api.GET("/catalog", h.Reference.CatalogItems)
	api.GET("/suppliers", h.Reference.Suppliers)
	api.GET("/payment-terms", h.Reference.PaymentTerms)

	warmup := api.Group("/warm-up")
	{
		warmup.POST("/start", h.Warmup.Start)
		warmup.GET("/status", h.Warmup.Status)
		warmup.GET("/stream", h.Warmup.Stream)
	}

	return engine
}
