// Package gateway is the storefront HTTP API.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "github.com/example/storefront/docs"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

type AuditReader interface {
	GetAuditLogs(ctx context.Context, orderID int64, limit int64) ([]*repository.AuditLog, error)
}

// Deps are the collaborators behind the routes. Audit, Health and Metrics are
// optional.
type Deps struct {
	Orders   *service.OrderService
	Payments *service.PaymentService
	Catalog  *service.CatalogService
	Audit    AuditReader
	Health   HealthChecker
	Metrics  *metrics.Recorder
}

type Gateway struct {
	config *config.Config
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}

	return &Gateway{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: router,
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	if g.deps.Metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.deps.Metrics.Handler()))
	}

	api := g.router.Group("/api")
	{
		api.GET("/config", g.publicConfig)

		products := api.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/:id", g.getProduct)
		}

		orders := api.Group("/orders", customerMiddleware())
		{
			orders.POST("", g.createOrder)
			orders.GET("", g.listOrders)
			orders.GET("/:id", g.getOrder)
			orders.POST("/:id/payment", g.initiatePayment)
		}

		api.POST("/payments/webhook", g.paymentWebhook)

		admin := api.Group("/admin", customerMiddleware(), adminMiddleware(g.config.Admin.UserID))
		{
			admin.POST("/products", g.createProduct)
			admin.PUT("/products/:id", g.updateProduct)
			admin.DELETE("/products/:id", g.deleteProduct)
			admin.GET("/orders/:id/audit", g.orderAudit)
		}
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start serves until Shutdown is called.
func (g *Gateway) Start() error {
	addr := g.config.Server.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	if g.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := g.deps.Health(ctx); err != nil {
			g.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) publicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin_id": g.config.Admin.UserID})
}
