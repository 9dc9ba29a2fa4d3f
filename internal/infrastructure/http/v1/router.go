// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/security"
	"stockbook/internal/domain/archive"
	"stockbook/internal/domain/auth"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/domain/credit"
	"stockbook/internal/domain/inventory"
	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/purchase"
	"stockbook/internal/domain/settings"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

// RouterConfig holds everything the HTTP layer needs.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Guard evaluates permission expressions
	Guard *security.Guard

	// IdempotencyStore enables replay-safe mutations when set
	IdempotencyStore *postgres.IdempotencyStore

	Auth      *auth.Service
	Products  *product.Service
	Suppliers *supplier.Service
	Customers *customer.Service
	Inventory *inventory.Engine
	Purchases *purchase.Service
	Invoices  *invoice.Service
	Credit    *credit.Service
	Settings  *settings.Service
	Trash     *archive.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(base, cfg.Auth)

	api := router.Group("/api/v1")
	{
		// Public auth endpoints
		public := api.Group("/auth")
		{
			public.POST("/login", authHandler.Login)
			public.POST("/biometric/login", authHandler.BiometricLogin)
			public.GET("/biometric/available", authHandler.BiometricAvailable)
		}

		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		protected.Use(middleware.UserContext())
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		registerAuthRoutes(protected, base, authHandler, cfg)
		registerCatalogRoutes(protected, base, cfg)
		registerInventoryRoutes(protected, base, cfg)
		registerPurchaseRoutes(protected, base, cfg)
		registerInvoiceRoutes(protected, base, cfg)
		registerCreditRoutes(protected, base, cfg)
		registerTrashRoutes(protected, base, cfg)
		registerSettingsRoutes(protected, base, cfg)
	}

	return router
}

func registerAuthRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, h *handlers.AuthHandler, cfg RouterConfig) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/biometric/enroll", h.BiometricEnroll)
		authGroup.DELETE("/biometric", h.BiometricDisable)
		authGroup.GET("/biometric/status", h.BiometricStatus)
	}

	users := rg.Group("/users")
	users.Use(middleware.RequirePermission(cfg.Guard, security.PermUsersManage))
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	read := middleware.RequirePermission(cfg.Guard, security.PermProductsRead)
	write := middleware.RequirePermission(cfg.Guard, security.PermProductsWrite)

	productHandler := handlers.NewProductHandler(base, cfg.Products)
	products := rg.Group("/products")
	{
		products.GET("", read, productHandler.List)
		products.POST("", write, productHandler.Create)
		products.GET("/categories", read, productHandler.Categories)
		products.GET("/low-stock", read, productHandler.LowStock)
		products.GET("/top-selling", read, productHandler.TopSelling)
		products.GET("/sku/:sku", read, productHandler.GetBySKU)
		products.GET("/by-supplier/:id", read, productHandler.BySupplier)
		products.GET("/:id", read, productHandler.Get)
		products.PUT("/:id", write, productHandler.Update)
		products.DELETE("/:id", write, productHandler.Delete)
	}

	supplierHandler := handlers.NewSupplierHandler(base, cfg.Suppliers)
	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", read, supplierHandler.List)
		suppliers.POST("", write, supplierHandler.Create)
		suppliers.GET("/:id", read, supplierHandler.Get)
		suppliers.PUT("/:id", write, supplierHandler.Update)
		suppliers.DELETE("/:id", write, supplierHandler.Delete)
	}

	customerHandler := handlers.NewCustomerHandler(base, cfg.Customers)
	customers := rg.Group("/customers")
	{
		customers.GET("", read, customerHandler.List)
		customers.POST("", write, customerHandler.Create)
		customers.GET("/:id", read, customerHandler.Get)
		customers.PUT("/:id", write, customerHandler.Update)
		customers.DELETE("/:id", write, customerHandler.Delete)
	}
}

func registerInventoryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	read := middleware.RequirePermission(cfg.Guard, security.PermInventoryRead)
	write := middleware.RequirePermission(cfg.Guard, security.PermInventoryWrite)

	h := handlers.NewInventoryHandler(base, cfg.Inventory)
	inv := rg.Group("/inventory")
	{
		inv.POST("/receive", write, h.Receive)
		inv.POST("/adjust", write, h.Adjust)
		inv.GET("/batches/:productId", read, h.Batches)
		inv.GET("/transactions/:productId", read, h.Transactions)
		inv.GET("/valuation", read, h.Valuation)
		inv.GET("/purchases/:productId", read, h.PurchaseHistory)
		inv.GET("/consistency/:productId", read, h.CheckConsistency)
	}
}

func registerPurchaseRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	read := middleware.RequirePermission(cfg.Guard, security.PermPurchasesRead)
	write := middleware.RequirePermission(cfg.Guard, security.PermPurchasesWrite)
	pay := middleware.RequirePermission(cfg.Guard, security.PermPaymentsWrite)

	h := handlers.NewPurchaseHandler(base, cfg.Purchases)
	orders := rg.Group("/purchase-orders")
	{
		orders.GET("", read, h.List)
		orders.POST("", write, h.Create)
		orders.GET("/:id", read, h.Get)
		orders.POST("/:id/receive", write, h.Receive)
		orders.POST("/:id/cancel", write, h.Cancel)
		orders.DELETE("/:id", write, h.Delete)
	}

	payments := rg.Group("/supplier-payments")
	{
		payments.POST("", pay, h.AddPayment)
		payments.DELETE("/:id", pay, h.DeletePayment)
		payments.GET("/summary", read, h.PaymentSummaries)
		payments.GET("/summary/:id", read, h.PaymentSummary)
		payments.GET("/by-supplier/:id", read, h.PaymentsBySupplier)
		payments.GET("/by-order/:id", read, h.PaymentsByOrder)
	}
}

func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	read := middleware.RequirePermission(cfg.Guard, security.PermInvoicesRead)
	write := middleware.RequirePermission(cfg.Guard, security.PermInvoicesWrite)

	h := handlers.NewInvoiceHandler(base, cfg.Invoices)
	invoices := rg.Group("/invoices")
	{
		invoices.GET("", read, h.List)
		invoices.POST("", write, h.Create)
		invoices.GET("/:id", read, h.Get)
		invoices.PUT("/:id", write, h.Update)
		invoices.DELETE("/:id", write, h.Delete)
	}
}

func registerCreditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	read := middleware.RequirePermission(cfg.Guard, security.PermInvoicesRead)
	pay := middleware.RequirePermission(cfg.Guard, security.PermPaymentsWrite)

	h := handlers.NewCreditHandler(base, cfg.Credit)
	payments := rg.Group("/customer-payments")
	{
		payments.POST("", pay, h.CreatePayment)
		payments.DELETE("/:id", pay, h.DeletePayment)
		payments.GET("/by-customer/:id", read, h.PaymentsByCustomer)
		payments.GET("/by-invoice/:id", read, h.PaymentsByInvoice)
	}

	creditGroup := rg.Group("/credit")
	{
		creditGroup.GET("/history/:customerId", read, h.History)
		creditGroup.GET("/summary/:customerId", read, h.Summary)
	}
}

func registerTrashRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	manage := middleware.RequirePermission(cfg.Guard, security.PermTrashManage)

	h := handlers.NewTrashHandler(base, cfg.Trash)
	trash := rg.Group("/trash")
	trash.Use(manage)
	{
		trash.GET("", h.List)
		trash.POST("/:id/restore", h.Restore)
		trash.DELETE("/:id", h.Delete)
		trash.DELETE("", h.Clear)
	}
}

func registerSettingsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	write := middleware.RequirePermission(cfg.Guard, security.PermSettingsWrite)

	h := handlers.NewSettingsHandler(base, cfg.Settings)
	settingsGroup := rg.Group("/settings")
	{
		settingsGroup.GET("", h.GetAll)
		settingsGroup.GET("/export", h.Export)
		settingsGroup.POST("/import", write, h.Import)
		settingsGroup.GET("/:key", h.Get)
		settingsGroup.PUT("/:key", write, h.Set)
		settingsGroup.DELETE("/:key", write, h.Delete)
	}
}
