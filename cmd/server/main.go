// Package main is the entry point for the Stockbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

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
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/archive_repo"
	"stockbook/internal/infrastructure/storage/postgres/auth_repo"
	"stockbook/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbook/internal/infrastructure/storage/postgres/credit_repo"
	"stockbook/internal/infrastructure/storage/postgres/inventory_repo"
	"stockbook/internal/infrastructure/storage/postgres/invoice_repo"
	"stockbook/internal/infrastructure/storage/postgres/purchase_repo"
	"stockbook/internal/infrastructure/storage/postgres/settings_repo"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockbook server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalw("failed to ping database", "error", err)
	}
	log.Info("database connection established")

	// --- Schema bootstrap ---
	bootCfg := postgres.DefaultBootstrapConfig()
	bootCfg.AdminUsername = getEnv("ADMIN_USERNAME", bootCfg.AdminUsername)
	bootCfg.AdminPassword = getEnv("ADMIN_PASSWORD", bootCfg.AdminPassword)
	if err := postgres.Bootstrap(ctx, pool.Unwrap(), bootCfg); err != nil {
		log.Fatalw("failed to bootstrap schema", "error", err)
	}

	txm := postgres.NewTxManager(pool)

	// --- Repositories ---
	productRepo := catalog_repo.NewProductRepo(txm)
	supplierRepo := catalog_repo.NewSupplierRepo(txm)
	customerRepo := catalog_repo.NewCustomerRepo(txm)
	inventoryRepo := inventory_repo.NewRepo(txm)
	orderRepo := purchase_repo.NewOrderRepo(txm)
	supplierPaymentRepo := purchase_repo.NewPaymentRepo(txm)
	invoiceRepo := invoice_repo.NewRepo(txm)
	creditRepo := credit_repo.NewRepo(txm)
	settingsRepo := settings_repo.NewRepo(txm)
	trashRepo := archive_repo.NewRepo(txm)
	userRepo := auth_repo.NewUserRepo(txm)

	// --- Services ---
	codec, err := archive.NewCodec()
	if err != nil {
		log.Fatalw("failed to initialize archive codec", "error", err)
	}
	trashService := archive.NewService(trashRepo, codec, productRepo, supplierRepo, customerRepo, invoiceRepo, txm)

	stockEngine := inventory.NewEngine(inventoryRepo, productRepo, txm)
	productService := product.NewService(productRepo, txm, stockEngine, trashService)
	supplierService := supplier.NewService(supplierRepo, txm, trashService)
	customerService := customer.NewService(customerRepo, txm, trashService)

	numbers := numerator.New(postgres.NewRoutingQuerier(txm))
	purchaseService := purchase.NewService(orderRepo, supplierPaymentRepo, supplierRepo, productRepo, stockEngine, txm, numbers)
	invoiceService := invoice.NewService(invoiceRepo, customerRepo, productService, stockEngine, trashService, txm, numbers)
	creditService := credit.NewService(creditRepo, invoiceRepo, trashService, txm)
	settingsService := settings.NewService(settingsRepo, txm)

	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(userRepo, trashService, txm, jwtService, auth.DefaultServiceConfig())

	guard, err := security.NewGuard()
	if err != nil {
		log.Fatalw("failed to initialize permission guard", "error", err)
	}

	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "false") == "true" {
		idempotencyStore = postgres.NewIdempotencyStore(txm, 10*time.Minute)
		go cleanupExpiredKeys(ctx, idempotencyStore, log)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		JWTValidator:     jwtService,
		Guard:            guard,
		IdempotencyStore: idempotencyStore,
		Auth:             authService,
		Products:         productService,
		Suppliers:        supplierService,
		Customers:        customerService,
		Inventory:        stockEngine,
		Purchases:        purchaseService,
		Invoices:         invoiceService,
		Credit:           creditService,
		Settings:         settingsService,
		Trash:            trashService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// cleanupExpiredKeys prunes expired idempotency records every 15
// minutes until the context is cancelled.
func cleanupExpiredKeys(ctx context.Context, store *postgres.IdempotencyStore, log *logger.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupExpired(ctx)
			if err != nil {
				log.Warnw("idempotency cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Infow("idempotency keys pruned", "removed", removed)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
