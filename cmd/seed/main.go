// Package main provides a CLI tool for seeding the database with demo
// data. It goes through the domain services so the FIFO ledger and
// document numbering stay consistent with what the API would produce.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/archive"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/domain/credit"
	"stockbook/internal/domain/inventory"
	"stockbook/internal/domain/invoice"
	"stockbook/internal/domain/purchase"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/archive_repo"
	"stockbook/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbook/internal/infrastructure/storage/postgres/credit_repo"
	"stockbook/internal/infrastructure/storage/postgres/inventory_repo"
	"stockbook/internal/infrastructure/storage/postgres/invoice_repo"
	"stockbook/internal/infrastructure/storage/postgres/purchase_repo"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

type services struct {
	products  *product.Service
	suppliers *supplier.Service
	customers *customer.Service
	purchases *purchase.Service
	invoices  *invoice.Service
	credit    *credit.Service
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Bootstrap(ctx, pool.Unwrap(), postgres.DefaultBootstrapConfig()); err != nil {
		log.Fatalw("failed to bootstrap schema", "error", err)
	}

	var productCount int
	if err := pool.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&productCount); err != nil {
		log.Fatalw("failed to check existing data", "error", err)
	}
	if productCount > 0 {
		log.Infow("database already has products, skipping demo data", "count", productCount)
		return
	}

	svc := wire(pool)
	if err := seedDemoData(ctx, svc, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func wire(pool *postgres.Pool) services {
	txm := postgres.NewTxManager(pool)

	productRepo := catalog_repo.NewProductRepo(txm)
	supplierRepo := catalog_repo.NewSupplierRepo(txm)
	customerRepo := catalog_repo.NewCustomerRepo(txm)
	inventoryRepo := inventory_repo.NewRepo(txm)
	orderRepo := purchase_repo.NewOrderRepo(txm)
	supplierPaymentRepo := purchase_repo.NewPaymentRepo(txm)
	invoiceRepo := invoice_repo.NewRepo(txm)
	creditRepo := credit_repo.NewRepo(txm)
	trashRepo := archive_repo.NewRepo(txm)

	codec, err := archive.NewCodec()
	if err != nil {
		panic(err)
	}
	trashService := archive.NewService(trashRepo, codec, productRepo, supplierRepo, customerRepo, invoiceRepo, txm)

	stockEngine := inventory.NewEngine(inventoryRepo, productRepo, txm)
	productService := product.NewService(productRepo, txm, stockEngine, trashService)
	numbers := numerator.New(postgres.NewRoutingQuerier(txm))

	return services{
		products:  productService,
		suppliers: supplier.NewService(supplierRepo, txm, trashService),
		customers: customer.NewService(customerRepo, txm, trashService),
		purchases: purchase.NewService(orderRepo, supplierPaymentRepo, supplierRepo, productRepo, stockEngine, txm, numbers),
		invoices:  invoice.NewService(invoiceRepo, customerRepo, productService, stockEngine, trashService, txm, numbers),
		credit:    credit.NewService(creditRepo, invoiceRepo, trashService, txm),
	}
}

func seedDemoData(ctx context.Context, svc services, log *logger.Logger) error {
	log.Info("seeding demo data...")

	sup := supplier.New("Lakshmi Traders")
	sup.Phone = strPtr("+91 98450 11111")
	if err := svc.suppliers.Create(ctx, sup); err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}

	cust := customer.New("Ravi Kumar")
	cust.Phone = strPtr("+91 99000 22222")
	cust.Town = strPtr("Mysuru")
	if err := svc.customers.Create(ctx, cust); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	type productSeed struct {
		name         string
		sku          string
		cost         string
		price        string
		initialStock int
	}
	seeds := []productSeed{
		{"Basmati Rice 5kg", "RICE-5KG", "420", "520", 40},
		{"Sunflower Oil 1L", "OIL-1L", "110", "145", 60},
		{"Toor Dal 1kg", "DAL-1KG", "95", "128", 25},
	}

	products := make([]*product.Product, 0, len(seeds))
	for _, s := range seeds {
		p := product.New(s.name, s.sku, types.MustMoney(s.cost))
		price := types.MustMoney(s.price)
		p.SellingPrice = &price
		p.InitialStock = s.initialStock
		p.StockQuantity = s.initialStock
		p.SupplierID = &sup.ID
		if err := svc.products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", s.sku, err)
		}
		products = append(products, p)
	}
	log.Infow("products seeded", "count", len(products))

	// A received purchase order adds a second FIFO batch per product.
	order, err := svc.purchases.Create(ctx, purchase.CreateInput{
		SupplierID: sup.ID,
		OrderDate:  time.Now().UTC().AddDate(0, 0, -7),
		Items: []purchase.CreateItem{
			{ProductID: products[0].ID, Quantity: 20, UnitCost: types.MustMoney("430")},
			{ProductID: products[1].ID, Quantity: 30, UnitCost: types.MustMoney("108")},
		},
	})
	if err != nil {
		return fmt.Errorf("create purchase order: %w", err)
	}
	if _, err := svc.purchases.Receive(ctx, order.Order.ID, time.Now().UTC().AddDate(0, 0, -5)); err != nil {
		return fmt.Errorf("receive purchase order: %w", err)
	}
	log.Infow("purchase order received", "po_number", order.Order.Number)

	inv, err := svc.invoices.Create(ctx, invoice.CreateInput{
		CustomerID:   &cust.ID,
		InitialPaid:  types.MustMoney("500"),
		CreditAmount: types.MustMoney("538"),
		Items: []invoice.CreateItem{
			{ProductID: products[0].ID, Quantity: 1, UnitPrice: types.MustMoney("520")},
			{ProductID: products[1].ID, Quantity: 2, UnitPrice: types.MustMoney("145")},
			{ProductID: products[2].ID, Quantity: 1, UnitPrice: types.MustMoney("128")},
		},
	})
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	log.Infow("invoice created", "invoice_number", inv.Invoice.Number)

	payment := &credit.Payment{
		CustomerID: cust.ID,
		InvoiceID:  inv.Invoice.ID,
		Amount:     types.MustMoney("200"),
	}
	if err := svc.credit.CreatePayment(ctx, payment); err != nil {
		return fmt.Errorf("create customer payment: %w", err)
	}
	log.Info("customer payment recorded")

	return nil
}

func strPtr(s string) *string { return &s }
