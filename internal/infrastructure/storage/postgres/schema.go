package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"stockbook/internal/core/id"
	"stockbook/pkg/logger"
)

// schemaDDL is executed on every start. Statements are idempotent so a
// restart against an existing database is a no-op.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS suppliers (
    id UUID PRIMARY KEY,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    name TEXT NOT NULL,
    contact_person TEXT,
    phone TEXT,
    email TEXT,
    address TEXT
);

CREATE TABLE IF NOT EXISTS products (
    id UUID PRIMARY KEY,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    name TEXT NOT NULL,
    sku TEXT NOT NULL UNIQUE,
    cost_price NUMERIC(14,2) NOT NULL DEFAULT 0,
    selling_price NUMERIC(14,2),
    stock_quantity INT NOT NULL DEFAULT 0,
    initial_stock INT NOT NULL DEFAULT 0,
    supplier_id UUID REFERENCES suppliers(id),
    category TEXT,
    image_path TEXT
);

CREATE TABLE IF NOT EXISTS customers (
    id UUID PRIMARY KEY,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    name TEXT NOT NULL,
    phone TEXT,
    email TEXT,
    address TEXT,
    state TEXT,
    district TEXT,
    town TEXT
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'cashier',
    permissions JSONB NOT NULL DEFAULT '[]',
    biometric_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    biometric_token_hash TEXT,
    last_login_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version INT NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username));
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_biometric_hash ON users (biometric_token_hash)
    WHERE biometric_token_hash IS NOT NULL;

CREATE TABLE IF NOT EXISTS app_settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sys_sequences (
    key TEXT PRIMARY KEY,
    current_val BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id UUID PRIMARY KEY,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by TEXT NOT NULL DEFAULT '',
    po_number TEXT NOT NULL UNIQUE,
    supplier_id UUID NOT NULL REFERENCES suppliers(id),
    status TEXT NOT NULL DEFAULT 'draft',
    order_date TIMESTAMPTZ NOT NULL,
    expected_date TIMESTAMPTZ,
    received_date TIMESTAMPTZ,
    total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    notes TEXT
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
    id UUID PRIMARY KEY,
    po_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
    product_id UUID NOT NULL REFERENCES products(id),
    quantity INT NOT NULL,
    unit_cost NUMERIC(14,2) NOT NULL,
    total_cost NUMERIC(14,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS supplier_payments (
    id UUID PRIMARY KEY,
    supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
    po_id UUID REFERENCES purchase_orders(id) ON DELETE CASCADE,
    product_id UUID REFERENCES products(id) ON DELETE CASCADE,
    amount NUMERIC(14,2) NOT NULL,
    payment_method TEXT,
    note TEXT,
    paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS invoices (
    id UUID PRIMARY KEY,
    version INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by TEXT NOT NULL DEFAULT '',
    invoice_number TEXT NOT NULL UNIQUE,
    customer_id UUID REFERENCES customers(id),
    total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    tax_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    discount_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    initial_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
    credit_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
    payment_method TEXT,
    state TEXT,
    district TEXT,
    town TEXT
);

CREATE TABLE IF NOT EXISTS invoice_items (
    id UUID PRIMARY KEY,
    invoice_id UUID NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
    product_id UUID NOT NULL REFERENCES products(id),
    product_name TEXT NOT NULL DEFAULT '',
    quantity INT NOT NULL,
    unit_price NUMERIC(14,2) NOT NULL,
    total_price NUMERIC(14,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS customer_payments (
    id UUID PRIMARY KEY,
    customer_id UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    invoice_id UUID NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
    amount NUMERIC(14,2) NOT NULL,
    payment_method TEXT,
    note TEXT,
    paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_batches (
    id UUID PRIMARY KEY,
    product_id UUID NOT NULL REFERENCES products(id),
    po_item_id UUID REFERENCES purchase_order_items(id) ON DELETE SET NULL,
    quantity_received INT NOT NULL,
    quantity_remaining INT NOT NULL,
    unit_cost NUMERIC(14,4) NOT NULL,
    received_date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (quantity_remaining >= 0),
    CHECK (quantity_remaining <= quantity_received)
);

CREATE TABLE IF NOT EXISTS inventory_transactions (
    id UUID PRIMARY KEY,
    product_id UUID NOT NULL REFERENCES products(id),
    kind TEXT NOT NULL,
    quantity INT NOT NULL,
    unit_cost NUMERIC(14,4) NOT NULL DEFAULT 0,
    total_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
    reference_kind TEXT,
    reference_id UUID,
    notes TEXT,
    occurred_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS inventory_consumptions (
    id UUID PRIMARY KEY,
    transaction_id UUID NOT NULL REFERENCES inventory_transactions(id) ON DELETE CASCADE,
    batch_id UUID NOT NULL REFERENCES inventory_batches(id),
    quantity INT NOT NULL,
    unit_cost NUMERIC(14,4) NOT NULL
);

CREATE TABLE IF NOT EXISTS sys_idempotency (
    idempotency_key TEXT PRIMARY KEY,
    user_id TEXT NOT NULL DEFAULT '',
    operation TEXT NOT NULL,
    status TEXT NOT NULL,
    request_hash TEXT NOT NULL,
    response JSONB,
    response_status INT,
    response_content_type TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS deleted_records (
    id UUID PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id UUID NOT NULL,
    data BYTEA,
    related_data BYTEA,
    compression_algo TEXT NOT NULL DEFAULT 'none',
    deleted_by TEXT NOT NULL DEFAULT '',
    deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_supplier ON products (supplier_id);
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
CREATE INDEX IF NOT EXISTS idx_po_supplier ON purchase_orders (supplier_id);
CREATE INDEX IF NOT EXISTS idx_po_items_po ON purchase_order_items (po_id);
CREATE INDEX IF NOT EXISTS idx_supplier_payments_supplier ON supplier_payments (supplier_id);
CREATE INDEX IF NOT EXISTS idx_supplier_payments_po ON supplier_payments (po_id);
CREATE INDEX IF NOT EXISTS idx_invoices_customer ON invoices (customer_id);
CREATE INDEX IF NOT EXISTS idx_invoices_created ON invoices (created_at);
CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items (invoice_id);
CREATE INDEX IF NOT EXISTS idx_invoice_items_product ON invoice_items (product_id);
CREATE INDEX IF NOT EXISTS idx_customer_payments_customer ON customer_payments (customer_id);
CREATE INDEX IF NOT EXISTS idx_customer_payments_invoice ON customer_payments (invoice_id);
CREATE INDEX IF NOT EXISTS idx_inv_batches_fifo ON inventory_batches (product_id, received_date, id);
CREATE INDEX IF NOT EXISTS idx_inv_trans_product ON inventory_transactions (product_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_inv_trans_reference ON inventory_transactions (product_id, kind, reference_id);
CREATE INDEX IF NOT EXISTS idx_inv_consumptions_trans ON inventory_consumptions (transaction_id);
CREATE INDEX IF NOT EXISTS idx_deleted_records_type ON deleted_records (entity_type, deleted_at DESC);
`

// columnMigration is one additive schema change. Backfill, when set,
// runs after the column is added to populate existing rows.
type columnMigration struct {
	table    string
	column   string
	ddl      string
	backfill string
}

// columnMigrations lists columns added after the initial release.
// Probed one by one so the bootstrap stays additive and repeatable.
var columnMigrations = []columnMigration{
	{
		table:  "products",
		column: "initial_stock",
		ddl:    `ALTER TABLE products ADD COLUMN initial_stock INT NOT NULL DEFAULT 0`,
	},
	{
		table:    "invoices",
		column:   "initial_paid",
		ddl:      `ALTER TABLE invoices ADD COLUMN initial_paid NUMERIC(14,2) NOT NULL DEFAULT 0`,
		backfill: `UPDATE invoices SET initial_paid = total_amount WHERE initial_paid = 0 AND credit_amount = 0`,
	},
	{
		table:  "invoices",
		column: "credit_amount",
		ddl:    `ALTER TABLE invoices ADD COLUMN credit_amount NUMERIC(14,2) NOT NULL DEFAULT 0`,
	},
	{
		table:  "users",
		column: "biometric_enabled",
		ddl:    `ALTER TABLE users ADD COLUMN biometric_enabled BOOLEAN NOT NULL DEFAULT FALSE`,
	},
	{
		table:  "users",
		column: "biometric_token_hash",
		ddl:    `ALTER TABLE users ADD COLUMN biometric_token_hash TEXT`,
	},
	{
		table:  "purchase_orders",
		column: "created_by",
		ddl:    `ALTER TABLE purchase_orders ADD COLUMN created_by TEXT NOT NULL DEFAULT ''`,
	},
	{
		table:  "invoice_items",
		column: "product_name",
		ddl:    `ALTER TABLE invoice_items ADD COLUMN product_name TEXT NOT NULL DEFAULT ''`,
	},
}

// BootstrapConfig controls schema bootstrap and first-run seeding.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

// DefaultBootstrapConfig returns the default first-run admin account.
// Change the password after the first login.
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		AdminUsername: "admin",
		AdminPassword: "admin",
	}
}

// Bootstrap brings the database up to the current schema. It executes
// the idempotent DDL, applies additive column migrations, and seeds the
// default administrator when the users table is empty. Nothing here is
// ever destructive.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool, cfg BootstrapConfig) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	for _, m := range columnMigrations {
		exists, err := columnExists(ctx, pool, m.table, m.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		logger.Info(ctx, "adding column",
			"table", m.table,
			"column", m.column,
		)
		if _, err := pool.Exec(ctx, m.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
		}
		if m.backfill != "" {
			if _, err := pool.Exec(ctx, m.backfill); err != nil {
				return fmt.Errorf("backfill %s.%s: %w", m.table, m.column, err)
			}
		}
	}

	return seedAdmin(ctx, pool, cfg)
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, table, column string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)
	`

	var exists bool
	if err := pool.QueryRow(ctx, query, table, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// seedAdmin creates the default administrator on an empty users table.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, cfg BootstrapConfig) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	const query = `
		INSERT INTO users (id, username, password_hash, role, permissions)
		VALUES ($1, $2, $3, 'admin', '[]')
	`
	if _, err := pool.Exec(ctx, query, id.New(), cfg.AdminUsername, string(hash)); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	logger.Info(ctx, "seeded default administrator", "username", cfg.AdminUsername)
	return nil
}
