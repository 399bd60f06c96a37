// Package sqlite is the SQLite-backed persistence layer.
//
// WAL mode is enabled on Open so readers never block writers. All writes to
// the order aggregate happen inside a single transaction; the stock column
// is only ever decremented through a conditional UPDATE so the database
// itself enforces non-negativity.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps Docker builds on Alpine simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. Idempotent via IF NOT EXISTS.
//
// Deletion contracts are explicit here rather than implied by an ORM:
// an order cascades to its shipping address and items; deleting a product
// nulls out the item join rows instead of cascading into order history.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    first_name    TEXT NOT NULL DEFAULT '',
    last_name     TEXT NOT NULL DEFAULT '',
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    user_id        TEXT REFERENCES users(id) ON DELETE SET NULL,
    image          TEXT NOT NULL DEFAULT '/placeholder.png',
    brand          TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    rating         REAL NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
    num_reviews    INTEGER NOT NULL DEFAULT 0 CHECK (num_reviews >= 0),
    price          REAL NOT NULL DEFAULT 0 CHECK (price >= 0),
    count_in_stock INTEGER NOT NULL DEFAULT 0 CHECK (count_in_stock >= 0),
    created_at     TEXT NOT NULL,
    CONSTRAINT unique_product_name UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS reviews (
    id         TEXT PRIMARY KEY,
    product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    text       TEXT NOT NULL DEFAULT '',
    rating     REAL NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id);

CREATE TABLE IF NOT EXISTS orders (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    payment_method TEXT NOT NULL DEFAULT 'visa'
                   CHECK (payment_method IN ('visa','cash','fawry')),
    is_paid        INTEGER NOT NULL DEFAULT 0,
    paid_at        TEXT,
    is_delivered   INTEGER NOT NULL DEFAULT 0,
    delivered_at   TEXT,
    shipping_price REAL NOT NULL DEFAULT 50,
    tax_price      REAL NOT NULL DEFAULT 0,
    total_price    REAL NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);

CREATE TABLE IF NOT EXISTS shipping_addresses (
    id          TEXT PRIMARY KEY,
    order_id    TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
    country     TEXT NOT NULL,
    city        TEXT NOT NULL,
    postal_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id       TEXT PRIMARY KEY,
    order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),
    price    REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

-- Join relation between an item and its product. Kept as a separate table
-- so product deletion can null the reference without touching order history.
CREATE TABLE IF NOT EXISTS order_item_products (
    order_item_id TEXT NOT NULL REFERENCES order_items(id) ON DELETE CASCADE,
    product_id    TEXT REFERENCES products(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_order_item_products_item ON order_item_products(order_item_id);
`

// DB wraps the sql.DB handle and hands out repositories.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	db, err := sqlite.Open("./data/estore.db")
func Open(path string) (*DB, error) {
	// The pure-Go driver takes _pragma query parameters for connection state.
	// WAL enables concurrent readers; foreign_keys enforces the deletion
	// contracts above; busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Driver name is "sqlite" for modernc, not "sqlite3".
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection. This also makes
	// the conditional stock decrement serialize naturally under contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Users() *UserRepository       { return &UserRepository{db: d.db} }
func (d *DB) Products() *ProductRepository { return &ProductRepository{db: d.db} }
func (d *DB) Reviews() *ReviewRepository   { return &ReviewRepository{db: d.db} }
func (d *DB) Orders() *OrderRepository     { return &OrderRepository{db: d.db} }

// inTx runs fn inside a transaction, rolling back on error or panic.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The pure-Go driver exposes constraint errors only through the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isCheckViolation reports whether err is a CHECK constraint failure.
func isCheckViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
