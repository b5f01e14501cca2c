package migrations

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Run creates the database schema required by the ledger. Foreign keys are
// declared for documentation; SQLite does not enforce them unless the
// connection enables the pragma, and archival relies on that.
func Run(ctx context.Context, db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            full_name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            strength TEXT NOT NULL DEFAULT '',
            batch_no TEXT NOT NULL,
            expiry_date TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            unit_price TEXT NOT NULL CHECK (CAST(unit_price AS REAL) > 0),
            last_updated TEXT NOT NULL
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_medicines_name_batch ON medicines (name, batch_no);`,
		`CREATE TABLE IF NOT EXISTS archived_medicines (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            strength TEXT NOT NULL DEFAULT '',
            batch_no TEXT NOT NULL,
            expiry_date TEXT NOT NULL DEFAULT '',
            quantity INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            last_updated TEXT NOT NULL,
            archive_date TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS suppliers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            contact TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS customers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            contact TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            date TEXT NOT NULL,
            customer_id INTEGER,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id),
            FOREIGN KEY(customer_id) REFERENCES customers(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales (date);`,
		`CREATE TABLE IF NOT EXISTS purchases (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            date TEXT NOT NULL,
            supplier_id INTEGER,
            unit_price TEXT,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id),
            FOREIGN KEY(supplier_id) REFERENCES suppliers(id)
        );`,
		`CREATE TABLE IF NOT EXISTS orders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_name TEXT NOT NULL,
            quantity_ordered INTEGER NOT NULL CHECK (quantity_ordered > 0),
            status TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'Approved', 'Rejected')),
            order_date TEXT NOT NULL
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migration failed")
		}
	}
	return nil
}
