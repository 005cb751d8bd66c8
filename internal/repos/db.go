package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// OpenDB opens the sqlite ledger that sits next to the product file.
// It records confirmed orders (and their idempotency keys) and the product
// id sequence; the product collection itself lives in the JSON store.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger %s", dsn)
	}
	// one connection: keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping ledger %s", dsn)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create ledger schema")
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Confirmed orders; idem_key guards against double submission
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  idem_key TEXT NOT NULL UNIQUE,
  payload_hash TEXT NOT NULL,
  total INTEGER NOT NULL CHECK (total >= 0),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL,
  name       TEXT NOT NULL,
  price      INTEGER NOT NULL,
  qty        INTEGER NOT NULL CHECK (qty >= 1),
  PRIMARY KEY (order_id, product_id)
);

-- Monotonic counters (product ids)
CREATE TABLE IF NOT EXISTS sequences(
  name  TEXT PRIMARY KEY,
  value INTEGER NOT NULL
);
`
	_, err := db.Exec(schema)
	return err
}
