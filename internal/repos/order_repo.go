package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"stockroom/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// ---------- Ledger list summary ----------
type OrderSummary struct {
	ID        string `db:"id"`
	Total     int64  `db:"total"`
	Items     int    `db:"items"`
	CreatedAt string `db:"created_at"`
}

type orderRow struct {
	ID          string `db:"id"`
	Key         string `db:"idem_key"`
	PayloadHash string `db:"payload_hash"`
	Total       int64  `db:"total"`
	CreatedAt   string `db:"created_at"`
}

// Begin starts the transaction an order confirmation writes its ledger rows in.
func (r *OrderRepo) Begin() (*sqlx.Tx, error) { return r.db.Beginx() }

// FindByKey looks up a previously confirmed order by idempotency key.
// found is false when the key has never been used.
func (r *OrderRepo) FindByKey(tx *sqlx.Tx, key string) (rec domain.Receipt, payloadHash string, found bool, err error) {
	var o orderRow
	if err := tx.Get(&o, `
		SELECT id, idem_key, payload_hash, total, created_at
		FROM orders WHERE idem_key = ?
	`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Receipt{}, "", false, nil
		}
		return domain.Receipt{}, "", false, err
	}
	lines, err := selectLines(tx, o.ID)
	if err != nil {
		return domain.Receipt{}, "", false, err
	}
	return domain.Receipt{ID: o.ID, Key: o.Key, Total: o.Total, CreatedAt: o.CreatedAt, Lines: lines}, o.PayloadHash, true, nil
}

// Create inserts the order header and its lines.
func (r *OrderRepo) Create(tx *sqlx.Tx, rec domain.Receipt, payloadHash string) error {
	if _, err := tx.Exec(`
	  INSERT INTO orders (id, idem_key, payload_hash, total, created_at)
	  VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Key, payloadHash, rec.Total, rec.CreatedAt); err != nil {
		return errors.Wrapf(err, "insert order %s", rec.ID)
	}
	for _, l := range rec.Lines {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, product_id, name, price, qty)
		  VALUES(?, ?, ?, ?, ?)
		`, rec.ID, l.ProductID, l.Name, l.Price, l.Quantity); err != nil {
			return errors.Wrapf(err, "insert order %s line %d", rec.ID, l.ProductID)
		}
	}
	return nil
}

// ---------- Used by order pages ----------

func (r *OrderRepo) Get(orderID string) (domain.Receipt, error) {
	var o orderRow
	if err := r.db.Get(&o, `
		SELECT id, idem_key, payload_hash, total, created_at
		FROM orders WHERE id = ?
	`, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Receipt{}, &domain.NotFoundError{Resource: "order", Key: orderID}
		}
		return domain.Receipt{}, err
	}
	lines, err := selectLines(r.db, o.ID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{ID: o.ID, Key: o.Key, Total: o.Total, CreatedAt: o.CreatedAt, Lines: lines}, nil
}

func (r *OrderRepo) ListLatest(limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []OrderSummary{}
	err := r.db.Select(&out, `
		SELECT o.id, o.total, COALESCE(SUM(oi.qty), 0) AS items, o.created_at
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.rowid DESC
		LIMIT ?
	`, limit)
	return out, err
}

func selectLines(q sqlx.Queryer, orderID string) ([]domain.OrderLine, error) {
	lines := []domain.OrderLine{}
	err := sqlx.Select(q, &lines, `
		SELECT product_id, name, price, qty, (qty * price) AS subtotal
		FROM order_items
		WHERE order_id = ?
		ORDER BY product_id
	`, orderID)
	return lines, err
}
