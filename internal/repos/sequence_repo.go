package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SequenceRepo hands out monotonic integers that survive restarts.
type SequenceRepo struct{ db *sqlx.DB }

func NewSequenceRepo(db *sqlx.DB) *SequenceRepo { return &SequenceRepo{db: db} }

// Next returns max(stored, floor)+1 and stores it. floor lets the caller
// seed the counter from data that predates the ledger.
func (r *SequenceRepo) Next(name string, floor int) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur int
	if err := tx.Get(&cur, `SELECT value FROM sequences WHERE name = ?`, name); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrapf(err, "read sequence %s", name)
	}
	if floor > cur {
		cur = floor
	}
	next := cur + 1
	if _, err := tx.Exec(`
		INSERT INTO sequences(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, next); err != nil {
		return 0, errors.Wrapf(err, "advance sequence %s", name)
	}
	return next, tx.Commit()
}

// Current returns the last value handed out, 0 if none.
func (r *SequenceRepo) Current(name string) (int, error) {
	var cur int
	err := r.db.Get(&cur, `SELECT value FROM sequences WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return cur, err
}
