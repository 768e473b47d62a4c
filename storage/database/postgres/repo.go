// Package pgrepos implements the repositories on PostgreSQL, through sqlx.
package pgrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func newID() string {
	return uuid.New().String()
}

// where accumulates AND-ed conditions written with `?` bind vars.
// Slice args are expanded by sqlx.In, so `col IN (?)` takes a whole slice.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

// build appends the WHERE clause and suffix to base, rebinding bind vars for postgres.
func (w *where) build(db *sqlx.DB, base, suffix string) (string, []interface{}, error) {
	q := base
	if len(w.conds) > 0 {
		q += " WHERE " + strings.Join(w.conds, " AND ")
	}
	q += suffix
	q, args, err := sqlx.In(q, w.args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding IN query")
	}
	return db.Rebind(q), args, nil
}

// withTx runs fn in a transaction, rolled back if fn fails.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// mustAffect returns notFound when a write touched no row.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
