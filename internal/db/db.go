// Package db is the bun-backed store shared by the domain services.
//
// A DB value wraps either the pool or an open transaction; RunInTx hands the
// callback a transaction-bound copy so repository methods compose inside one
// atomic unit.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ms-venues/internal/apperr"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun bun.IDB

	root   *bun.DB
	txOpts *sql.TxOptions
}

// New wraps a bun pool. On PostgreSQL transactions run SERIALIZABLE.
func New(bunDB *bun.DB) *DB {
	d := &DB{Bun: bunDB, root: bunDB}
	if bunDB.Dialect().Name() == dialect.PG {
		d.txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return d
}

func (d *DB) Dialect() dialect.Name { return d.root.Dialect().Name() }

func (d *DB) Close() error { return d.root.Close() }

// Pool returns the underlying connection pool, outside any transaction.
func (d *DB) Pool() *bun.DB { return d.root }

// RunInTx runs fn in a transaction. Nested calls reuse the open transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	if _, ok := d.Bun.(bun.Tx); ok {
		return fn(ctx, d)
	}
	err := d.root.RunInTx(ctx, d.txOpts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx, root: d.root, txOpts: d.txOpts})
	})
	return translate(err)
}

// translate maps driver-level contention errors to ConcurrencyConflict.
func translate(err error) error {
	if err == nil || apperr.KindOf(err) != 0 {
		return err
	}
	if IsSerializationFailure(err) {
		return apperr.Conflict("concurrent update detected, retry the operation").Wrap(err)
	}
	return err
}

// IsSerializationFailure reports SQLSTATE 40001/40P01 on PostgreSQL and a busy
// database on SQLite.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func (p Page) apply(q *bun.SelectQuery) *bun.SelectQuery {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q = q.Limit(limit)
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

// search ORs case-insensitive substring matches over exprs. Each expr has a
// single placeholder for the pattern.
func search(q *bun.SelectQuery, term string, exprs ...string) *bun.SelectQuery {
	term = strings.TrimSpace(term)
	if term == "" {
		return q
	}
	pattern := "%" + strings.ToLower(term) + "%"
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, e := range exprs {
			q = q.WhereOr(e, pattern)
		}
		return q
	})
}

// list counts the rows matched by build() and scans one ordered page of them
// into the query model.
func list(ctx context.Context, build func() *bun.SelectQuery, page Page, order ...string) (int, error) {
	total, err := build().Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := page.apply(build().Order(order...)).Scan(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

func (d *DB) exists(ctx context.Context, model any, where string, args ...any) (bool, error) {
	return d.Bun.NewSelect().Model(model).Where(where, args...).Exists(ctx)
}
