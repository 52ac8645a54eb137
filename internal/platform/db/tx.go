package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"libcirc/internal/platform/apperr"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX = sqlx.ExtContext

// Builder is any goqu dataset.
type Builder interface {
	ToSQL() (string, []any, error)
}

// RunInTx は fn をタイムアウト付きTxで実行する。nil なら COMMIT、エラー/panic なら ROLLBACK。
// Errors outside the apperr model come back as INTERNAL.
func (d *DB) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.txTimeout)
	defer cancel()

	tx, err := d.BeginTxx(ctx, opts)
	if err != nil {
		return apperr.Internal(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return apperr.Internal(err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Internal(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// 読み取り専用Tx
func (d *DB) ReadOnly(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return d.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func Get(ctx context.Context, q DBTX, dest any, b Builder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func Select(ctx context.Context, q DBTX, dest any, b Builder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func Exec(ctx context.Context, q DBTX, b Builder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

// ExecAffected runs b and returns the number of rows it touched.
func ExecAffected(ctx context.Context, q DBTX, b Builder) (int64, error) {
	res, err := Exec(ctx, q, b)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertID runs an INSERT and returns the auto-increment id.
func InsertID(ctx context.Context, q DBTX, b Builder) (uint64, error) {
	res, err := Exec(ctx, q, b)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func IsNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// IsDuplicateKey reports a unique/primary key violation on either driver.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKey reports a missing parent row (MySQL 1452 / SQLite FK constraint).
func IsForeignKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
