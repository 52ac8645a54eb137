package db

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"libcirc/internal/platform/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// DB wraps the pool together with the SQL dialect of its driver.
type DB struct {
	*sqlx.DB
	dialect   goqu.DialectWrapper
	txTimeout time.Duration
}

func Connect(c config.DatabaseConfig) (*DB, error) {
	dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}
	conn, err := sqlx.Open(c.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", c.Driver, err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	maxOpen := c.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 80
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(max(1, maxOpen/4))
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return Wrap(conn, c.TxTimeout), nil
}

// Wrap adopts an already opened pool. txTimeout <= 0 falls back to 10s.
func Wrap(conn *sqlx.DB, txTimeout time.Duration) *DB {
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &DB{
		DB:        conn,
		dialect:   goqu.Dialect(conn.DriverName()),
		txTimeout: txTimeout,
	}
}

func DSN(c config.DatabaseConfig) (string, error) {
	switch c.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Timeout = 3 * time.Second
		mc.ReadTimeout = 5 * time.Second
		mc.WriteTimeout = 5 * time.Second
		return mc.FormatDSN(), nil
	case DriverSQLite:
		// BEGIN IMMEDIATE: 書き込みTxを直列化する（MySQLの FOR UPDATE 相当）
		return "file:" + c.Path + "?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func (d *DB) Driver() string { return d.DB.DriverName() }

func (d *DB) From(table ...any) *goqu.SelectDataset {
	return d.dialect.From(table...).Prepared(true)
}

func (d *DB) Insert(table any) *goqu.InsertDataset {
	return d.dialect.Insert(table).Prepared(true)
}

func (d *DB) Update(table any) *goqu.UpdateDataset {
	return d.dialect.Update(table).Prepared(true)
}

func (d *DB) Delete(table any) *goqu.DeleteDataset {
	return d.dialect.Delete(table).Prepared(true)
}

// ForUpdate adds a row lock on MySQL. SQLite has no row locks; its writers are
// already serialized by BEGIN IMMEDIATE.
func (d *DB) ForUpdate(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if d.Driver() == DriverMySQL {
		return ds.ForUpdate(exp.Wait)
	}
	return ds
}
