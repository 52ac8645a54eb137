package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/internal/platform/apperr"
	"libcirc/internal/platform/config"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Connect(config.DatabaseConfig{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate(context.Background()))
	return d
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.DatabaseConfig{
		Driver: DriverMySQL, Host: "db", Port: 3307, Username: "lib", Password: "pw", DBName: "library",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "lib:pw@tcp(db:3307)/library?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "loc=UTC")

	dsn, err = DSN(config.DatabaseConfig{Driver: DriverSQLite, Path: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=1")

	_, err = DSN(config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestMigrateIsRepeatable(t *testing.T) {
	d := openTest(t)
	require.NoError(t, d.Migrate(context.Background()))

	var n int
	require.NoError(t, Get(context.Background(), d, &n, d.From("copies").Select(goqu.COUNT("*"))))
	assert.Zero(t, n)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := d.RunInTx(ctx, nil, func(ctx context.Context, tx DBTX) error {
		_, err := Exec(ctx, tx, d.Insert("categories").Rows(goqu.Record{"name": "SF"}))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))

	var n int
	require.NoError(t, Get(ctx, d, &n, d.From("categories").Select(goqu.COUNT("*"))))
	assert.Zero(t, n)
}

func TestRunInTxKeepsModelErrors(t *testing.T) {
	d := openTest(t)
	err := d.RunInTx(context.Background(), nil, func(context.Context, DBTX) error {
		return apperr.NotFound("copy not found")
	})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestRunInTxTimeout(t *testing.T) {
	d := openTest(t)
	d.txTimeout = 20 * time.Millisecond

	err := d.RunInTx(context.Background(), nil, func(ctx context.Context, tx DBTX) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}

func TestIsDuplicateKey(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	_, err := Exec(ctx, d, d.Insert("categories").Rows(goqu.Record{"name": "SF"}))
	require.NoError(t, err)
	_, err = Exec(ctx, d, d.Insert("categories").Rows(goqu.Record{"name": "SF"}))
	assert.True(t, IsDuplicateKey(err))

	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsForeignKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsDuplicateKey(sql.ErrNoRows))
}

func TestForUpdateOnlyOnMySQL(t *testing.T) {
	d := openTest(t)
	q, _, err := d.ForUpdate(d.From("copies")).ToSQL()
	require.NoError(t, err)
	assert.NotContains(t, q, "FOR UPDATE")
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
}
