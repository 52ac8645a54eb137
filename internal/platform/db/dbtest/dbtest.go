// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libcirc/internal/platform/config"
	"libcirc/internal/platform/db"
)

// Open opens a migrated, file-backed SQLite database under t.TempDir().
// A file is used instead of :memory: so every pooled connection sees the same data.
func Open(t testing.TB) *db.DB {
	t.Helper()
	d, err := db.Connect(config.DatabaseConfig{
		Driver:       db.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "library.db"),
		MaxOpenConns: 8,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}

// User inserts an account row directly and returns its id.
func User(t testing.TB, d *db.DB, name, role string) uint64 {
	t.Helper()
	id, err := db.InsertID(context.Background(), d, d.Insert("users").Rows(goqu.Record{
		"user_name":     name,
		"password_hash": "x",
		"role":          role,
		"created_at":    time.Now().UTC(),
	}))
	if err != nil {
		t.Fatalf("insert user %s: %v", name, err)
	}
	return id
}

// Title inserts a title with n available copies numbered 1..n.
func Title(t testing.TB, d *db.DB, name string, n int) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := db.InsertID(ctx, d, d.Insert("titles").Rows(goqu.Record{
		"name":       name,
		"quantity":   n,
		"created_at": time.Now().UTC(),
	}))
	if err != nil {
		t.Fatalf("insert title %s: %v", name, err)
	}
	for i := 1; i <= n; i++ {
		_, err := db.Exec(ctx, d, d.Insert("copies").Rows(goqu.Record{
			"title_id": id, "copy_no": i, "status": "available",
		}))
		if err != nil {
			t.Fatalf("insert copy %d-%d: %v", id, i, err)
		}
	}
	return id
}
