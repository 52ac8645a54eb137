package db

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

func schemaFile(driver string) (string, error) {
	switch driver {
	case DriverMySQL:
		return "schema/mysql.sql", nil
	case DriverSQLite:
		return "schema/sqlite.sql", nil
	}
	return "", fmt.Errorf("no schema for driver %q", driver)
}

// Migrate applies the embedded schema. Every statement is IF NOT EXISTS so it
// can run on each start.
func (d *DB) Migrate(ctx context.Context) error {
	name, err := schemaFile(d.Driver())
	if err != nil {
		return err
	}
	buf, err := schemaFS.ReadFile(name)
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(string(buf)) {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, stmt)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
