package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  driver: sqlite3
  path: /tmp/lib.db
`))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 80, cfg.DB.MaxOpenConns)
	assert.Equal(t, ":8443", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.IsDev())
}

func TestParseDurationsAndMySQL(t *testing.T) {
	cfg, err := Parse([]byte(`
mode: dev
database:
  host: 127.0.0.1
  user: lib
  dbname: library
  tx_timeout: 3s
stats:
  refresh_interval: 15m
`))
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, 3*time.Second, cfg.DB.TxTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Stats.RefreshInterval)
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvAdminCode, "from-env")
	t.Setenv(EnvJWTSecret, "jwt-env")
	t.Setenv(EnvDBPassword, "pw-env")

	cfg, err := Parse([]byte(`
mode: release
database: {driver: sqlite3, path: lib.db, password: file}
auth: {admin_code: from-file}
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.AdminCode)
	assert.Equal(t, "jwt-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "pw-env", cfg.DB.Password)
}

func TestValidateReleaseRequiresSecrets(t *testing.T) {
	_, err := Parse([]byte(`
mode: release
database: {driver: sqlite3, path: lib.db}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "admin_code")
}

func TestValidateRejectsUnknownDriverAndMode(t *testing.T) {
	_, err := Parse([]byte(`
mode: staging
database: {driver: postgres}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "postgres")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: {driver: sqlite3, path: x.db}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.DB.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
