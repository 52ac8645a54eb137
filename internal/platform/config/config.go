package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

// secrets are never required in the file; these override whatever it holds
const (
	EnvDBPassword = "LIBCIRC_DB_PASSWORD"
	EnvJWTSecret  = "LIBCIRC_JWT_SECRET"
	EnvAdminCode  = "LIBCIRC_ADMIN_CODE"
)

type DatabaseConfig struct {
	Driver       string        `yaml:"driver"` // mysql | sqlite3
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Username     string        `yaml:"user"`
	Password     string        `yaml:"password"`
	DBName       string        `yaml:"dbname"`
	Path         string        `yaml:"path"` // sqlite3 only
	MaxOpenConns int           `yaml:"max_open_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Cert        string   `yaml:"cert"`
	Key         string   `yaml:"key"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	AdminCode string        `yaml:"admin_code"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json | logfmt
}

type StatsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 = 定期更新なし
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	DB      DatabaseConfig `yaml:"database"`
	Server  ServerConfig   `yaml:"server"`
	Auth    AuthConfig     `yaml:"auth"`
	Log     LogConfig      `yaml:"log"`
	Stats   StatsConfig    `yaml:"stats"`
}

func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes buf, applies defaults and environment overrides, and validates.
func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "mysql"
	}
	if c.DB.Port == 0 && c.DB.Driver == "mysql" {
		c.DB.Port = 3306
	}
	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = 80
	}
	if c.DB.TxTimeout == 0 {
		c.DB.TxTimeout = 10 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvAdminCode); v != "" {
		c.Auth.AdminCode = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mode != "dev" && c.Mode != "release" {
		errs = append(errs, fmt.Errorf("mode must be dev or release, got %q", c.Mode))
	}
	switch c.DB.Driver {
	case "mysql":
		if c.DB.Host == "" || c.DB.DBName == "" {
			errs = append(errs, errors.New("database.host and database.dbname are required for mysql"))
		}
	case "sqlite3":
		if c.DB.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.DB.Driver))
	}
	if c.Mode == "release" {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret (or %s) is required in release mode", EnvJWTSecret))
		}
		if c.Auth.AdminCode == "" {
			errs = append(errs, fmt.Errorf("auth.admin_code (or %s) is required in release mode", EnvAdminCode))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) IsDev() bool { return c.Mode == "dev" }
