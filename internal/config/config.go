package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GRPC     GRPCConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver  string // "sqlite" or "postgres"
	URL     string // postgres connection string
	DataDir string // directory holding the sqlite data.db file
}

// SQLitePath returns the sqlite database file path.
func (d DatabaseConfig) SQLitePath() string {
	return filepath.Join(d.DataDir, "data.db")
}

// GRPCConfig contains gRPC server settings. An empty Address disables it.
type GRPCConfig struct {
	Address string
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	SessionSecret string        // signs bearer tokens and keys CSRF protection
	SessionTTL    time.Duration // lifetime of login sessions and tokens
	AdminPassword string        // password of the admin account created on first start
	SecureCookies bool
	// TrustedOrigins lists extra hosts (host or host:port) allowed to submit
	// forms over HTTPS, e.g. when a proxy rewrites the Host header.
	TrustedOrigins []string
}

// CatalogConfig points at an optional YAML catalog replacing the built-in one.
type CatalogConfig struct {
	File string
}

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables. SESSION_SECRET is required.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}
	if cfg.Auth.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to a development session secret.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("boletas-dev-secret")
}

func load(defaultSecret string) (*Config, error) {
	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("SESSION_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}
	secure, err := getEnvBool("SECURE_COOKIES", false)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Server: ServerConfig{Port: port},
		Database: DatabaseConfig{
			Driver:  strings.ToLower(getEnv("DB_DRIVER", "")),
			URL:     getEnv("DATABASE_URL", ""),
			DataDir: getEnv("DATA_DIR", "."),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ""),
		},
		Auth: AuthConfig{
			SessionSecret:  getEnv("SESSION_SECRET", defaultSecret),
			SessionTTL:     ttl,
			AdminPassword:  getEnv("ADMIN_PASSWORD", "admin"),
			SecureCookies:  secure,
			TrustedOrigins: getEnvList("TRUSTED_ORIGINS"),
		},
		Catalog: CatalogConfig{
			File: getEnv("CATALOG_FILE", ""),
		},
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize picks the driver from DATABASE_URL when DB_DRIVER is unset and
// rejects inconsistent combinations.
func (c *Config) normalize() error {
	switch c.Database.Driver {
	case "":
		if c.Database.URL != "" {
			c.Database.Driver = driverPostgres
		} else {
			c.Database.Driver = driverSQLite
		}
	case driverSQLite:
	case driverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// UsePostgres reports whether the configured backend is postgres.
func (c *Config) UsePostgres() bool {
	return c.Database.Driver == driverPostgres
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	db := c.Database.SQLitePath()
	if c.UsePostgres() {
		db = "postgres (url masked)"
	}
	return fmt.Sprintf("Config{HTTP: %s, DB: %s, gRPC: %q, Catalog: %q, SessionTTL: %s, Auth: *** (masked) ***}",
		c.Server.Addr(), db, c.GRPC.Address, c.Catalog.File, c.Auth.SessionTTL)
}
