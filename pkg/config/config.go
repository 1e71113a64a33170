// Package config provides unified configuration for the member portal.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. .env file (explicit MEMBERPORTAL_ENV_FILE or ./.env, process env wins)
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides (MEMBERPORTAL_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"strconv"
	"time"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the member portal.
type Config struct {
	Environment   string              `yaml:"environment"` // "development" or "production"
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Storage       StorageConfig       `yaml:"storage"`
	Bootstrap     BootstrapConfig     `yaml:"bootstrap"`
	Membership    MembershipConfig    `yaml:"membership"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// IsProduction reports whether the portal runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 1 MiB
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// AuthConfig holds session token and password hashing settings.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTSecretFile string        `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	TokenTTL      time.Duration `yaml:"token_ttl"`       // default: 168h
	Issuer        string        `yaml:"issuer"`          // default: "memberportal"
	BcryptCost    int           `yaml:"bcrypt_cost"`     // default: 12
	Cookie        CookieConfig  `yaml:"cookie"`
}

// CookieConfig holds session cookie attributes.
type CookieConfig struct {
	Name     string `yaml:"name"`      // default: "token"
	Secure   bool   `yaml:"secure"`    // forced on in production
	SameSite string `yaml:"same_site"` // "lax", "strict" or "none", default: "lax"
}

// RateLimitConfig holds login throttling settings.
type RateLimitConfig struct {
	LoginPerMinute int         `yaml:"login_per_minute"` // 0 disables, default: 10
	Backend        string      `yaml:"backend"`          // "memory" or "redis", default: "memory"
	Redis          RedisConfig `yaml:"redis"`
}

// RedisConfig holds the shared rate limiter connection.
type RedisConfig struct {
	URL     string `yaml:"url"`
	URLFile string `yaml:"url_file"` // _file variant for url
}

// StorageConfig holds account persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "postgres" or "sqlite", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// SQLiteConfig holds embedded database settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "memberportal.db"
}

// BootstrapConfig describes the super administrator ensured at startup.
// Bootstrapping is skipped when AdminEmail is empty.
type BootstrapConfig struct {
	AdminEmail        string `yaml:"admin_email"`
	AdminPassword     string `yaml:"admin_password"`
	AdminPasswordFile string `yaml:"admin_password_file"` // _file variant for admin_password
	AdminFirstName    string `yaml:"admin_first_name"`
	AdminLastName     string `yaml:"admin_last_name"`
}

// MembershipConfig holds membership number settings.
type MembershipConfig struct {
	Prefix string `yaml:"prefix"` // default: "AGR"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     1 << 20,
		},
		Auth: AuthConfig{
			TokenTTL:   7 * 24 * time.Hour,
			Issuer:     "memberportal",
			BcryptCost: 12,
			Cookie: CookieConfig{
				Name:     "token",
				SameSite: "lax",
			},
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: 10,
			Backend:        "memory",
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
			SQLite: SQLiteConfig{
				Path: "memberportal.db",
			},
		},
		Membership: MembershipConfig{
			Prefix: "AGR",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}
