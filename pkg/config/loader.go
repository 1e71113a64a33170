package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the portal reads.
const EnvPrefix = "MEMBERPORTAL_"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file (MEMBERPORTAL_ENV_FILE or ./.env); variables already in the
//     process environment are kept
//  3. YAML config file (explicit path, MEMBERPORTAL_CONFIG env, ./config.yaml,
//     /etc/memberportal/config.yaml)
//  4. MEMBERPORTAL_* environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if cfg.IsProduction() {
		cfg.Auth.Cookie.Secure = true
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads MEMBERPORTAL_ENV_FILE, or ./.env when present. An
// explicitly named file must exist.
func loadDotEnv() error {
	if path := os.Getenv(EnvPrefix + "ENV_FILE"); path != "" {
		return godotenv.Load(path)
	}
	if _, err := os.Stat(".env"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(".env")
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MEMBERPORTAL_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/memberportal/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/memberportal/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// envOverrides collects parse errors while applying environment variables.
type envOverrides struct {
	errs []error
}

func (o *envOverrides) stringVar(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func (o *envOverrides) intVar(name string, dst *int) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		o.errs = append(o.errs, fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, v))
		return
	}
	*dst = n
}

func (o *envOverrides) int32Var(name string, dst *int32) {
	n := int(*dst)
	o.intVar(name, &n)
	*dst = int32(n)
}

func (o *envOverrides) boolVar(name string, dst *bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		o.errs = append(o.errs, fmt.Errorf("%s%s: %q is not a boolean", EnvPrefix, name, v))
		return
	}
	*dst = b
}

func (o *envOverrides) durationVar(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		o.errs = append(o.errs, fmt.Errorf("%s%s: %q is not a duration", EnvPrefix, name, v))
		return
	}
	*dst = d
}

// applyEnvOverrides maps MEMBERPORTAL_* environment variables to config
// fields. Malformed values are reported together.
func applyEnvOverrides(cfg *Config) error {
	o := &envOverrides{}

	o.stringVar("ENV", &cfg.Environment)

	o.intVar("PORT", &cfg.Server.Port)
	o.durationVar("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.durationVar("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.durationVar("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	o.stringVar("JWT_SECRET", &cfg.Auth.JWTSecret)
	o.stringVar("JWT_SECRET_FILE", &cfg.Auth.JWTSecretFile)
	o.durationVar("TOKEN_TTL", &cfg.Auth.TokenTTL)
	o.stringVar("TOKEN_ISSUER", &cfg.Auth.Issuer)
	o.intVar("BCRYPT_COST", &cfg.Auth.BcryptCost)
	o.stringVar("COOKIE_NAME", &cfg.Auth.Cookie.Name)
	o.boolVar("COOKIE_SECURE", &cfg.Auth.Cookie.Secure)
	o.stringVar("COOKIE_SAME_SITE", &cfg.Auth.Cookie.SameSite)

	o.intVar("LOGIN_RATE_LIMIT", &cfg.RateLimit.LoginPerMinute)
	o.stringVar("RATELIMIT_BACKEND", &cfg.RateLimit.Backend)
	o.stringVar("REDIS_URL", &cfg.RateLimit.Redis.URL)
	o.stringVar("REDIS_URL_FILE", &cfg.RateLimit.Redis.URLFile)

	o.stringVar("STORAGE", &cfg.Storage.Type)
	o.stringVar("POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	o.stringVar("POSTGRES_DSN_FILE", &cfg.Storage.Postgres.DSNFile)
	o.int32Var("POSTGRES_MAX_CONNS", &cfg.Storage.Postgres.MaxConns)
	o.boolVar("POSTGRES_MIGRATE", &cfg.Storage.Postgres.MigrateOnStart)
	o.stringVar("SQLITE_PATH", &cfg.Storage.SQLite.Path)

	o.stringVar("ADMIN_EMAIL", &cfg.Bootstrap.AdminEmail)
	o.stringVar("ADMIN_PASSWORD", &cfg.Bootstrap.AdminPassword)
	o.stringVar("ADMIN_PASSWORD_FILE", &cfg.Bootstrap.AdminPasswordFile)
	o.stringVar("ADMIN_FIRST_NAME", &cfg.Bootstrap.AdminFirstName)
	o.stringVar("ADMIN_LAST_NAME", &cfg.Bootstrap.AdminLastName)

	o.stringVar("MEMBERSHIP_PREFIX", &cfg.Membership.Prefix)

	o.boolVar("METRICS_ENABLED", &cfg.Observability.Metrics.Enabled)
	o.stringVar("METRICS_PATH", &cfg.Observability.Metrics.Path)
	o.stringVar("LOG_LEVEL", &cfg.Observability.Logging.Level)
	o.stringVar("LOG_FORMAT", &cfg.Observability.Logging.Format)
	o.stringVar("DEBUG", &cfg.Observability.Logging.Debug)

	return errors.Join(o.errs...)
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name string
		file string
		dst  *string
	}{
		{"auth.jwt_secret_file", cfg.Auth.JWTSecretFile, &cfg.Auth.JWTSecret},
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"bootstrap.admin_password_file", cfg.Bootstrap.AdminPasswordFile, &cfg.Bootstrap.AdminPassword},
		{"ratelimit.redis.url_file", cfg.RateLimit.Redis.URLFile, &cfg.RateLimit.Redis.URL},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.dst != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.dst = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
