package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth/token"
)

// Validate checks the configuration for required fields and valid values.
// Every problem is reported, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvDevelopment, EnvProduction:
		// valid
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment))
	}

	// server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be > 0, got %v", c.Server.ReadTimeout))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be > 0, got %v", c.Server.WriteTimeout))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	// auth
	if c.IsProduction() {
		switch {
		case c.Auth.JWTSecret == "":
			errs = append(errs, errors.New("auth.jwt_secret or auth.jwt_secret_file is required in production"))
		case len(c.Auth.JWTSecret) < token.MinSecretLength:
			errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes in production, got %d", token.MinSecretLength, len(c.Auth.JWTSecret)))
		}
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be > 0, got %v", c.Auth.TokenTTL))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	if c.Auth.Cookie.Name == "" {
		errs = append(errs, errors.New("auth.cookie.name is required"))
	}
	if _, err := token.ParseSameSite(c.Auth.Cookie.SameSite); err != nil {
		errs = append(errs, fmt.Errorf("auth.cookie.same_site: %w", err))
	} else if strings.EqualFold(c.Auth.Cookie.SameSite, "none") && !c.Auth.Cookie.Secure {
		errs = append(errs, errors.New("auth.cookie.same_site \"none\" requires auth.cookie.secure"))
	}

	// ratelimit
	if c.RateLimit.LoginPerMinute < 0 {
		errs = append(errs, fmt.Errorf("ratelimit.login_per_minute must be >= 0, got %d", c.RateLimit.LoginPerMinute))
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.Redis.URL == "" {
			errs = append(errs, errors.New("ratelimit.redis.url or ratelimit.redis.url_file is required when ratelimit.backend is \"redis\""))
		}
	default:
		errs = append(errs, fmt.Errorf("ratelimit.backend must be \"memory\" or \"redis\", got %q", c.RateLimit.Backend))
	}

	// storage
	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
		if c.Storage.Postgres.MaxConns < 0 {
			errs = append(errs, fmt.Errorf("storage.postgres.max_conns must be >= 0, got %d", c.Storage.Postgres.MaxConns))
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required when storage.type is \"sqlite\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\" or \"sqlite\", got %q", c.Storage.Type))
	}

	// bootstrap
	if c.Bootstrap.AdminEmail != "" && c.Bootstrap.AdminPassword == "" {
		errs = append(errs, errors.New("bootstrap.admin_password or bootstrap.admin_password_file is required when bootstrap.admin_email is set"))
	}
	if c.Bootstrap.AdminEmail == "" && c.Bootstrap.AdminPassword != "" {
		errs = append(errs, errors.New("bootstrap.admin_email is required when bootstrap.admin_password is set"))
	}

	switch {
	case c.Membership.Prefix == "":
		errs = append(errs, errors.New("membership.prefix is required"))
	case !api.ValidateMembershipNo(api.NewMembershipNo(c.Membership.Prefix, time.Now())):
		errs = append(errs, fmt.Errorf("membership.prefix must be 1 to 8 uppercase letters, got %q", c.Membership.Prefix))
	}

	// observability
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}
	switch strings.ToLower(c.Observability.Logging.Level) {
	case "", "error", "warn", "warning", "info", "debug", "trace":
	default:
		errs = append(errs, fmt.Errorf("observability.logging.level must be one of error, warn, info, debug, trace, got %q", c.Observability.Logging.Level))
	}
	switch c.Observability.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("observability.logging.format must be \"text\" or \"json\", got %q", c.Observability.Logging.Format))
	}

	return errors.Join(errs...)
}
