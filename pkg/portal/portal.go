// Package portal assembles the member portal's components from a loaded
// configuration. Both the server and the operator CLI build on it.
package portal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/memberportal/pkg/account"
	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/auth/password"
	"github.com/rhuss/memberportal/pkg/auth/redislimit"
	"github.com/rhuss/memberportal/pkg/auth/token"
	"github.com/rhuss/memberportal/pkg/config"
	"github.com/rhuss/memberportal/pkg/storage"
	"github.com/rhuss/memberportal/pkg/storage/memory"
	"github.com/rhuss/memberportal/pkg/storage/postgres"
	"github.com/rhuss/memberportal/pkg/storage/sqlite"
)

// loginWindow is the fixed window of the login rate limit.
const loginWindow = time.Minute

// App holds the constructed components and the resources to release.
type App struct {
	Config   *config.Config
	Store    storage.AccountStore
	Accounts *account.Service

	closers []func() error
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build opens the store, sets up token signing, password hashing and the
// login limiter, and creates the account service.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	store, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)

	secret, err := SigningSecret(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	tokens, err := token.New(token.Config{
		Secret: secret,
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("creating password hasher: %w", err)
	}

	limiter, closeLimiter, err := NewLimiter(ctx, cfg.RateLimit)
	if err != nil {
		app.Close()
		return nil, err
	}
	if closeLimiter != nil {
		app.closers = append(app.closers, closeLimiter)
	}

	app.Accounts, err = account.New(account.Config{
		Store:            store,
		Hasher:           hasher,
		Tokens:           tokens,
		Limiter:          limiter,
		MembershipPrefix: cfg.Membership.Prefix,
		Logger:           logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// OpenStore creates the account store selected by cfg.Type.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.AccountStore, error) {
	switch cfg.Type {
	case "memory", "":
		logger.Warn("using in-memory account store, accounts are lost on restart")
		return memory.New(), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Info("storage enabled", "type", "postgres", "migrate_on_start", cfg.Postgres.MigrateOnStart)
		return store, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("storage enabled", "type", "sqlite", "path", cfg.SQLite.Path)
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

// SigningSecret returns the configured token secret. Outside production a
// missing secret is replaced by a random one, so tokens do not survive a
// restart.
func SigningSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.JWTSecret != "" {
		return []byte(cfg.Auth.JWTSecret), nil
	}
	if cfg.IsProduction() {
		return nil, token.ErrMissingSecret
	}

	secret := make([]byte, token.MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating signing secret: %w", err)
	}
	logger.Warn("auth.jwt_secret not set, using a random per-process secret; sessions end on restart")
	return secret, nil
}

// NewLimiter creates the login rate limiter. The returned close function
// is nil for the in-process limiter.
func NewLimiter(ctx context.Context, cfg config.RateLimitConfig) (auth.RateLimiter, func() error, error) {
	if cfg.Backend != "redis" {
		return auth.NewInProcessLimiter(cfg.LoginPerMinute, loginWindow), nil, nil
	}

	client, err := redislimit.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	return redislimit.New(client, cfg.LoginPerMinute, loginWindow), client.Close, nil
}
