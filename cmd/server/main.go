// Command server runs the member portal HTTP service.
//
// Configuration is read from a YAML file (-config, MEMBERPORTAL_CONFIG,
// ./config.yaml or /etc/memberportal/config.yaml), an optional .env file
// and MEMBERPORTAL_* environment variables. Frequently used variables:
//
//	MEMBERPORTAL_ENV            - "development" or "production"
//	MEMBERPORTAL_PORT           - Listen port (default: 8080)
//	MEMBERPORTAL_JWT_SECRET     - Token signing secret (required in production)
//	MEMBERPORTAL_STORAGE        - "memory", "postgres" or "sqlite" (default: "memory")
//	MEMBERPORTAL_POSTGRES_DSN   - PostgreSQL connection string
//	MEMBERPORTAL_ADMIN_EMAIL    - Super administrator ensured at startup
//	MEMBERPORTAL_ADMIN_PASSWORD - Its initial password
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/memberportal/pkg/account"
	"github.com/rhuss/memberportal/pkg/auth/token"
	"github.com/rhuss/memberportal/pkg/config"
	"github.com/rhuss/memberportal/pkg/debug"
	"github.com/rhuss/memberportal/pkg/portal"
	transporthttp "github.com/rhuss/memberportal/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging := cfg.Observability.Logging
	debug.Init(logging.Debug, logging.Level, logging.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := portal.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("closing resources", "error", err)
		}
	}()

	if b := cfg.Bootstrap; b.AdminEmail != "" {
		created, err := app.Accounts.EnsureAdmin(ctx, account.AdminSpec{
			Email:     b.AdminEmail,
			Password:  b.AdminPassword,
			FirstName: b.AdminFirstName,
			LastName:  b.AdminLastName,
		})
		if err != nil {
			return err
		}
		if !created {
			logger.Info("bootstrap admin already present", "email", b.AdminEmail)
		}
	}

	sameSite, err := token.ParseSameSite(cfg.Auth.Cookie.SameSite)
	if err != nil {
		return fmt.Errorf("auth.cookie.same_site: %w", err)
	}

	adapter := transporthttp.NewAdapter(app.Accounts, app.Store, transporthttp.Config{
		MaxBodySize: cfg.Server.MaxBodySize,
		Cookie: token.CookieOptions{
			Name:     cfg.Auth.Cookie.Name,
			Secure:   cfg.Auth.Cookie.Secure,
			SameSite: sameSite,
		},
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		Logger:         logger,
	})

	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("member portal starting",
		"environment", cfg.Environment,
		"addr", cfg.Server.Addr(),
		"storage", cfg.Storage.Type,
		"ratelimit_backend", cfg.RateLimit.Backend,
		"metrics", cfg.Observability.Metrics.Enabled,
	)

	return srv.Run(ctx)
}
