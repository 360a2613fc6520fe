package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/pluma/pkg/async"
	"github.com/platinummonkey/pluma/pkg/audit"
	"github.com/platinummonkey/pluma/pkg/config"
	"github.com/platinummonkey/pluma/pkg/middleware"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/sso"
	"github.com/platinummonkey/pluma/pkg/storage"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout).
		WithField("service", "pluma").
		WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	otelProviders, err := observability.InitOTel(ctx, cfg.OTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Database
	cm, err := postgres.NewConnectionManager(ctx, cfg.ConnectionConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	shutdown.Register("database", func(context.Context) error { return cm.Close() })
	db := cm.DB()
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(ctx, db, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Audit trail: database for search and retention, logrus for the log pipeline
	auditSinks := []audit.Logger{audit.NewLogrusLogger(os.Stdout)}
	var auditStore *audit.DBLogger
	if cfg.Audit.Enabled {
		auditStore, err = audit.NewDBLogger(db)
		if err != nil {
			return fmt.Errorf("failed to create audit logger: %w", err)
		}
		auditSinks = append(auditSinks, auditStore)
	}
	auditLogger := audit.NewMultiLogger(auditSinks...)
	shutdown.Register("audit", func(context.Context) error { return auditLogger.Close() })

	if err := rbac.NewService(db, auditLogger, cfg.Auth.DefaultRole).InitializeBuiltInRoles(ctx); err != nil {
		return fmt.Errorf("failed to seed built-in roles: %w", err)
	}

	// Redis is optional; without it rate limiting is per instance
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = storage.NewRedisClient(ctx, storage.RedisConfig{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
		logger.Info("Connected to Redis")
	}

	rateLimit := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		WindowDuration:    cfg.RateLimit.Window,
		BurstSize:         cfg.RateLimit.Burst,
	}
	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewDistributedRateLimiter(redisClient, rateLimit, "")
	} else {
		local := middleware.NewRateLimiter(rateLimit)
		local.StartCleanup(ctx)
		limiter = local
	}

	deps := routerDeps{
		DB:          db,
		Logger:      logger,
		Metrics:     metrics,
		AuditLogger: auditLogger,
		Limiter:     limiter,
		RateLimit:   rateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		DefaultRole: cfg.Auth.DefaultRole,
	}
	if auditStore != nil {
		deps.AuditStore = auditStore
	}

	// Identity provider
	if cfg.OIDCEnabled() {
		provider, err := sso.NewOIDCProvider(ctx, cfg.OIDCConfig(), metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize identity provider: %w", err)
		}
		provisioner := sso.NewUserProvisioner(db, cfg.Auth.DefaultRole, metrics)
		deps.Auth = middleware.NewAuthMiddleware(provider.Verifier, provisioner, rbac.NewLoader(db))
		deps.Login = sso.NewHandlers(provider.OAuth2Config, provider.Verifier, provisioner, auditLogger)
		logger.WithField("issuer", cfg.Auth.IssuerURL).Info("Identity provider configured")
	} else {
		logger.Warn("No identity provider configured; all requests are anonymous")
	}

	if metrics != nil {
		async.Every(ctx, 15*time.Second, "db pool stats", func(context.Context) error {
			metrics.UpdateDBStats(cm.Stats())
			return nil
		})
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(newHandler(deps), "pluma"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient).WithVersion(version))
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.AddServer("api", apiServer)
	shutdown.AddServer("health", healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(logger, "api", apiServer) })
	g.Go(func() error { return serve(logger, "health", healthServer) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

// serve runs srv until it is shut down. http.ErrServerClosed is a clean exit.
func serve(logger *observability.Logger, name string, srv *http.Server) error {
	defer observability.RecoverPanic(logger, name+" server")

	logger.WithField("server", name).WithField("addr", srv.Addr).Info("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
