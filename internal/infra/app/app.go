package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/infra/catalog"
	"github.com/opscore/entitlement-service/internal/infra/config"
	"github.com/opscore/entitlement-service/internal/infra/database"
	kafkainfra "github.com/opscore/entitlement-service/internal/infra/kafka"
	"github.com/opscore/entitlement-service/internal/infra/logger"
	redisinfra "github.com/opscore/entitlement-service/internal/infra/redis"
	"github.com/opscore/entitlement-service/internal/infra/security"
	"github.com/opscore/entitlement-service/internal/infra/telemetry"
	postgresrepo "github.com/opscore/entitlement-service/internal/repository/postgres"
	redisrepo "github.com/opscore/entitlement-service/internal/repository/redis"
	"github.com/opscore/entitlement-service/internal/transport/http/middleware"
	"github.com/opscore/entitlement-service/internal/transport/http/routes"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// Application bundles the wired service and its long-lived resources.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New wires configuration, infrastructure, repositories, and services into a
// runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	catalogProvider, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load module catalog: %w", err)
	}
	log.Info("module catalog loaded", zap.Int("modules", catalogProvider.Catalog().Len()))

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	tokenManager, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	entitlementTTL := cfg.Redis.EntitlementTTL
	if entitlementTTL <= 0 {
		entitlementTTL = 5 * time.Minute
	}
	entitlementCache := redisrepo.NewEntitlementCache(redisClient.Client(), cfg.Redis.EntitlementPrefix, entitlementTTL)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	entitlementService := usecase.NewEntitlementService(catalogProvider, repos.Companies, repos.Entitlements, log).
		WithCache(entitlementCache)
	selectionService := usecase.NewSelectionService(repos.CompanyUsers, entitlementService, eventPublisher, log).
		WithMetrics(metrics.GrantCounter(), metrics.ToggleCounter())
	userTypeService := usecase.NewUserTypeService(repos.UserTypes, repos.CompanyUsers, entitlementService, eventPublisher, log)
	companyUserService := usecase.NewCompanyUserService(repos.CompanyUsers, repos.Companies, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Tokens:      tokenManager,
		Catalog:     catalogProvider,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Entitlements: entitlementService,
			UserTypes:    userTypeService,
			CompanyUsers: companyUserService,
			Selections:   selectionService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting entitlement API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
