package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opscore/entitlement-service/internal/core/port"
	"github.com/opscore/entitlement-service/internal/infra/config"
	"github.com/opscore/entitlement-service/internal/infra/security"
	"github.com/opscore/entitlement-service/internal/transport/http/handlers"
	"github.com/opscore/entitlement-service/internal/transport/http/middleware"
	"github.com/opscore/entitlement-service/internal/usecase"
)

// RoleAdmin gates the entitlement write and user type assignment endpoints.
const RoleAdmin = "admin"

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Entitlements *usecase.EntitlementService
	UserTypes    *usecase.UserTypeService
	CompanyUsers *usecase.CompanyUserService
	Selections   *usecase.SelectionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Tokens      *security.TokenManager
	Catalog     port.CatalogProvider
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Tokens)
	adminMiddleware := middleware.RequireRole(RoleAdmin)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	writeLimit := buildRateLimit(deps, "grant-writes", deps.Config.RateLimit.WriteMaxAttempts)
	toggleLimit := buildRateLimit(deps, "grant-toggles", deps.Config.RateLimit.ToggleMaxAttempts)

	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
		catalogHandler.RegisterRoutes(api.Group("/catalog"))

		companyHandler := handlers.NewCompanyHandler(deps.Services.Entitlements)
		companyGroup := api.Group("/companies")
		companyHandler.RegisterRoutes(companyGroup)

		entitlementWrite := append([]gin.HandlerFunc{adminMiddleware}, writeLimit...)
		entitlementWrite = append(entitlementWrite, companyHandler.ReplaceEntitlements)
		companyGroup.PUT("/:id/entitlements", entitlementWrite...)

		userTypeHandler := handlers.NewUserTypeHandler(deps.Services.UserTypes)
		userTypeHandler.RegisterRoutes(api.Group("/user-types"), writeLimit...)

		assignHandlers := append([]gin.HandlerFunc{adminMiddleware}, writeLimit...)
		assignHandlers = append(assignHandlers, userTypeHandler.AssignUserType)
		api.PATCH("/admin/users/:id/user-type", assignHandlers...)

		companyUserHandler := handlers.NewCompanyUserHandler(deps.Services.CompanyUsers, deps.Services.Selections)
		companyUserGroup := api.Group("/company-users")
		companyUserHandler.RegisterReadRoutes(companyUserGroup)
		companyUserGroup.POST("", append(writeLimit, companyUserHandler.CreateCompanyUser)...)
		companyUserGroup.PUT("/:id/modules", append(writeLimit, companyUserHandler.UpdateModuleGrants)...)
		companyUserGroup.POST("/:id/modules/toggle", append(toggleLimit, companyUserHandler.ToggleModule)...)
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
