package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/config"
	"github.com/oksasatya/user-management-api/internal/application"
	"github.com/oksasatya/user-management-api/internal/container"
	"github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/internal/infrastructure/redisstore"
	"github.com/oksasatya/user-management-api/internal/infrastructure/search"
	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/internal/interface/middleware"
	"github.com/oksasatya/user-management-api/internal/router/modules"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/metrics"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

// TokenDenylist revokes tokens on logout and is consulted by the auth gate.
type TokenDenylist interface {
	application.TokenRevoker
	middleware.RevocationChecker
}

// Deps is everything the HTTP layer needs. Optional integrations are left
// nil when not configured.
type Deps struct {
	Config *config.Config
	Logger *logrus.Logger
	Repo   repository.UserRepository
	Tokens *helpers.TokenManager
	Hasher *helpers.PasswordHasher

	Redis     *redis.Client
	Denylist  TokenDenylist
	Publisher application.EmailPublisher
	Indexer   application.UserIndexer

	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// DepsFromContainer assembles Deps from the app container.
func DepsFromContainer() Deps {
	d := Deps{
		Config: container.GetConfig(),
		Logger: container.GetLogger(),
		Repo:   container.GetUserRepo(),
		Tokens: container.GetTokens(),
		Hasher: container.GetHasher(),
	}
	if rdb := container.GetRedis(); rdb != nil {
		d.Redis = rdb
		d.Denylist = redisstore.NewTokenDenylist(rdb)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		d.Publisher = pub
	}
	if es := container.GetES(); es != nil {
		d.Indexer = search.NewUserIndex(es, d.Config.ESUsersIndex)
	}
	if c := container.GetMetrics(); c != nil {
		d.Metrics = c
		d.Gatherer = container.GetMetricsRegistry()
	}
	return d
}

// New builds the engine with global middleware and every module mounted.
// Callers should Close the returned registry on shutdown.
func New(d Deps) (*gin.Engine, *Registry) {
	validation.Init()

	engine := gin.New()
	reg := NewRegistry(engine)

	reg.Use(middleware.RequestID(), middleware.Recovery(d.Logger), middleware.RealIP(false))
	if origins := d.Config.CORSOrigins(); len(origins) > 0 {
		reg.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if d.Metrics != nil {
		reg.Use(d.Metrics.Middleware())
	}
	if d.Config.HTTPLogEnabled {
		reg.Use(middleware.AccessLog(d.Logger))
	}

	limit := limiterFactory(reg, d.Redis, rateLimitBypass(d.Config))
	if n := d.Config.GlobalRateLimit; n > 0 {
		reg.Use(limit(n, time.Minute, middleware.KeyByIP()))
	}

	InitModules(reg, d, limit)
	reg.RegisterAll()
	return engine, reg
}

// InitModules wires services and handlers and adds each module to the registry.
func InitModules(r *Registry, d Deps, limit modules.LimiterFunc) {
	authSvc := application.NewAuthService(d.Repo, d.Hasher, d.Tokens, d.Logger, application.AuthConfig{
		AppName:           d.Config.AppName,
		PasswordMinLength: d.Config.PasswordMinLength,
		RequireAge:        d.Config.RequireAge,
	})
	userSvc := application.NewUserService(d.Repo, d.Hasher, d.Logger, d.Config.PasswordMinLength)

	gateCfg := middleware.AuthConfig{Tokens: d.Tokens, Logger: d.Logger}
	if d.Denylist != nil {
		authSvc.Revoker = d.Denylist
		gateCfg.Denylist = d.Denylist
	}
	if d.Publisher != nil {
		authSvc.Publisher = d.Publisher
	}
	if d.Indexer != nil {
		authSvc.Indexer = d.Indexer
		userSvc.Indexer = d.Indexer
	}
	if d.Metrics != nil {
		authSvc.Metrics = d.Metrics
		gateCfg.Metrics = d.Metrics
	}

	gate := middleware.Auth(gateCfg)
	userHandler := handlers.NewUserHandler(userSvc, d.Logger)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, d.Logger), userHandler, gate, limit, d.Config.OpenUserCreate))
	r.Add(modules.NewUserModule(userHandler, gate, limit))

	checks := []handlers.HealthCheck{{Name: "database", Check: d.Repo.Ping}}
	if d.Redis != nil {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}})
	}
	var gatherer prometheus.Gatherer
	if d.Config.MetricsEnabled {
		gatherer = d.Gatherer
	}
	r.Add(modules.NewOpsModule(handlers.NewHealthHandler(d.Logger, checks...), gatherer))
}

// rateLimitBypass exempts /health and /metrics and, when configured,
// clients on loopback or private networks.
func rateLimitBypass(cfg *config.Config) middleware.AllowFunc {
	allow := middleware.AllowPaths("/health", "/metrics")
	if cfg.RateLimitSkipPrivate {
		allow = middleware.AnyOf(allow, middleware.AllowPrivateIP())
	}
	return allow
}

// limiterFactory returns Redis-backed limiters when Redis is configured and
// per-process limiters otherwise.
func limiterFactory(r *Registry, rdb *redis.Client, allow middleware.AllowFunc) modules.LimiterFunc {
	return func(max int, window time.Duration, key middleware.KeyFunc) gin.HandlerFunc {
		if rdb != nil {
			return middleware.RateLimit(rdb, max, window, key, allow)
		}
		l := middleware.NewLocalLimiter(max, window)
		r.OnClose(l.Stop)
		return l.Middleware(key, allow)
	}
}
