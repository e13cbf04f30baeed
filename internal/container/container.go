package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/config"
	"github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/metrics"
)

// app-level container to share constructed components across packages.
// The router builds its dependencies from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	userRepo    repository.UserRepository
	redisClient *redis.Client

	tokens *helpers.TokenManager
	hasher *helpers.PasswordHasher

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client

	registry  *prometheus.Registry
	collector *metrics.Collector
)

func SetConfig(c *config.Config)                              { cfg = c }
func GetConfig() *config.Config                               { return cfg }
func SetLogger(l *logrus.Logger)                              { logger = l }
func GetLogger() *logrus.Logger                               { return logger }
func SetPGPool(p *pgxpool.Pool)                               { pgPool = p }
func GetPGPool() *pgxpool.Pool                                { return pgPool }
func SetUserRepo(r repository.UserRepository)                 { userRepo = r }
func GetUserRepo() repository.UserRepository                  { return userRepo }
func SetRedis(r *redis.Client)                                { redisClient = r }
func GetRedis() *redis.Client                                 { return redisClient }
func SetTokens(m *helpers.TokenManager)                       { tokens = m }
func GetTokens() *helpers.TokenManager                        { return tokens }
func SetHasher(h *helpers.PasswordHasher)                     { hasher = h }
func GetHasher() *helpers.PasswordHasher                      { return hasher }
func SetRabbitPub(p *helpers.RabbitPublisher)                 { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher                  { return rabbitPub }
func SetES(c *elasticsearch.Client)                           { esClient = c }
func GetES() *elasticsearch.Client                            { return esClient }
func SetMetrics(r *prometheus.Registry, c *metrics.Collector) { registry, collector = r, c }
func GetMetricsRegistry() *prometheus.Registry                { return registry }
func GetMetrics() *metrics.Collector                          { return collector }
