package api

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SamSjosten/FitChallenge-sub003/internal/auth"
	"github.com/SamSjosten/FitChallenge-sub003/internal/common"
	"github.com/SamSjosten/FitChallenge-sub003/internal/config"
	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/db/repositories"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
	"github.com/SamSjosten/FitChallenge-sub003/internal/services"
)

const (
	connectionCacheTTL = 30 * time.Second
	redisStreamMaxLen  = 10000
	transformerWorkers = 4
)

type Repositories struct {
	Records     *repositories.ActivityRecordRepo
	SyncLogs    *repositories.HealthSyncLogRepo
	Connections *repositories.HealthConnectionRepo
	Challenges  *repositories.ChallengeRepository
}

type Services struct {
	Cache      common.CacheInterface
	Events     common.EventPublisher
	Provider   providers.SampleProvider
	HealthSync *services.HealthSyncService
	Tokens     *auth.TokenService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// InitDependencies builds every repository and service from cfg.
// redisClient may be nil when neither the cache nor the event sink uses redis.
func InitDependencies(
	cfg *config.Config,
	gormDB *gorm.DB,
	sqlxDB *sqlx.DB,
	metricsReg *metrics.MetricsRegistry,
	redisClient *redis.Client,
) (*Dependencies, error) {
	repos := &Repositories{
		Records:     repositories.NewActivityRecordRepo(gormDB),
		SyncLogs:    repositories.NewHealthSyncLogRepo(gormDB),
		Connections: repositories.NewHealthConnectionRepo(gormDB),
		Challenges:  repositories.NewChallengeRepository(sqlxDB),
	}

	var cache common.CacheInterface
	switch cfg.CacheBackend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("CACHE_BACKEND=redis needs a redis client")
		}
		cache = common.NewRedisCacheService(redisClient)
	default:
		cache = common.NewCacheService(connectionCacheTTL, time.Minute)
	}

	var events common.EventPublisher
	switch cfg.EventSink {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("EVENT_SINK=redis needs a redis client")
		}
		events = common.NewRedisStreamPublisher(redisClient, constants.EventSyncCompleted, redisStreamMaxLen)
	case "kafka":
		events = common.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		events = common.NoopPublisher{}
	}

	mock := providers.DefaultMockConfig()
	if cfg.ProviderTag != "" {
		mock.ProviderTag = cfg.ProviderTag
	}
	provider, err := providers.NewSampleProvider(cfg.ProviderMode, providers.LiveSensorConfig{
		BaseURL:           cfg.SensorBridgeURL,
		Token:             cfg.SensorBridgeToken,
		ProviderTag:       cfg.ProviderTag,
		RequestsPerSecond: cfg.SensorBridgeRPS,
	}, mock, metricsReg)
	if err != nil {
		return nil, fmt.Errorf("init sample provider: %w", err)
	}

	orchestrator := services.NewSyncOrchestrator(
		repos.SyncLogs,
		repos.Challenges,
		services.NewSampleTransformer(transformerWorkers),
		services.NewBatchPersister(repos.Records, cfg.SyncBatchSize),
		metricsReg,
		time.Now,
	)

	healthSync := services.NewHealthSyncService(services.HealthSyncServiceDeps{
		Provider:     provider,
		Orchestrator: orchestrator,
		Connections:  repos.Connections,
		Logs:         repos.SyncLogs,
		Records:      repos.Records,
		Cache:        cache,
		Events:       events,
		Metrics:      metricsReg,
		MinInterval:  cfg.SyncMinInterval,
	})

	logging.Info("Dependencies initialized",
		"provider", provider.GetProviderType(),
		"provider_mode", cfg.ProviderMode,
		"cache_backend", cfg.CacheBackend,
		"event_sink", events.Sink(),
	)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:      cache,
			Events:     events,
			Provider:   provider,
			HealthSync: healthSync,
			Tokens:     auth.NewTokenService(cfg.JWTSecret),
		},
		Metrics: metricsReg,
	}, nil
}

// Close releases the event sink and cache connections
func (d *Dependencies) Close() {
	if err := d.Services.Events.Close(); err != nil {
		logging.Warn("Failed to close event publisher", "error", err)
	}
	if err := d.Services.Cache.Close(); err != nil {
		logging.Warn("Failed to close cache", "error", err)
	}
}
