package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/SamSjosten/FitChallenge-sub003/internal/api"
	"github.com/SamSjosten/FitChallenge-sub003/internal/common"
	"github.com/SamSjosten/FitChallenge-sub003/internal/config"
	"github.com/SamSjosten/FitChallenge-sub003/internal/db"
	"github.com/SamSjosten/FitChallenge-sub003/internal/jobs"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
	"github.com/SamSjosten/FitChallenge-sub003/internal/routes"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Health sync service starting up",
		"environment", cfg.AppEnv,
		"provider_mode", cfg.ProviderMode,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to DB with sqlx
	sqlxDB, err := db.InitPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	defer sqlxDB.Close()
	logging.Info("Connected to Postgres (sqlx)")

	if cfg.RunMigrations {
		if err := db.RunMigrations(sqlxDB); err != nil {
			logging.Fatal("Failed to run migrations", "error", err.Error())
		}
		logging.Info("Migrations applied")
	}

	// Connect to DB with GORM
	gormDB, err := db.InitPostgresORM(cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}
	logging.Info("Connected to Postgres (GORM)")

	var redisClient *redis.Client
	pingers := map[string]api.Pinger{}
	if cfg.CacheBackend == "redis" || cfg.EventSink == "redis" {
		redisClient = common.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword)
		pingers["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	deps, err := api.InitDependencies(cfg, gormDB, sqlxDB, metricsReg, redisClient)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}
	defer func() {
		deps.Close()
		// The redis cache closes the shared client itself
		if redisClient != nil && cfg.CacheBackend != "redis" {
			_ = redisClient.Close()
		}
	}()

	// Retired logs change connection status, so cached statuses are dropped with them
	jobs.InitializeJobs(ctx, deps.Repo.SyncLogs, cfg.SyncStaleAfter, cfg.SyncSweepInterval, metricsReg,
		func(int64) { deps.Services.HealthSync.InvalidateCachedStatuses() })

	upSince := time.Now()
	router := routes.RegisterRoutes(cfg, deps, sqlxDB, pingers, upSince)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "address", cfg.HTTPAddress, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
