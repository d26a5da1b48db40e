package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	HTTPAddress string

	// Postgres
	DatabaseURL   string
	RunMigrations bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	CacheBackend string // memory | redis
	EventSink    string // none | redis | kafka
	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	// Sample provider
	ProviderMode      string // live | mock
	ProviderTag       string
	SensorBridgeURL   string
	SensorBridgeToken string
	SensorBridgeRPS   float64

	// Sync engine
	SyncBatchSize     int
	SyncMinInterval   time.Duration
	SyncStaleAfter    time.Duration
	SyncSweepInterval time.Duration

	// API rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:      getString("APP_ENV", "development"),
		HTTPAddress: getString("HTTP_ADDRESS", ":8080"),

		RunMigrations: getBool("RUN_MIGRATIONS", true),

		RedisHost:     getString("REDIS_HOST", "localhost"),
		RedisPort:     getString("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CacheBackend: getString("CACHE_BACKEND", "memory"),
		EventSink:    getString("EVENT_SINK", "none"),
		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getString("KAFKA_TOPIC", "health.sync.completed"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ProviderMode:      getString("PROVIDER_MODE", "mock"),
		ProviderTag:       os.Getenv("PROVIDER_TAG"),
		SensorBridgeURL:   os.Getenv("SENSOR_BRIDGE_URL"),
		SensorBridgeToken: os.Getenv("SENSOR_BRIDGE_TOKEN"),
	}

	var err error
	if cfg.DatabaseURL, err = databaseURL(); err != nil {
		return nil, err
	}
	if cfg.SensorBridgeRPS, err = getFloat("SENSOR_BRIDGE_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.SyncBatchSize, err = getInt("SYNC_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.SyncMinInterval, err = getDuration("SYNC_MIN_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SyncStaleAfter, err = getDuration("SYNC_STALE_AFTER", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SyncSweepInterval, err = getDuration("SYNC_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 5); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.ProviderMode {
	case "mock":
	case "live":
		if c.SensorBridgeURL == "" {
			return fmt.Errorf("SENSOR_BRIDGE_URL is required when PROVIDER_MODE=live")
		}
	default:
		return fmt.Errorf("PROVIDER_MODE must be live or mock, got %q", c.ProviderMode)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	}
	switch c.EventSink {
	case "none", "redis":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_SINK=kafka")
		}
	default:
		return fmt.Errorf("EVENT_SINK must be none, redis or kafka, got %q", c.EventSink)
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.SyncBatchSize)
	}
	return nil
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// databaseURL prefers DATABASE_URL and falls back to the PG_* variables
func databaseURL() (string, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}

	host := os.Getenv("PG_HOST")
	port := getString("PG_PORT", "5432")
	user := os.Getenv("PG_USER")
	dbname := os.Getenv("PG_DB")
	password := os.Getenv("PG_PASSWORD")
	if host == "" || user == "" || dbname == "" {
		return "", fmt.Errorf("DATABASE_URL or PG_HOST, PG_USER and PG_DB are required")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbname), nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
