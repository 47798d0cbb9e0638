package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	SearchPort string
	LogLevel   string
	DBUrl      string
	// Auth
	JWTSecret string
	JWKSURL   string
	// Write path
	WriteTimeout time.Duration
	// Redis / Event Channel
	RedisURL                string
	RedisPassword           string
	EventStream             string
	EventGroup              string
	EventConsumer           string
	EventPartitions         int
	EventConsumerPartitions []int
	EventMaxDeliveries      int
	EventClaimIdle          time.Duration
	EventRetryBackoff       time.Duration
	// Search index
	ElasticsearchURL string
	SearchIndex      string
	SearchIDsPage    int
	// Schedules (robfig/cron specs)
	OutboxRelaySpec    string
	OutboxGracePeriod  time.Duration
	OutboxRetention    time.Duration
	ReconcileSpec      string
	ReconcileOnStartup bool
	ReconcileBatchSize int
	// HTTP
	CORSAllowedOrigins []string
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitSearchThreshold int
}

func LoadConfig() (*Config, error) {
	// Load .env file when present; production reads the real environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		SearchPort: getEnv("SEARCH_PORT", "8081"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DBUrl:      getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWKSURL:   strings.TrimRight(getEnv("JWKS_URL", ""), "/"),

		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 10*time.Second),

		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		EventStream:             getEnv("EVENT_STREAM", "jobs:events"),
		EventGroup:              getEnv("EVENT_GROUP", "search-indexer"),
		EventConsumer:           getEnv("EVENT_CONSUMER", defaultConsumerName()),
		EventPartitions:         getEnvInt("EVENT_PARTITIONS", 1),
		EventConsumerPartitions: getEnvIntList("EVENT_CONSUMER_PARTITIONS"),
		EventMaxDeliveries:      getEnvInt("EVENT_MAX_DELIVERIES", 10),
		EventClaimIdle:          getEnvDuration("EVENT_CLAIM_IDLE", time.Minute),
		EventRetryBackoff:       getEnvDuration("EVENT_RETRY_BACKOFF", 2*time.Second),

		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		SearchIndex:      getEnv("SEARCH_INDEX", "jobs"),
		SearchIDsPage:    getEnvInt("SEARCH_IDS_PAGE_SIZE", 1000),

		OutboxRelaySpec:    getEnv("OUTBOX_RELAY_SPEC", "@every 10s"),
		OutboxGracePeriod:  getEnvDuration("OUTBOX_GRACE_PERIOD", 5*time.Second),
		OutboxRetention:    getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		ReconcileSpec:      getEnv("RECONCILE_SPEC", "@every 1h"),
		ReconcileOnStartup: getEnvBool("RECONCILE_ON_STARTUP", true),
		ReconcileBatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 200),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitSearchThreshold: getEnvInt("RATE_LIMIT_SEARCH_THRESHOLD", 120),
	}

	if cfg.EventPartitions < 1 {
		cfg.EventPartitions = 1
	}
	if len(cfg.EventConsumerPartitions) == 0 {
		// A lone consumer owns every partition.
		for p := 0; p < cfg.EventPartitions; p++ {
			cfg.EventConsumerPartitions = append(cfg.EventConsumerPartitions, p)
		}
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		log.Println("WARNING: neither JWT_SECRET nor JWKS_URL configured. Authenticated routes will reject every token.")
	}

	return cfg, nil
}

func defaultConsumerName() string {
	host, _ := os.Hostname()
	if host == "" {
		return "indexer-0"
	}
	return host
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration parses values like "30s" or "5m"
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvIntList parses a comma separated list, skipping invalid entries
func getEnvIntList(key string) []int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
