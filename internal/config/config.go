package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Bucket shapes per route family. Capacity is the burst size, refill is
	// expressed per minute because that is how the route budgets are sized.
	RateLimitWriteCapacity     int
	RateLimitWriteRefillPerMin int
	RateLimitReadCapacity      int
	RateLimitReadRefillPerMin  int
	RateLimitIdleTTLSeconds    int
	RateLimitMaxKeys           int

	FreeMaxActiveListings int
	FreeMaxShowcase       int

	ReclaimIntervalSeconds int
	ReclaimBatchSize       int

	ProjectionCacheTTLSeconds int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                   addr,
		PostgresDSN:                os.Getenv("POSTGRES_DSN"),
		LogLevel:                   envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:                os.Getenv("ADMIN_API_KEY"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    envIntDefault("REDIS_DB", 0),
		RateLimitWriteCapacity:     envIntDefault("RATE_LIMIT_WRITE_CAPACITY", 20),
		RateLimitWriteRefillPerMin: envIntDefault("RATE_LIMIT_WRITE_REFILL_PER_MIN", 20),
		RateLimitReadCapacity:      envIntDefault("RATE_LIMIT_READ_CAPACITY", 120),
		RateLimitReadRefillPerMin:  envIntDefault("RATE_LIMIT_READ_REFILL_PER_MIN", 120),
		RateLimitIdleTTLSeconds:    envIntDefault("RATE_LIMIT_IDLE_TTL_SECONDS", 60),
		RateLimitMaxKeys:           envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		FreeMaxActiveListings:      envIntDefault("FREE_MAX_ACTIVE_LISTINGS", 3),
		FreeMaxShowcase:            envIntDefault("FREE_MAX_SHOWCASE", 1),
		ReclaimIntervalSeconds:     envIntDefault("RECLAIM_INTERVAL_SECONDS", 60),
		ReclaimBatchSize:           envIntDefault("RECLAIM_BATCH_SIZE", 1000),
		ProjectionCacheTTLSeconds:  envIntDefault("PROJECTION_CACHE_TTL_SECONDS", 30),
	}
}

func (c Config) RateLimitIdleTTL() time.Duration {
	if c.RateLimitIdleTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitIdleTTLSeconds) * time.Second
}

func (c Config) ReclaimInterval() time.Duration {
	if c.ReclaimIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.ReclaimIntervalSeconds) * time.Second
}

func (c Config) ProjectionCacheTTL() time.Duration {
	if c.ProjectionCacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ProjectionCacheTTLSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
