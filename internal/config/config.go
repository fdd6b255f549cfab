package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL         string
	DatabaseMaxConns    int
	RedisURL            string
	JWTSecret           string
	Port                string
	WorkerMetricsPort   string
	LogLevel            string
	LogFormat           string
	RateLimitOrg        RateLimitConfig
	APIKeyHourlyLimit   int
	PhoneRegion         string
	KeyAttempts         int
	WebhookQueue        string
	WorkerPollTimeout   time.Duration
	ExpirySweepInterval time.Duration
	TokenTTL            time.Duration
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		Port:                getEnv("PORT", "8080"),
		WorkerMetricsPort:   strings.TrimSpace(getEnv("WORKER_METRICS_PORT", "9090")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "auto"),
		PhoneRegion:         strings.ToUpper(getEnv("PHONE_REGION", "US")),
		WebhookQueue:        getEnv("WEBHOOK_QUEUE", "crm:webhooks:inbound"),
		TokenTTL:            parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),
		WorkerPollTimeout:   parseDuration(getEnv("WORKER_POLL_TIMEOUT", "5s"), 5*time.Second),
		ExpirySweepInterval: parseDuration(getEnv("EXPIRY_SWEEP_INTERVAL", "15m"), 15*time.Minute),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_ORG", "120/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_ORG value: %w", err)
	}
	cfg.RateLimitOrg = rl

	if cfg.APIKeyHourlyLimit, err = parseInt(getEnv("API_KEY_HOURLY_LIMIT", "1000")); err != nil {
		return nil, fmt.Errorf("invalid API_KEY_HOURLY_LIMIT value: %w", err)
	}
	if cfg.DatabaseMaxConns, err = parseInt(getEnv("DB_MAX_CONNS", "0")); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS value: %w", err)
	}
	if cfg.KeyAttempts, err = parseInt(getEnv("KEY_ATTEMPTS", "5")); err != nil || cfg.KeyAttempts == 0 {
		return nil, fmt.Errorf("invalid KEY_ATTEMPTS value: must be a positive integer")
	}

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

// parseInt accepts non-negative integers only.
func parseInt(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
