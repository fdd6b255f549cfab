package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Result describes one hourly quota check.
type Result struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
}

// HourlyLimiter counts requests per subject in fixed clock-hour windows stored in redis.
type HourlyLimiter struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewHourlyLimiter creates a limiter whose keys start with prefix.
func NewHourlyLimiter(client *redis.Client, prefix string, logger zerolog.Logger) *HourlyLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &HourlyLimiter{redis: client, prefix: prefix, logger: logger}
}

// Allow records one request for subject and reports whether it fits in limit for the current hour.
// A non-positive limit disables the check. Redis failures fail open.
func (l *HourlyLimiter) Allow(ctx context.Context, subject string, limit int, now time.Time) Result {
	if limit <= 0 {
		return Result{Allowed: true}
	}

	window := now.UTC().Truncate(time.Hour)
	key := fmt.Sprintf("%s:%s:%s", l.prefix, subject, window.Format("2006010215"))

	count, expiry, err := l.incrementAndGet(ctx, key, window.Add(time.Hour).Sub(now))
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("hourly quota check failed")
		return Result{Allowed: true, MaxAllowed: limit}
	}

	res := Result{
		Allowed:      count <= limit,
		CurrentCount: count,
		MaxAllowed:   limit,
		WindowExpiry: expiry,
	}
	if !res.Allowed {
		l.logger.Warn().Str("subject", subject).Int("count", count).Int("max", limit).Msg("hourly quota exceeded")
	}
	return res
}

func (l *HourlyLimiter) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		l.redis.Expire(ctx, key, window)
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}
