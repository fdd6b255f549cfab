package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/uppalcrm/crm/api/internal/config"
	"github.com/uppalcrm/crm/api/internal/metrics"
	"github.com/uppalcrm/crm/api/internal/ratelimit"
)

// QuotaChecker counts requests against an hourly allowance.
type QuotaChecker interface {
	Allow(ctx context.Context, subject string, limit int, now time.Time) ratelimit.Result
}

// OrganizationRateLimiter applies one token bucket per organization. Requests that are not bound
// to an organization share a bucket per client IP.
func OrganizationRateLimiter(cfg config.RateLimitConfig, m *metrics.CRMMetrics) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Every(perRequest), cfg.Requests)
			limiters[key] = l
		}
		return l
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if id, _ := c.Get(ContextKeyOrganizationID).(string); id != "" {
				key = "org:" + id
			}

			if !limiterFor(key).Allow() {
				m.ObserveRateLimited("organization")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "organization rate limit exceeded"})
			}

			return next(c)
		}
	}
}

// APIKeyQuota enforces the hourly request allowance of the authenticated API key. Keys without an
// explicit limit fall back to defaultLimit. It must run after APIKeyAuth.
func APIKeyQuota(checker QuotaChecker, defaultLimit int, m *metrics.CRMMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := APIKeyFromContext(c)
			if !ok {
				return next(c)
			}

			limit := principal.Key.RateLimitPerHour
			if limit <= 0 {
				limit = defaultLimit
			}

			res := checker.Allow(c.Request().Context(), "apikey:"+principal.Key.ID.String(), limit, time.Now())
			if res.MaxAllowed > 0 {
				remaining := res.MaxAllowed - res.CurrentCount
				if remaining < 0 {
					remaining = 0
				}
				h := c.Response().Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(res.MaxAllowed))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				if !res.WindowExpiry.IsZero() {
					h.Set("X-RateLimit-Reset", strconv.FormatInt(res.WindowExpiry.Unix(), 10))
				}
			}

			if !res.Allowed {
				m.ObserveRateLimited("api_key")
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "api key hourly quota exceeded"})
			}

			return next(c)
		}
	}
}
