package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/logger"
	"job-marketplace-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key prefix for Redis
	KeyPrefix string
	// Custom key extractor (default: client IP)
	KeyFunc func(*gin.Context) string
}

// SearchRateLimitConfig limits the public search endpoint per client IP.
func SearchRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:search:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

var rateLimitScript = goredis.NewScript(rateLimitLuaScript)

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests in fixed windows. Counters live in Redis so all
// replicas share them; when Redis is unreachable it fails open onto a
// per-process counter.
type RateLimiter struct {
	cfg    RateLimitConfig
	client *goredis.Client
	audit  *security.SecurityLogger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rateLimitEntry
}

func NewRateLimiter(client *goredis.Client, cfg RateLimitConfig, audit *security.SecurityLogger) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{
		cfg:    cfg,
		client: client,
		audit:  audit,
		now:    time.Now,
		local:  make(map[string]*rateLimitEntry),
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.cfg.KeyPrefix + rl.cfg.KeyFunc(c)

		count, resetAt, err := rl.hitRedis(c.Request.Context(), key)
		if err != nil {
			logger.Log.Warn("Rate limiter falling back to in-memory counter", "error", err)
			count, resetAt = rl.hitLocal(key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		if count > rl.cfg.Limit {
			retryAfter := int(resetAt.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			if rl.audit != nil {
				rl.audit.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.FullPath())
			}
			c.Error(apperror.TooManyRequests("Rate limit exceeded. Please try again later."))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.cfg.Limit-count))
		c.Next()
	}
}

func (rl *RateLimiter) hitRedis(ctx context.Context, key string) (int, time.Time, error) {
	if rl.client == nil {
		return 0, time.Time{}, fmt.Errorf("redis not configured")
	}
	ttlSeconds := int(rl.cfg.Window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := rateLimitScript.Run(ctx, rl.client, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}
	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), rl.now().Add(time.Duration(ttl) * time.Second), nil
}

func (rl *RateLimiter) hitLocal(key string) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.local[key]
	if !ok || now.After(entry.resetAt) {
		// Drop expired windows while we hold the lock.
		for k, e := range rl.local {
			if now.After(e.resetAt) {
				delete(rl.local, k)
			}
		}
		entry = &rateLimitEntry{resetAt: now.Add(rl.cfg.Window)}
		rl.local[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt
}
