package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// Token bucket kept in a Redis hash {last_refill, tokens}; timestamps in milliseconds.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill) / 1000
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, ttl)
	return allowed
`)

const (
	// redisTimeout bounds one script call so a slow Redis cannot stall requests.
	redisTimeout = 100 * time.Millisecond
	// redisCooldown is how long Redis is skipped after a failed call.
	redisCooldown = 5 * time.Second
	// sweepInterval is the minimum gap between scans for idle local buckets.
	sweepInterval = time.Minute
)

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket. Buckets live in Redis when a client
// is configured so every replica shares them; otherwise, or while Redis is
// unreachable, each process keeps its own buckets.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time

	mu             sync.Mutex
	local          map[string]*localBucket
	lastSweep      time.Time
	redisDownUntil time.Time
}

// NewRateLimiter creates a new rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
		log:    log,
		now:    time.Now,
		local:  make(map[string]*localBucket),
	}
}

// Allow reports whether one more request may pass for key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if !rl.config.Enabled {
		return true
	}

	if rl.client != nil && rl.redisUsable() {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		rl.markRedisDown()
		rl.log.Warn("rate limiter redis error, using local buckets",
			zap.String("key", key),
			zap.Duration("cooldown", redisCooldown),
			zap.Error(err),
		)
	}

	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	// Long enough for an empty bucket to refill completely.
	ttl := int(math.Ceil(float64(rl.config.BurstCapacity)/rl.config.RequestsPerSecond)) + 1

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	allowed, err := tokenBucket.Run(ctx, rl.client, []string{key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		rl.now().UnixMilli(),
		ttl,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("run token bucket script: %w", err)
	}
	return allowed == 1, nil
}

func (rl *RateLimiter) redisUsable() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return !rl.now().Before(rl.redisDownUntil)
}

func (rl *RateLimiter) markRedisDown() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.redisDownUntil = rl.now().Add(redisCooldown)
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweepLocked(now)
	}

	b, ok := rl.local[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstCapacity)}
		rl.local[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// sweepLocked drops buckets idle long enough to have refilled; a fresh bucket
// behaves the same. Callers hold rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	refill := time.Duration(float64(rl.config.BurstCapacity) / rl.config.RequestsPerSecond * float64(time.Second))
	for key, b := range rl.local {
		if now.Sub(b.lastSeen) >= refill {
			delete(rl.local, key)
		}
	}
	rl.lastSweep = now
}

// RateLimit returns a Gin middleware that answers 429 once a client's bucket is empty.
// Buckets are keyed by method, route template and client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !limiter.config.Enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, c.ClientIP())

		if !limiter.Allow(c.Request.Context(), key) {
			rateLimitedTotal.WithLabelValues(routeLabel(c), c.Request.Method).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)",
					limiter.config.RequestsPerSecond, limiter.config.BurstCapacity),
			})
			return
		}

		c.Next()
	}
}
