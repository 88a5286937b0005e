package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	memLimiter  = newMemoryLimiter()
)

// InitRedisRateLimiter initializes the shared Redis client used by all rate
// limiting middleware. With an empty addr, or when the ping fails, the
// limiters fall back to the in-memory counter.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// keep the server available without redis
		redisClient = nil
	}
}

// RedisRateLimit limits requests per client IP with a fixed window,
// backed by Redis INCR/EXPIRE when available.
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl_ip:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()

		overLimit := false
		if redisClient == nil {
			overLimit = !memLimiter.allow(key, maxRequests, window)
		} else {
			ctx := context.Background()
			val, err := redisClient.Incr(ctx, key).Result()
			if err != nil {
				// redis down mid-flight: fail-open but make it observable
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			if val == 1 {
				redisClient.Expire(ctx, key, window)
			}
			overLimit = val > int64(maxRequests)
		}

		if overLimit {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
