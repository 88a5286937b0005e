package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ProfileRateLimit limits mutating pool operations per profile (not per IP),
// Redis-backed when available. Requires the JWT middleware to run first.
func ProfileRateLimit(maxOps int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileIDVal, exists := c.Get("profile_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		profileID, ok := profileIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid profile"})
			return
		}

		key := "pool_rl:" + strconv.FormatInt(profileID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)

		overLimit := false
		if redisClient == nil {
			overLimit = !memLimiter.allow(key, maxOps, window)
		} else {
			ctx := context.Background()
			val, err := redisClient.Incr(ctx, key).Result()
			if err != nil {
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			if val == 1 {
				redisClient.Expire(ctx, key, window)
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(maxOps))
			remaining := int64(maxOps) - val
			if remaining < 0 {
				remaining = 0
			}
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			overLimit = val > int64(maxOps)
		}

		if overLimit {
			RLBlocked.WithLabelValues("pool:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("pool:" + c.FullPath()).Inc()
		c.Next()
	}
}
