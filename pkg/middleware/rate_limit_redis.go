package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsonstash/jsonstash/pkg/logger"
	"github.com/jsonstash/jsonstash/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware provides a coarse fixed-window Redis-backed limiter
// shared by every replica pointing at the same Redis.
// Algorithm: INCR a per-client, per-window key and compare against
// allowed = floor(rps*windowSeconds)+burst.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int(rps*float64(windowSeconds)) + burst
	return func(c *gin.Context) {
		bucket := time.Now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("rl:%s:%d", clientKey(c), bucket)

		ctx := c.Request.Context()
		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			logger.Errorf("rate limit: redis incr %s: %v", redisKey, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if int(cnt) > allowedPerWindow {
			c.Header("Retry-After", fmt.Sprintf("%d", windowSeconds))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
