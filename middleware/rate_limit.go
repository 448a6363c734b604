package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"arcadia/game"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit throttles write endpoints per caller using a redis counter with
// a rolling window. Redis being unreachable does not block requests; the
// limiter only enforces when it can count.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.ClientIP()
		if userID, exists := c.Get("user_id"); exists {
			caller = fmt.Sprintf("user:%v", userID)
		}

		key := fmt.Sprintf("ratelimit:%s:%s", caller, c.FullPath())
		ctx := context.Background()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("Rate limiter unavailable, letting request through: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": game.ErrRateLimited.Error(), "code": "rate_limited"})
			return
		}

		c.Next()
	}
}
