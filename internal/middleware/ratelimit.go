package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns an Echo middleware implementing a fixed-window
// counter in Redis: at most limit requests per window per client IP and
// route.  A nil Redis client disables limiting, and Redis errors fail
// open so a cache outage never takes the booking surface down with it.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			slot := time.Now().Unix() / int64(window/time.Second)
			key := fmt.Sprintf("rl:%s:%s:%d", ip, c.Path(), slot)

			ctx := c.Request().Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				_ = rdb.Expire(ctx, key, window).Err()
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			remaining := int64(limit) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(limit) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window/time.Second)))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
