package auth

import (
	"strconv"

	"printshop-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const defaultLoginRate = "10-M"

// LoginRateLimiter throttles login attempts per client IP. format follows
// limiter's "<limit>-<period>" syntax; an invalid value falls back to 10-M.
func LoginRateLimiter(format string) fiber.Handler {
	rate, err := limiter.NewRateFromFormatted(format)
	if err != nil {
		logger.LogError("auth", "LoginRateLimiter", "invalid LOGIN_RATE_LIMIT, using default", format, err)
		rate, _ = limiter.NewRateFromFormatted(defaultLoginRate)
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *fiber.Ctx) error {
		lc, err := instance.Get(c.UserContext(), c.IP())
		if err != nil {
			logger.LogError("auth", "LoginRateLimiter", "limiter store failed", c.IP(), err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many login attempts, try again later")
		}
		return c.Next()
	}
}
