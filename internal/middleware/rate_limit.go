package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/lanex-quiz-api/internal/utils"
)

// RateLimit throttles a route group per client. The Telegram id is the key when sent,
// otherwise the client IP.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + clientKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

func clientKey(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get("X-Telegram-Id")); id != "" {
		return "tg:" + id
	}
	return "ip:" + c.IP()
}
