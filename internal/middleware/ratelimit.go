package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SubmissionRateLimit limits verification submissions per document number
// or IP using Redis when available. The census endpoint is a scarce
// external resource, so repeated attempts are throttled before they ever
// reach the remote.
func SubmissionRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			DocumentNumber string `json:"document_number"`
		}
		_ = c.BodyParser(&req)
		key := strings.ToUpper(strings.TrimSpace(req.DocumentNumber))
		if key == "" {
			key = c.IP()
		}
		rlKey := "rl:verify:" + key
		cnt, err := cache.Incr(c.UserContext(), rlKey).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), rlKey, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many verification attempts, try again later")
		}
		return c.Next()
	}
}
