package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MsgRateLimited is the body of a 429 response.
const MsgRateLimited = "Слишком много запросов."

var errNoLimiterStore = errors.New("rate limit store unavailable")

// Limit is a fixed-window quota of Max requests per Window, counted per
// caller under the bucket Name.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	// FailClosed answers 503 when Redis cannot be reached. The default lets
	// the request through.
	FailClosed bool
}

// Quota is the result of one counted request.
type Quota struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// rateLimitExempt lists the environments where quotas are not enforced.
func rateLimitExempt(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// Take counts one request by subject against l.
func (l Limit) Take(ctx context.Context, rdb *redis.Client, subject string) (Quota, error) {
	if rdb == nil {
		return Quota{}, errNoLimiterStore
	}
	key := fmt.Sprintf("rl:%s:%s", l.Name, subject)

	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	}); err != nil {
		return Quota{}, err
	}

	retry := ttl.Val()
	if retry <= 0 {
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			return Quota{}, err
		}
		retry = l.Window
	}

	n := int(count.Val())
	q := Quota{Allowed: n <= l.Max, Remaining: l.Max - n, RetryAfter: retry}
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	return q, nil
}

// RateLimit enforces l per authenticated user, or per client IP for
// anonymous callers. Quotas are skipped outside staging and production.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	if rateLimitExempt(os.Getenv("APP_ENV")) {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			subject = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		ctx := c.UserContext()
		q, err := l.Take(ctx, rdb, subject)
		if err != nil {
			if !l.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit store unavailable, rejecting",
				"limit", l.Name, "error", err)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(q.RetryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Errors: MsgRateLimited,
				Code:   "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
