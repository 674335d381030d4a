package middleware

import (
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/redis/go-redis/v9"

    "github.com/luban-do/lubando/internal/auth"
)

// RateLimitConfig describes a fixed-window limiter.
type RateLimitConfig struct {
    Name    string
    Max     int
    Window  time.Duration
    Message string
    // Key picks the bucket for a request; defaults to the client IP.
    Key func(c *fiber.Ctx) string
}

// RateLimit counts requests per key in Redis and rejects the excess with 429.
// It is a no-op without Redis and fails open on cache errors.
func RateLimit(cache *redis.Client, cfg RateLimitConfig) fiber.Handler {
    if cfg.Max <= 0 {
        cfg.Max = 5
    }
    if cfg.Window <= 0 {
        cfg.Window = time.Minute
    }
    if cfg.Key == nil {
        cfg.Key = func(c *fiber.Ctx) string { return c.IP() }
    }
    if cfg.Message == "" {
        cfg.Message = "請求過於頻繁，請稍後再試"
    }
    return func(c *fiber.Ctx) error {
        if cache == nil {
            return c.Next()
        }
        key := "rl:" + cfg.Name + ":" + cfg.Key(c)
        cnt, err := cache.Incr(c.UserContext(), key).Result()
        if err != nil {
            return c.Next()
        }
        if cnt == 1 {
            cache.Expire(c.UserContext(), key, cfg.Window)
        }
        if cnt > int64(cfg.Max) {
            return fiber.NewError(http.StatusTooManyRequests, cfg.Message)
        }
        return c.Next()
    }
}

// PhoneOrIP keys login limits by the phone in the JSON body, falling back to the IP.
func PhoneOrIP(c *fiber.Ctx) string {
    var req struct {
        CountryCode string `json:"country_code"`
        Phone       string `json:"phone"`
    }
    _ = c.BodyParser(&req)
    code, phone := auth.CanonicalPhone(req.CountryCode, req.Phone)
    if phone == "" {
        return c.IP()
    }
    return code + ":" + phone
}
