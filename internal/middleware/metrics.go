package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/luban-do/lubando/internal/metrics"
)

// Metrics records request latency by method, route pattern and status.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		metrics.APILatency.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}
