package routes

import (
    "context"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/adaptor"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

type manifestIcon struct {
    Src   string `json:"src"`
    Sizes string `json:"sizes"`
    Type  string `json:"type"`
}

// RegisterHealthRoutes adds the liveness probe, Prometheus scrape endpoint
// and the web app manifest.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
    app.Get("/healthz", func(c *fiber.Ctx) error {
        dbStatus := "ok"
        redisStatus := "ok"

        ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
        defer cancel()
        if d.DB != nil {
            if err := d.DB.Ping(ctx); err != nil {
                dbStatus = err.Error()
            }
        } else {
            dbStatus = "memory"
        }
        if d.Cache != nil {
            if err := d.Cache.Ping(ctx).Err(); err != nil {
                redisStatus = err.Error()
            }
        } else {
            redisStatus = "memory"
        }
        status := http.StatusOK
        if (dbStatus != "ok" && dbStatus != "memory") || (redisStatus != "ok" && redisStatus != "memory") {
            status = http.StatusServiceUnavailable
        }
        return c.Status(status).JSON(fiber.Map{
            "status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
            "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

    app.Get("/manifest.webmanifest", func(c *fiber.Ctx) error {
        return c.JSON(fiber.Map{
            "name":             d.Cfg.AppName,
            "short_name":       d.Cfg.AppName,
            "description":      "Check in at nearby locations",
            "start_url":        "/",
            "display":          "standalone",
            "background_color": "#ffffff",
            "theme_color":      "#000000",
            "orientation":      "portrait",
            "icons": []manifestIcon{
                {Src: "/icon-192x192.png", Sizes: "192x192", Type: "image/png"},
                {Src: "/icon-512x512.png", Sizes: "512x512", Type: "image/png"},
            },
        }, "application/manifest+json")
    })
}
