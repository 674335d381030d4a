package server

import (
    "context"
    "errors"
    "log/slog"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/luban-do/lubando/internal/config"
    "github.com/luban-do/lubando/internal/luban"
    "github.com/luban-do/lubando/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
    app        *fiber.App
    cfg        config.Config
    background *routes.Background
    logger     *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// A nil upstream HTTP client uses the configured upstream timeout.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, upstream luban.Doer, logger *slog.Logger) (*Server, error) {
    app := fiber.New(fiber.Config{
        AppName:      cfg.AppName,
        ReadTimeout:  30 * time.Second,
        WriteTimeout: 2 * time.Minute,
        BodyLimit:    bodyLimit(cfg.MaxUploadBytes),
        ErrorHandler: ErrorHandler(logger),
    })

    bg, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, HTTP: upstream})
    if err != nil {
        return nil, err
    }

    return &Server{app: app, cfg: cfg, background: bg, logger: logger}, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
    return s.app
}

// Listen starts background jobs and the HTTP server.
func (s *Server) Listen() error {
    s.background.Start()
    return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, then background work.
func (s *Server) Shutdown(ctx context.Context) error {
    if err := s.app.ShutdownWithContext(ctx); err != nil {
        return err
    }
    return s.background.Shutdown(ctx)
}

// ErrorHandler renders errors as {"error": message}. Unexpected errors are
// logged and hidden behind a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
    return func(c *fiber.Ctx, err error) error {
        code := fiber.StatusInternalServerError
        msg := "伺服器錯誤"
        var fe *fiber.Error
        if errors.As(err, &fe) {
            code = fe.Code
            msg = fe.Message
        } else {
            logger.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
        }
        return c.Status(code).JSON(fiber.Map{"error": msg})
    }
}

func bodyLimit(maxUpload int64) int {
    // Room for a handful of photos per batch plus multipart overhead.
    limit := maxUpload*10 + 1<<20
    if limit <= 0 || limit > 1<<30 {
        return 1 << 30
    }
    return int(limit)
}
