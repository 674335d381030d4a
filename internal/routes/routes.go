package routes

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/logger"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "github.com/luban-do/lubando/internal/account"
    "github.com/luban-do/lubando/internal/auth"
    "github.com/luban-do/lubando/internal/checkin"
    "github.com/luban-do/lubando/internal/config"
    "github.com/luban-do/lubando/internal/devotional"
    "github.com/luban-do/lubando/internal/identity"
    "github.com/luban-do/lubando/internal/luban"
    "github.com/luban-do/lubando/internal/middleware"
    "github.com/luban-do/lubando/internal/notification"
    "github.com/luban-do/lubando/internal/upload"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg    config.Config
    DB     *pgxpool.Pool
    Cache  *redis.Client
    Logger *slog.Logger
    // HTTP carries upstream calls; defaults to a client with Cfg.UpstreamTimeout.
    HTTP luban.Doer
}

// Background holds the components that outlive a single request.
type Background struct {
    uploads *upload.Service
    warmer  *devotional.Warmer
}

// Start launches scheduled jobs.
func (b *Background) Start() {
    if b.warmer != nil {
        b.warmer.Start()
    }
}

// Shutdown stops scheduled jobs and waits for running upload batches.
func (b *Background) Shutdown(ctx context.Context) error {
    if b.warmer != nil {
        b.warmer.Stop(ctx)
    }
    if b.uploads != nil {
        return b.uploads.Shutdown(ctx)
    }
    return nil
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Background, error) {
    // Enforce DB/Redis presence outside of dev, even though main also checks.
    if !d.Cfg.IsDev() {
        if d.DB == nil {
            return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
        if d.Cache == nil {
            return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
        }
    }
    loc, err := d.Cfg.Location()
    if err != nil {
        d.Logger.Warn("unknown timezone, using UTC", "timezone", d.Cfg.Timezone, "error", err)
    }

    // Middlewares
    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.Metrics())
    if d.Cfg.IsDev() {
        // Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
        app.Use(logger.New(logger.Config{
            Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
            TimeFormat: "15:04:05",
            TimeZone:   "Local",
        }))
    } else {
        app.Use(middleware.Audit(d.Logger))
    }

    RegisterHealthRoutes(app, d)

    // Upstream
    doer := d.HTTP
    if doer == nil {
        doer = &http.Client{Timeout: d.Cfg.UpstreamTimeout}
    }
    upstream, err := luban.NewClient(doer, luban.Config{
        APIURL:             d.Cfg.LubanAPIURL,
        OTPWebhookURL:      d.Cfg.OTPWebhookURL,
        UploadWebhookURL:   d.Cfg.UploadWebhookURL,
        DevotionalAPIURL:   d.Cfg.DevotionalAPIURL,
        QuoteAPIURL:        d.Cfg.QuoteAPIURL,
        ShiftLookupTimeout: d.Cfg.ShiftLookupTimeout,
    }, d.Logger)
    if err != nil {
        return nil, err
    }

    // Storage: Postgres/Redis when configured, memory otherwise (dev only).
    var (
        identityRepo identity.Repository
        checkinRepo  checkin.Repository
        sessions     auth.SessionStore
        pending      auth.VerificationStore
        selections   checkin.SelectionStore
        flashes      notification.Flashes
        devCache     devotional.Cache
    )
    if d.DB != nil {
        identityRepo = identity.NewPostgresRepository(d.DB)
        checkinRepo = checkin.NewPostgresRepository(d.DB)
    } else {
        identityRepo = identity.NewMemoryRepository()
        checkinRepo = checkin.NewMemoryRepository()
    }
    flashTTLs := notification.TTLs{Success: d.Cfg.FlashTTL, Error: d.Cfg.FlashErrorTTL}
    if d.Cache != nil {
        store := auth.NewRedisStore(d.Cache)
        sessions, pending = store, store
        selections = checkin.NewRedisSelectionStore(d.Cache)
        flashes = notification.NewRedisFlashes(d.Cache, flashTTLs, d.Logger)
        devCache = devotional.NewRedisCache(d.Cache)
    } else {
        store := auth.NewMemoryStore()
        sessions, pending = store, store
        selections = checkin.NewMemorySelectionStore()
        flashes = notification.NewMemoryFlashes(flashTTLs, d.Logger)
        devCache = devotional.NewMemoryCache()
    }

    // Services and handlers
    identitySvc := identity.NewService(identityRepo)
    tokens, err := auth.NewTokens(d.Cfg.SessionSecret, d.Cfg.AppName)
    if err != nil {
        return nil, err
    }
    authSvc := auth.NewService(upstream, identitySvc, sessions, pending, tokens, auth.Options{
        SessionTTL:     d.Cfg.SessionTTL,
        OTPTTL:         d.Cfg.OTPTTL,
        ResendCooldown: d.Cfg.OTPResendCooldown,
        MaxAttempts:    d.Cfg.OTPMaxAttempts,
    }, d.Logger)
    checkinSvc := checkin.NewService(upstream, selections, checkinRepo, flashes, loc, d.Logger)
    uploadSvc := upload.NewService(upstream, flashes, d.Cfg.ImageBaseURL, loc, d.Logger)
    devotionalSvc := devotional.NewService(upstream, devCache, d.Cfg.DevotionalCacheTTL, loc, d.Logger)
    accountSvc := account.NewService(d.Cfg.Brand, identitySvc, checkinSvc, uploadSvc, loc, d.Logger)

    bg := &Background{uploads: uploadSvc}
    if d.Cfg.DevotionalWarmSchedule != "" {
        bg.warmer, err = devotional.NewWarmer(devotionalSvc, d.Cfg.DevotionalWarmSchedule, d.Cfg.UpstreamTimeout*3, d.Logger)
        if err != nil {
            return nil, fmt.Errorf("devotional warm schedule: %w", err)
        }
    }

    // API routes
    api := app.Group("/api/v1")
    api.Get("/ping", func(c *fiber.Ctx) error {
        return c.Status(http.StatusOK).JSON(fiber.Map{
            "status":     "ok",
            "request_id": middleware.RequestIDFrom(c),
            "timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    // Public routes
    rateLimiter := middleware.RateLimit(d.Cache, middleware.RateLimitConfig{
        Name:   "login",
        Max:    5,
        Window: time.Minute,
        Key:    middleware.PhoneOrIP,
    })
    RegisterAuthRoutes(api, auth.NewHandler(authSvc, d.Cfg.CookieSecure), rateLimiter)

    // Protected routes
    protected := api.Group("", middleware.SessionAuth(authSvc))
    idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
    protected.Get("/me", func(c *fiber.Ctx) error {
        session, _ := c.Locals("session").(auth.Session)
        user, err := identitySvc.Get(c.UserContext(), session.UserID)
        if errors.Is(err, identity.ErrNotFound) {
            user = identity.User{ID: session.UserID, Phone: session.Phone, CountryCode: session.CountryCode}
        } else if err != nil {
            return fiber.NewError(http.StatusInternalServerError, err.Error())
        }
        return c.JSON(fiber.Map{
            "user_id":      user.ID,
            "display_name": user.DisplayName(),
            "phone":        session.Phone,
            "country_code": session.CountryCode,
            "expires_at":   session.ExpiresAt,
            "last_login":   user.LastLogin,
        })
    })
    protected.Get("/flash", func(c *fiber.Ctx) error {
        uid, _ := c.Locals("user_id").(int64)
        msg, ok, err := flashes.Pop(c.UserContext(), uid)
        if err != nil {
            return fiber.NewError(http.StatusInternalServerError, err.Error())
        }
        if !ok {
            return c.SendStatus(http.StatusNoContent)
        }
        return c.JSON(msg)
    })
    RegisterCheckinRoutes(protected, checkin.NewHandler(checkinSvc), idem)
    RegisterUploadRoutes(protected, upload.NewHandler(uploadSvc, d.Cfg.MaxUploadBytes), idem)
    RegisterAccountRoutes(protected, account.NewHandler(accountSvc))
    RegisterDevotionalRoutes(protected, devotional.NewHandler(devotionalSvc))

    return bg, nil
}
