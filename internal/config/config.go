package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "魯班到"
	defaultAppEnv           = "development"
	defaultBrand            = "百泰工程"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultTimezone         = "Asia/Macau"
	defaultDevSessionSecret = "lubando-dev-session-secret"
	defaultMaxUploadBytes   = 25 << 20

	defaultLubanAPIURL      = "https://api.bricks.academy/api:luban"
	defaultOTPWebhookURL    = "https://hook.eu1.make.com/t4vvls9fo176rcms0q311r6gfcgc7jdi"
	defaultUploadWebhookURL = "https://hook.eu1.make.com/mlsygo8a8mp8dsnv7cwj0p8sg2q6e8sq"
	defaultImageBaseURL     = "https://churchnas.com/luban.do/"
	defaultDevotionalAPIURL = "https://api.bricks.academy/api:LiYwyfiE"
	defaultQuoteAPIURL      = "https://api.bricks.academy/api:pBBmgbb7/v1"
	defaultWarmSchedule     = "5 0 * * *"

	envFile = ".env"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Brand          string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	Timezone       string
	CookieSecure   bool
	MaxUploadBytes int64

	SessionSecret     string
	SessionTTL        time.Duration
	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int

	LubanAPIURL        string
	OTPWebhookURL      string
	UploadWebhookURL   string
	ImageBaseURL       string
	DevotionalAPIURL   string
	QuoteAPIURL        string
	UpstreamTimeout    time.Duration
	ShiftLookupTimeout time.Duration

	FlashTTL      time.Duration
	FlashErrorTTL time.Duration

	DevotionalCacheTTL     time.Duration
	DevotionalWarmSchedule string
}

type durationVar struct {
	name     string
	fallback time.Duration
	dst      *time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
// Values from a .env file in the working directory fill in anything not already set.
func Load() (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                getEnv("APP_NAME", defaultAppName),
		AppEnv:                 getEnv("APP_ENV", defaultAppEnv),
		Brand:                  getEnv("APP_BRAND", defaultBrand),
		Port:                   getEnv("PORT", defaultPort),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		Timezone:               getEnv("TIMEZONE", defaultTimezone),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		LubanAPIURL:            strings.TrimRight(getEnv("LUBAN_API_URL", defaultLubanAPIURL), "/"),
		OTPWebhookURL:          getEnv("OTP_WEBHOOK_URL", defaultOTPWebhookURL),
		UploadWebhookURL:       getEnv("UPLOAD_WEBHOOK_URL", defaultUploadWebhookURL),
		ImageBaseURL:           getEnv("IMAGE_BASE_URL", defaultImageBaseURL),
		DevotionalAPIURL:       strings.TrimRight(getEnv("DEVOTIONAL_API_URL", defaultDevotionalAPIURL), "/"),
		QuoteAPIURL:            getEnv("QUOTE_API_URL", defaultQuoteAPIURL),
		DevotionalWarmSchedule: getEnv("DEVOTIONAL_WARM_SCHEDULE", defaultWarmSchedule),
	}

	durations := []durationVar{
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", 24 * time.Hour, &cfg.IdempotencyTTL},
		{"SESSION_TTL", 24 * time.Hour, &cfg.SessionTTL},
		{"OTP_TTL", 10 * time.Minute, &cfg.OTPTTL},
		{"OTP_RESEND_COOLDOWN", 60 * time.Second, &cfg.OTPResendCooldown},
		{"UPSTREAM_TIMEOUT", 15 * time.Second, &cfg.UpstreamTimeout},
		{"SHIFT_LOOKUP_TIMEOUT", 5 * time.Second, &cfg.ShiftLookupTimeout},
		{"FLASH_TTL", 3 * time.Second, &cfg.FlashTTL},
		{"FLASH_ERROR_TTL", 5 * time.Second, &cfg.FlashErrorTTL},
		{"DEVOTIONAL_CACHE_TTL", 6 * time.Hour, &cfg.DevotionalCacheTTL},
	}
	for _, dv := range durations {
		d, err := durationEnv(dv.name, dv.fallback)
		if err != nil {
			return Config{}, err
		}
		*dv.dst = d
	}

	attempts, err := intEnv("OTP_MAX_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.OTPMaxAttempts = attempts

	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.CookieSecure = !cfg.IsDev()
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = secure
	}

	if cfg.IsDev() {
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = defaultDevSessionSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where
// Postgres and Redis are optional and in-memory stores are used instead.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Location resolves the configured timezone. Calendar dates (check-in days,
// upload dates, devotional days) are computed in this location.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func loadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// durationEnv reads NAME_SECONDS as an integer first, then NAME as a Go duration.
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	secondsVar := name + "_SECONDS"
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
