package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/luban-do/lubando/internal/logging"
)

type idempotencyApp struct {
	app   *fiber.App
	calls int
	fail  bool
}

func setupTestApp(t *testing.T) (*idempotencyApp, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ia := &idempotencyApp{app: fiber.New()}
	ia.app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid == "8" {
			c.Locals(userIDKey, int64(8))
		} else {
			c.Locals(userIDKey, int64(7))
		}
		return c.Next()
	})
	ia.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ia.app.Post("/checkin/am/submit", func(c *fiber.Ctx) error {
		ia.calls++
		if ia.fail {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": ia.calls})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return ia, cleanup
}

func post(t *testing.T, app *fiber.App, key, user string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/checkin/am/submit", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	ia, cleanup := setupTestApp(t)
	defer cleanup()

	if status, _ := post(t, ia.app, "", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	ia, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := post(t, ia.app, "abc123", "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// The retry replays the stored response without running the handler.
	status, cached := post(t, ia.app, "abc123", "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if ia.calls != 1 {
		t.Fatalf("handler ran %d times", ia.calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedPerWorker(t *testing.T) {
	ia, cleanup := setupTestApp(t)
	defer cleanup()

	post(t, ia.app, "same-key", "7")
	post(t, ia.app, "same-key", "8")
	if ia.calls != 2 {
		t.Fatalf("expected separate executions per worker, got %d", ia.calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	ia, cleanup := setupTestApp(t)
	defer cleanup()

	ia.fail = true
	if status, _ := post(t, ia.app, "retry-me", ""); status != fiber.StatusBadGateway {
		t.Fatalf("expected 502 got %d", status)
	}
	ia.fail = false
	if status, _ := post(t, ia.app, "retry-me", ""); status != fiber.StatusCreated {
		t.Fatalf("expected retry to run, got %d", status)
	}
	if ia.calls != 2 {
		t.Fatalf("expected two executions, got %d", ia.calls)
	}
}
