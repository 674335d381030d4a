package checkin

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newHandlerApp(t *testing.T, userID int64) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/checkin/board", h.Board)
	app.Post("/checkin/:period/sites/:siteId/toggle", h.ToggleSite)
	app.Post("/checkin/:period/sites/:siteId/work-types/:workTypeId/toggle", h.ToggleWorkType)
	app.Post("/checkin/:period/submit", h.Submit)
	app.Get("/checkin/today", h.Today)
	return app, f
}

func call(t *testing.T, app *fiber.App, method, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandlerCheckInFlow(t *testing.T) {
	app, f := newHandlerApp(t, 7)

	status, body := call(t, app, fiber.MethodPost, "/checkin/am/submit")
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Contains(t, body, "請選擇至少一個地點進行簽到")

	status, _ = call(t, app, fiber.MethodPost, "/checkin/am/sites/1/toggle")
	require.Equal(t, fiber.StatusOK, status)
	status, body = call(t, app, fiber.MethodPost, "/checkin/am/submit")
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Contains(t, body, "氹仔工地")

	status, body = call(t, app, fiber.MethodPost, "/checkin/am/sites/1/work-types/10/toggle")
	require.Equal(t, fiber.StatusOK, status)
	var toggled struct {
		Selections Selections `json:"selections"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &toggled))
	require.Equal(t, Selections{{SiteID: 1, WorkTypes: []int64{10}}}, toggled.Selections)

	status, body = call(t, app, fiber.MethodPost, "/checkin/am/submit")
	require.Equal(t, fiber.StatusCreated, status, body)
	var res SubmitResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.Equal(t, 1, res.Count)
	require.Equal(t, "已成功在上午更簽到 1 個地點！", res.Message)

	status, _ = call(t, app, fiber.MethodPost, "/checkin/am/sites/2/work-types/11/toggle")
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, fiber.MethodPost, "/checkin/am/submit")
	require.Equal(t, fiber.StatusConflict, status)

	status, body = call(t, app, fiber.MethodGet, "/checkin/today")
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, `"site_name":"氹仔工地"`)
	require.Len(t, f.upstream.posted, 1)
}

func TestHandlerRejectsBadPaths(t *testing.T) {
	app, _ := newHandlerApp(t, 7)

	status, _ := call(t, app, fiber.MethodPost, "/checkin/noon/sites/1/toggle")
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, fiber.MethodPost, "/checkin/pm/sites/abc/toggle")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlerSubmitWithoutUser(t *testing.T) {
	app, _ := newHandlerApp(t, 0)

	status, _ := call(t, app, fiber.MethodPost, "/checkin/pm/sites/1/work-types/10/toggle")
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, fiber.MethodPost, "/checkin/pm/submit")
	require.Equal(t, fiber.StatusUnauthorized, status)
}
