package upload

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newUploadApp(t *testing.T, svc *Service, userID int64) *fiber.App {
	t.Helper()
	h := NewHandler(svc, 1<<20)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/uploads", h.Create)
	app.Get("/uploads/batches/:id", h.Batch)
	app.Get("/uploads", h.Day)
	app.Get("/uploads/month", h.Month)
	app.Post("/uploads/preview", h.Preview)
	return app
}

func multipartBody(t *testing.T, date string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if date != "" {
		require.NoError(t, w.WriteField("date", date))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("photo", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestCreateBatchOverHTTP(t *testing.T) {
	up := &fakeUpstream{}
	svc, _ := newTestService(up)
	app := newUploadApp(t, svc, 7)

	body, ct := multipartBody(t, "2026-10-17", map[string][]byte{"a.jpg": []byte("aaaa")})
	req := httptest.NewRequest(fiber.MethodPost, "/uploads", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var batch Batch
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	resp.Body.Close()
	require.Equal(t, "2026-10-17", batch.Date)
	require.Len(t, batch.Files, 1)
	svc.wg.Wait()

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/uploads/batches/"+batch.ID, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batch))
	resp.Body.Close()
	require.Equal(t, BatchDone, batch.State)
	require.Equal(t, "成功上傳 1 張照片", batch.Message)

	other := newUploadApp(t, svc, 8)
	resp, err = other.Test(httptest.NewRequest(fiber.MethodGet, "/uploads/batches/"+batch.ID, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateWithoutFiles(t *testing.T) {
	svc, _ := newTestService(&fakeUpstream{})
	app := newUploadApp(t, svc, 7)

	body, ct := multipartBody(t, "", nil)
	req := httptest.NewRequest(fiber.MethodPost, "/uploads", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	msg, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(msg), "沒有待上傳的文件")
}

func TestGalleryEndpoints(t *testing.T) {
	svc, _ := newTestService(&fakeUpstream{uploads: galleryFixture()})
	app := newUploadApp(t, svc, 7)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/uploads?date=2026-10-19&sort=content", nil))
	require.NoError(t, err)
	var day struct {
		Date  string `json:"date"`
		Items []Item `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&day))
	require.Len(t, day.Items, 2)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/uploads/month?year=2026&month=13", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPreviewEndpoint(t *testing.T) {
	svc, _ := newTestService(&fakeUpstream{})
	app := newUploadApp(t, svc, 7)

	body, ct := multipartBody(t, "", map[string][]byte{"big.png": pngOf(t, 640, 480)})
	req := httptest.NewRequest(fiber.MethodPost, "/uploads/preview", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "image/jpeg", resp.Header.Get(fiber.HeaderContentType))
}
