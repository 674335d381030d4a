package luban

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
)

const (
	// SortByUpload orders uploads by when they were sent.
	SortByUpload = "upload"
	// SortByContent orders uploads by when the photo was taken.
	SortByContent = "content"
)

var (
	// ErrUploadCanceled is returned when the caller abandons an upload.
	ErrUploadCanceled = errors.New("上傳已取消")
	// ErrNetwork is returned when the upload webhook cannot be reached.
	ErrNetwork = errors.New("網絡錯誤")
)

// RejectedError is returned when the webhook answers without status "ok".
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// Photo is a single file relayed to the upload webhook.
type Photo struct {
	UserID      int64
	Date        time.Time
	FileName    string
	ContentType string
	Data        []byte
}

// ProgressFunc receives the number of request bytes written so far.
type ProgressFunc func(sent, total int64)

// Uploads lists the worker's uploads, ordered upstream by sort.
func (c *Client) Uploads(ctx context.Context, userID int64, sort string) ([]Upload, error) {
	if sort != SortByContent {
		sort = SortByUpload
	}
	var uploads []Upload
	target := c.endpoint("lb_upload", "u", strconv.FormatInt(userID, 10), sort)
	if err := c.getJSON(ctx, "list_uploads", target, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

// UploadPhoto posts one photo to the upload webhook as multipart form data
// with fields user_id, date, count and photo.
func (c *Client) UploadPhoto(ctx context.Context, photo Photo, progress ProgressFunc) error {
	body, contentType, err := encodePhoto(photo)
	if err != nil {
		return fmt.Errorf("upload_photo: %w", err)
	}

	total := int64(body.Len())
	reader := &progressReader{r: body, total: total, fn: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadHook, reader)
	if err != nil {
		return fmt.Errorf("upload_photo: build request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe("upload_photo", "error", start)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ErrUploadCanceled
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	observe("upload_photo", statusClass(resp.StatusCode), start)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if msg == "" {
			msg = "伺服器錯誤"
		}
		return &StatusError{Op: "upload_photo", StatusCode: resp.StatusCode, Message: msg, Body: string(raw)}
	}

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return ErrMalformedResponse
	}
	if result.Status != "ok" {
		msg := result.Message
		if msg == "" {
			msg = ErrInvalidResponse.Error()
		}
		return &RejectedError{Message: msg}
	}
	return nil
}

// UploadErrorMessage converts an UploadPhoto error into the text shown next to the file.
func UploadErrorMessage(err error) string {
	var (
		se *StatusError
		re *RejectedError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		return "伺服器錯誤"
	case errors.Is(err, ErrUploadCanceled), errors.Is(err, context.Canceled):
		return ErrUploadCanceled.Error()
	case errors.Is(err, ErrMalformedResponse):
		return ErrMalformedResponse.Error()
	default:
		return ErrNetwork.Error()
	}
}

func encodePhoto(photo Photo) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"user_id", strconv.FormatInt(photo.UserID, 10)},
		{"date", calendar.FormatISO(photo.Date)},
		{"count", "1"},
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, photo.FileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return nil, "", fmt.Errorf("write photo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
