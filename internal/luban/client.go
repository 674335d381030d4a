// Package luban talks to the third-party REST API (sites, work types, shifts,
// uploads, login) and the webhooks that send OTPs and receive photos.
package luban

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/metrics"
)

const maxResponseBytes = 4 << 20

var (
	// ErrInvalidResponse is returned when a response parses but lacks required fields.
	ErrInvalidResponse = errors.New("伺服器回應無效")
	// ErrMalformedResponse is returned when a response body is not valid JSON.
	ErrMalformedResponse = errors.New("伺服器回應格式錯誤")
	// ErrMissingShiftID is returned when shift creation does not echo an id.
	ErrMissingShiftID = errors.New("無法獲取簽到記錄ID")
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Config lists the upstream endpoints.
type Config struct {
	APIURL             string
	OTPWebhookURL      string
	UploadWebhookURL   string
	DevotionalAPIURL   string
	QuoteAPIURL        string
	ShiftLookupTimeout time.Duration
}

// Client is the upstream API client.
type Client struct {
	http         Doer
	api          *url.URL
	otpWebhook   *url.URL
	uploadHook   string
	devotional   *url.URL
	quoteURL     string
	shiftTimeout time.Duration
	logger       *slog.Logger
}

// NewClient validates the configured URLs and builds a Client.
func NewClient(doer Doer, cfg Config, logger *slog.Logger) (*Client, error) {
	if doer == nil {
		return nil, errors.New("luban: http client is required")
	}
	api, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("luban: parse api url: %w", err)
	}
	otp, err := url.Parse(cfg.OTPWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("luban: parse otp webhook url: %w", err)
	}
	devotional, err := url.Parse(cfg.DevotionalAPIURL)
	if err != nil {
		return nil, fmt.Errorf("luban: parse devotional url: %w", err)
	}
	timeout := cfg.ShiftLookupTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:         doer,
		api:          api,
		otpWebhook:   otp,
		uploadHook:   cfg.UploadWebhookURL,
		devotional:   devotional,
		quoteURL:     cfg.QuoteAPIURL,
		shiftTimeout: timeout,
		logger:       logging.Component(logger, "luban"),
	}, nil
}

func (c *Client) endpoint(elem ...string) string {
	return c.api.JoinPath(elem...).String()
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, op, out)
}

// postJSON encodes payload as the request body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, op, target string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observe(op, "error", start)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	observe(op, statusClass(resp.StatusCode), start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    messageFrom(body),
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

func observe(op, status string, start time.Time) {
	metrics.UpstreamRequests.WithLabelValues(op, status).Inc()
	metrics.UpstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// messageFrom extracts the "message" field that the API attaches to errors.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// idValue sends numeric ids as JSON numbers and anything else verbatim.
func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
