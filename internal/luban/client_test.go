package luban

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luban-do/lubando/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.Client(), Config{
		APIURL:             srv.URL + "/api:luban",
		OTPWebhookURL:      srv.URL + "/hook/otp",
		UploadWebhookURL:   srv.URL + "/hook/upload",
		DevotionalAPIURL:   srv.URL + "/api:od",
		QuoteAPIURL:        srv.URL + "/api:quote/v1",
		ShiftLookupTimeout: time.Second,
	}, logging.Discard())
	require.NoError(t, err)
	return client
}

func TestRequestOTPAcceptsNumericIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hook/otp", r.URL.Path)
		require.Equal(t, "853", r.URL.Query().Get("country"))
		require.Equal(t, "66123456", r.URL.Query().Get("number"))
		_, _ = io.WriteString(w, `{"user_id": 42, "otp": "1234"}`)
	})

	challenge, err := client.RequestOTP(context.Background(), "853", "66123456")
	require.NoError(t, err)
	require.Equal(t, Challenge{UserID: "42", OTP: "1234"}, challenge)
}

func TestRequestOTPRejectsIncompleteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": "42"}`)
	})

	_, err := client.RequestOTP(context.Background(), "853", "66123456")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api:luban/auth/login", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["otp"] != "1234" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message": "OTP expired"}`)
			return
		}
		require.EqualValues(t, 42, body["id"])
		_, _ = io.WriteString(w, `{"authToken":"tok","user":[{"id":42,"firstname":"Wing","lastname":"Chan","nickname":"阿榮","country":"853","number":"66123456"}]}`)
	})

	res, err := client.Login(context.Background(), "42", "1234")
	require.NoError(t, err)
	require.Equal(t, "tok", res.AuthToken)
	require.NotNil(t, res.User)
	require.Equal(t, "阿榮", res.User.Nickname)

	_, err = client.Login(context.Background(), "42", "9999")
	require.Error(t, err)
	require.Equal(t, "OTP expired", LoginFailureMessage(err))
}

func TestShiftsFallsBackToSlashDate(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "2026-10-19") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `[{"id":9,"date":"2026/10/19","shift":"am","lb_user_id":7,"created_at":1760832000000,
			"_lb_shift_site_of_lb_shift":[
				{"id":1,"lb_shift_id":9,"lb_site_id":3,"lb_worktype_id":[{"id":5,"name":"泥水"},{"id":6}],"_lb_site":{"id":3,"name":"氹仔工地"}},
				{"id":2,"lb_shift_id":9,"lb_site_id":4,"lb_worktype_id":[7]}
			]}]`)
	})

	day := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	shifts := client.Shifts(context.Background(), 7, day)
	require.Len(t, shifts, 1)
	require.Equal(t, []string{
		"/api:luban/lb_shift/r/7/2026-10-19/2026-10-19",
		"/api:luban/lb_shift/r/7/2026/10/19/2026/10/19",
	}, paths)

	sites := shifts[0].Sites
	require.Len(t, sites, 2)
	require.Equal(t, WorkTypeIDs{5, 6}, sites[0].WorkTypes)
	require.Equal(t, "氹仔工地", sites[0].SiteName())
	require.Equal(t, WorkTypeIDs{7}, sites[1].WorkTypes)
	require.Equal(t, UnknownSite, sites[1].SiteName())
}

func TestShiftsReturnsEmptyWhenLookupFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	shifts := client.Shifts(context.Background(), 7, time.Now())
	require.NotNil(t, shifts)
	require.Empty(t, shifts)
}

func TestShiftsGivesUpOnTimeoutWithoutFallback(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		select {
		case <-release:
		case <-time.After(3 * time.Second):
		}
		_, _ = io.WriteString(w, `[]`)
	})
	t.Cleanup(func() { close(release) })

	start := time.Now()
	shifts := client.Shifts(context.Background(), 7, time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC))
	elapsed := time.Since(start)

	require.NotNil(t, shifts)
	require.Empty(t, shifts)
	require.Less(t, elapsed, 1900*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/api:luban/lb_shift/r/7/2026-10-19/2026-10-19"}, paths)
}

func TestCreateShiftRequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "2026/10/19", body["date"])
		require.Equal(t, "pm", body["shift"])
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := client.CreateShift(context.Background(), ShiftInput{
		UserID: 7,
		Date:   time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC),
		Period: "pm",
	})
	require.ErrorIs(t, err, ErrMissingShiftID)
}

func TestCreateShiftSiteReportsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `bad site`)
	})

	err := client.CreateShiftSite(context.Background(), ShiftSiteInput{ShiftID: 1, SiteID: 2})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.Contains(t, err.Error(), "bad site")
}

func TestUploadPhotoSendsMultipartFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hook/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "7", r.FormValue("user_id"))
		require.Equal(t, "2026-10-19", r.FormValue("date"))
		require.Equal(t, "1", r.FormValue("count"))
		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "site.jpg", header.Filename)
		data, _ := io.ReadAll(file)
		require.Equal(t, "jpeg-bytes", string(data))
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	var sent, total int64
	err := client.UploadPhoto(context.Background(), Photo{
		UserID:      7,
		Date:        time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC),
		FileName:    "site.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
	}, func(s, t int64) { sent, total = s, t })
	require.NoError(t, err)
	require.Positive(t, total)
	require.Equal(t, total, sent)
}

func TestUploadErrorMessages(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"rejected with message", http.StatusOK, `{"status":"error","message":"檔案太大"}`, "檔案太大"},
		{"rejected without message", http.StatusOK, `{"status":"error"}`, "伺服器回應無效"},
		{"malformed", http.StatusOK, `<html>`, "伺服器回應格式錯誤"},
		{"server error", http.StatusBadGateway, ``, "Bad Gateway"},
		{"unknown status", 599, ``, "伺服器錯誤"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			err := client.UploadPhoto(context.Background(), Photo{UserID: 1, Date: time.Now(), FileName: "a.png", Data: []byte("x")}, nil)
			require.Error(t, err)
			require.Equal(t, tc.message, UploadErrorMessage(err))
		})
	}
}

func TestUploadPhotoCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.UploadPhoto(ctx, Photo{UserID: 1, Date: time.Now(), FileName: "a.png", Data: []byte("x")}, nil)
	require.ErrorIs(t, err, ErrUploadCanceled)
	require.Equal(t, "上傳已取消", UploadErrorMessage(err))
}

func TestDevotionalFeeds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api:od/od_order_of_mass/20261019":
			_, _ = io.WriteString(w, `{"text":"<p>Mass</p>"}`)
		case "/api:od/od_opus_dei/20261019":
			_, _ = io.WriteString(w, `[{"type":"Laudes","text":"<p>L</p>"}]`)
		case "/api:quote/v1":
			_, _ = io.WriteString(w, `{"text":[{"language":"zh_hk","text":"愛人如己"}],"ref":[],"context":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()
	day := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

	mass, err := client.OrderOfMass(ctx, day)
	require.NoError(t, err)
	require.Equal(t, "<p>Mass</p>", mass)

	readings, err := client.OpusDei(ctx, day)
	require.NoError(t, err)
	require.Len(t, readings, 1)

	_, err = client.Saints(ctx, day)
	require.Error(t, err)

	feed, err := client.Quote(ctx)
	require.NoError(t, err)
	require.Equal(t, "愛人如己", feed.Text[0].Text)
}
