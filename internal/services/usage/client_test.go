package usage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
)

type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

var fixedNow = time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestFetchRollingWindows_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/oauth/usage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("anthropic-beta"); got != "oauth-2025-04-20" {
			t.Errorf("anthropic-beta = %q", got)
		}
		_, _ = io.WriteString(w, `{"five_hour":{"utilization":26,"resets_at":"2024-06-02T18:00:00Z"},"seven_day":null}`)
	}))
	defer srv.Close()

	raw, err := newTestClient(srv).FetchRollingWindows(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchRollingWindows failed: %v", err)
	}
	if raw.FiveHour == nil || raw.FiveHour.Utilization != 26 {
		t.Errorf("FiveHour = %+v", raw.FiveHour)
	}
	if raw.SevenDay != nil {
		t.Errorf("SevenDay = %+v, want nil", raw.SevenDay)
	}
}

func TestFetchBucketedTotals_Request(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/organizations/usage_report/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("starting_at"); got != "2024-05-26T00:00:00Z" {
			t.Errorf("starting_at = %q", got)
		}
		if got := r.URL.Query().Get("bucket_width"); got != "1d" {
			t.Errorf("bucket_width = %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-admin-1" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		_, _ = io.WriteString(w, `{"data":[],"has_more":false}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).FetchBucketedTotals(context.Background(), "sk-ant-admin-1"); err != nil {
		t.Fatalf("FetchBucketedTotals failed: %v", err)
	}
}

func TestFetch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     map[string]string
		body       string
		wantKind   models.ErrorKind
		wantStatus int
		wantRetry  time.Duration
	}{
		{name: "Unauthorized", status: 401, wantKind: models.ErrTokenExpired, wantStatus: 401},
		{name: "Forbidden", status: 403, wantKind: models.ErrTokenExpired, wantStatus: 403},
		{name: "RateLimitedWithHeader", status: 429, header: map[string]string{"Retry-After": "120"}, wantKind: models.ErrRateLimited, wantStatus: 429, wantRetry: 120 * time.Second},
		{name: "RateLimitedDefault", status: 429, wantKind: models.ErrRateLimited, wantStatus: 429, wantRetry: 60 * time.Second},
		{name: "ServerError", status: 500, wantKind: models.ErrAPI, wantStatus: 500},
		{name: "MalformedJSON", status: 200, body: "{not json", wantKind: models.ErrParse},
	}

	for _, tt := range tests {
		for _, endpoint := range []string{"rolling", "buckets"} {
			t.Run(tt.name+"/"+endpoint, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					for k, v := range tt.header {
						w.Header().Set(k, v)
					}
					w.WriteHeader(tt.status)
					_, _ = io.WriteString(w, tt.body)
				}))
				defer srv.Close()

				c := newTestClient(srv)
				var err error
				if endpoint == "rolling" {
					_, err = c.FetchRollingWindows(context.Background(), "tok")
				} else {
					_, err = c.FetchBucketedTotals(context.Background(), "sk-ant-admin-1")
				}

				var uerr *models.UsageError
				if !errors.As(err, &uerr) {
					t.Fatalf("expected *UsageError, got %v", err)
				}
				if uerr.Kind != tt.wantKind {
					t.Errorf("Kind = %v, want %v", uerr.Kind, tt.wantKind)
				}
				if uerr.HTTPStatus != tt.wantStatus {
					t.Errorf("HTTPStatus = %d, want %d", uerr.HTTPStatus, tt.wantStatus)
				}
				if tt.wantRetry > 0 {
					if uerr.RetryAfter == nil {
						t.Fatal("RetryAfter not set")
					}
					if got := uerr.RetryAfter.Sub(fixedNow); got != tt.wantRetry {
						t.Errorf("RetryAfter = now+%v, want now+%v", got, tt.wantRetry)
					}
				}
			})
		}
	}
}

func TestFetch_NetworkError(t *testing.T) {
	c := NewClient(WithHTTPClient(&http.Client{
		Transport: &MockRoundTripper{
			RoundTripFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
	}))

	_, err := c.FetchRollingWindows(context.Background(), "tok")
	var uerr *models.UsageError
	if !errors.As(err, &uerr) || uerr.Kind != models.ErrNetwork {
		t.Fatalf("expected network-error, got %v", err)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv).FetchRollingWindows(ctx, "tok")
	if uerr := models.AsUsageError(err); uerr == nil || uerr.Kind != models.ErrNetwork {
		t.Fatalf("expected network-error, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 60 * time.Second},
		{"30", 30 * time.Second},
		{" 5 ", 5 * time.Second},
		{"garbage", 60 * time.Second},
		{"-4", 60 * time.Second},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestWeekAgoMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2024, 6, 3, 2, 0, 0, 0, loc) // 2024-06-02T17:00Z
	got := WeekAgoMidnight(now)
	if want := time.Date(2024, 5, 26, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("WeekAgoMidnight = %v, want %v", got, want)
	}
}

func TestWithBaseURL_TrimsSlash(t *testing.T) {
	c := NewClient(WithBaseURL("http://example.test/"))
	if c.baseURL != "http://example.test" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if !strings.HasPrefix(c.userAgent, "claude-meter/") {
		t.Errorf("userAgent = %q", c.userAgent)
	}
}
