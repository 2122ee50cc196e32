// Package usage fetches usage reports from the Anthropic API and reduces
// them to snapshots.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/version"
)

const (
	// DefaultBaseURL is the Anthropic API host serving both usage endpoints.
	DefaultBaseURL = "https://api.anthropic.com"

	rollingWindowsPath = "/api/oauth/usage"
	usageReportPath    = "/v1/organizations/usage_report/messages"

	oauthBetaHeader  = "oauth-2025-04-20"
	anthropicVersion = "2023-06-01"

	rollingWindowsTimeout = 10 * time.Second
	usageReportTimeout    = 15 * time.Second

	defaultRetryAfter = 60 * time.Second
)

// RawWindow is one window as returned by the rolling-window endpoint.
// Utilization is a 0-100 percentage.
type RawWindow struct {
	ResetsAt    string  `json:"resets_at"`
	Utilization float64 `json:"utilization"`
}

// RawRollingWindows is the rolling-window endpoint payload.
type RawRollingWindows struct {
	FiveHour       *RawWindow `json:"five_hour"`
	SevenDay       *RawWindow `json:"seven_day"`
	SevenDayOpus   *RawWindow `json:"seven_day_opus"`
	SevenDaySonnet *RawWindow `json:"seven_day_sonnet"`
}

// RawResult is one row inside a usage report bucket.
type RawResult struct {
	Model                string `json:"model,omitempty"`
	UncachedInputTokens  int64  `json:"uncached_input_tokens"`
	CacheReadInputTokens int64  `json:"cache_read_input_tokens"`
	OutputTokens         int64  `json:"output_tokens"`
}

// RawBucket is one daily bucket of the usage report.
type RawBucket struct {
	StartingAt string      `json:"starting_at"`
	EndingAt   string      `json:"ending_at"`
	Results    []RawResult `json:"results"`
}

// RawBucketReport is the usage report endpoint payload.
type RawBucketReport struct {
	Data    []RawBucket `json:"data"`
	HasMore bool        `json:"has_more"`
}

// Client talks to the usage endpoints. It performs exactly one request per
// call and never retries.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock replaces the time source used for query windows and Retry-After.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a usage client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		now:        time.Now,
		baseURL:    DefaultBaseURL,
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRollingWindows fetches subscription utilization with an OAuth token.
func (c *Client) FetchRollingWindows(ctx context.Context, token string) (*RawRollingWindows, error) {
	ctx, cancel := context.WithTimeout(ctx, rollingWindowsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+rollingWindowsPath, http.NoBody)
	if err != nil {
		return nil, models.NewUsageError(models.ErrNetwork, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", oauthBetaHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	var out RawRollingWindows
	if err := c.do(req, &out, "Authentication failed. Token may be expired or invalid."); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchBucketedTotals fetches the organization usage report for the seven
// days before now, in one-day buckets, with an admin key.
func (c *Client) FetchBucketedTotals(ctx context.Context, adminKey string) (*RawBucketReport, error) {
	ctx, cancel := context.WithTimeout(ctx, usageReportTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("starting_at", WeekAgoMidnight(c.now()).Format(time.RFC3339))
	q.Set("bucket_width", "1d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+usageReportPath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, models.NewUsageError(models.ErrNetwork, "failed to create request: %v", err)
	}
	req.Header.Set("x-api-key", adminKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("User-Agent", c.userAgent)

	var out RawBucketReport
	if err := c.do(req, &out, "Admin API key rejected. Ensure you are using an sk-ant-admin-... key."); err != nil {
		return nil, err
	}
	return &out, nil
}

// WeekAgoMidnight returns UTC midnight seven days before now.
func WeekAgoMidnight(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 0, -7)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// do sends req and decodes a 2xx JSON body into out. Every failure is a
// *models.UsageError.
func (c *Client) do(req *http.Request, out any, authMessage string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.NewUsageError(models.ErrNetwork, "request to %s timed out", req.URL.Path)
		}
		return models.NewUsageError(models.ErrNetwork, "network error: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		uerr := models.NewUsageError(models.ErrTokenExpired, "%s", authMessage)
		uerr.HTTPStatus = resp.StatusCode
		return uerr
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAt := c.now().Add(parseRetryAfter(resp.Header.Get("Retry-After"), c.now()))
		uerr := models.NewUsageError(models.ErrRateLimited, "Rate limited by Anthropic API.")
		uerr.HTTPStatus = resp.StatusCode
		uerr.RetryAfter = &retryAt
		return uerr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		uerr := models.NewUsageError(models.ErrAPI, "Unexpected API response: HTTP %d", resp.StatusCode)
		uerr.HTTPStatus = resp.StatusCode
		return uerr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewUsageError(models.ErrNetwork, "failed to read response: %v", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		logger.Debug("unparseable usage response", "path", req.URL.Path, "error", err)
		return models.NewUsageError(models.ErrParse, "Failed to parse API response as JSON.")
	}
	return nil
}

// parseRetryAfter reads a Retry-After header given either as delay seconds
// or as an HTTP date. Missing or unparseable values yield one minute.
func parseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}

// String implements fmt.Stringer for log output.
func (r *RawBucketReport) String() string {
	return fmt.Sprintf("usage report: %d buckets (has_more=%t)", len(r.Data), r.HasMore)
}
