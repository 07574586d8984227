// Package covidapi is the HTTP client for the upstream COVID-19 statistics API.
//
// It covers the two dataset endpoints the dashboard needs plus a reachability
// probe:
//
//	GET {base}/summary
//	GET {base}/dayone/country/{slug}/status/confirmed
//	GET {base}/
//
// Every call is bounded by the configured timeout and response size limit.
// Upstream strings are cleaned on the way in, so callers never see markup
// in country names or mixed-case slugs.
package covidapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratacovid/internal/app/system/normalize"
	"github.com/dalemusser/stratacovid/internal/app/system/timeouts"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
)

// DefaultMaxBody caps how much of a response body is read (32 MiB).
const DefaultMaxBody int64 = 32 << 20

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "stratacovid/1.0"

// Config holds client settings.
type Config struct {
	BaseURL   string        // e.g. https://api.covid19api.com
	Timeout   time.Duration // per request; zero means timeouts.Upstream()
	MaxBody   int64         // zero means DefaultMaxBody
	UserAgent string        // zero means DefaultUserAgent

	// HTTPClient overrides the transport (tests). Its own Timeout is left alone.
	HTTPClient *http.Client
}

// Client talks to the upstream statistics API.
type Client struct {
	base      string
	http      *http.Client
	timeout   time.Duration
	maxBody   int64
	userAgent string
	logger    *zap.Logger
}

// New creates a Client. BaseURL must be an absolute http(s) URL.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}

	c := &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		http:      cfg.HTTPClient,
		timeout:   cfg.Timeout,
		maxBody:   cfg.MaxBody,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = timeouts.Upstream()
	}
	if c.maxBody <= 0 {
		c.maxBody = DefaultMaxBody
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	return c, nil
}

// ValidateBaseURL checks that raw is an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid api base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api base url %q has no host", raw)
	}
	return nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// SummaryURL returns the summary endpoint.
func (c *Client) SummaryURL() string {
	return c.base + "/summary"
}

// HistoryURL returns the confirmed-case history endpoint for slug.
func (c *Client) HistoryURL(slug string) string {
	return c.base + "/dayone/country/" + url.PathEscape(slug) + "/status/confirmed"
}

// FetchSummary retrieves the per-country summary dataset.
func (c *Client) FetchSummary(ctx context.Context) ([]models.CountrySummary, error) {
	endpoint := c.SummaryURL()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp struct {
		models.SummaryResponse
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrMalformed, err), "decode summary",
			goerr.V("url", endpoint))
	}
	if resp.Countries == nil {
		return nil, goerr.Wrap(ErrMalformed, "summary has no Countries field",
			goerr.V("url", endpoint),
			goerr.V("message", resp.Message))
	}

	stats := make([]models.CountrySummary, len(resp.Countries))
	for i, cs := range resp.Countries {
		cs.Country = normalize.Label(htmlsanitize.PlainText(cs.Country))
		cs.Slug = normalize.Slug(cs.Slug)
		stats[i] = cs
	}

	c.logger.Debug("fetched summary",
		zap.String("url", endpoint),
		zap.Int("countries", len(stats)))
	return stats, nil
}

// FetchHistory retrieves the confirmed-case series for one country, oldest first.
func (c *Client) FetchHistory(ctx context.Context, slug string) ([]models.DayCase, error) {
	slug = normalize.Slug(slug)
	if slug == "" {
		return nil, goerr.New("country slug is empty")
	}
	endpoint := c.HistoryURL(slug)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var days []models.DayCase
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrMalformed, err), "decode history",
			goerr.V("url", endpoint),
			goerr.V("slug", slug))
	}
	for i := range days {
		days[i].Country = normalize.Label(htmlsanitize.PlainText(days[i].Country))
	}

	c.logger.Debug("fetched history",
		zap.String("slug", slug),
		zap.Int("days", len(days)))
	return days, nil
}

// Probe checks that the upstream answers at all. Any status below 500 counts
// as reachable; the body is discarded.
func (c *Client) Probe(ctx context.Context) error {
	endpoint := c.base + "/"

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusInternalServerError {
		return goerr.Wrap(ErrStatus, "probe failed",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode))
	}
	return nil
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, goerr.Wrap(ErrStatus, "unexpected status",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrTransport, err), "read body",
			goerr.V("url", endpoint))
	}
	if int64(len(body)) > c.maxBody {
		return nil, goerr.Wrap(ErrMalformed, "response body too large",
			goerr.V("url", endpoint),
			goerr.V("limit", c.maxBody))
	}
	return body, nil
}

// do sends the request under the client timeout. The returned response's
// body must be closed by the caller; the timeout stays armed until then.
func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, goerr.Wrap(err, "build request", goerr.V("url", endpoint))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrTransport, err), "request failed",
			goerr.V("url", endpoint),
			goerr.V("elapsed", time.Since(start).String()))
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
