// Package advisor provides a Go SDK for the stock-advisor recommendation
// service: health checks, paged top recommendations, and single-ticker
// analysis.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"stockadvisor/internal/metrics"
)

// DefaultBaseURL is used when no API base is configured.
const DefaultBaseURL = "https://stock-advisor-api.onrender.com"

// DefaultAnalyzePath is the path prefix of the single-ticker endpoint.
const DefaultAnalyzePath = "/analyze"

// Request kinds, used for error classification and metrics labels.
const (
	KindHealth = "health"
	KindPage   = "page"
	KindLookup = "lookup"
)

// Errors returned by the client. Failures are classified only by whether
// the HTTP round trip succeeded; the status and cause are wrapped alongside.
var (
	ErrConnectivity = errors.New("health check failed")
	ErrFetch        = errors.New("failed to fetch recommendations")
	ErrLookup       = errors.New("lookup failed")
)

// Client talks to the recommendation service. It holds no state beyond its
// transport and performs no caching.
type Client struct {
	baseURL     string
	analyzePath string
	rest        *resty.Client
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

// WithAnalyzePath overrides the single-ticker endpoint prefix.
func WithAnalyzePath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.analyzePath = "/" + strings.Trim(p, "/")
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new client rooted at baseURL. An empty baseURL falls
// back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	rest := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	c := &Client{
		baseURL:     baseURL,
		analyzePath: DefaultAnalyzePath,
		rest:        rest,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	rest.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader("X-Request-ID", uuid.NewString())
		return nil
	})

	return c
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health and returns the body verbatim.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.get(ctx, KindHealth, ErrConnectivity, "/health", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Health{}
	}
	return out, nil
}

// FetchPage calls GET /recommendations/top with the given page size, page
// number, and cap filter.
func (c *Client) FetchPage(ctx context.Context, pageSize, page int, capFilter CapFilter) (*PageResponse, error) {
	params := map[string]string{
		"n":    strconv.Itoa(pageSize),
		"page": strconv.Itoa(page),
		"cap":  string(capFilter),
	}
	var out PageResponse
	if err := c.get(ctx, KindPage, ErrFetch, "/recommendations/top", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchOne calls the single-ticker analysis endpoint. The response carries
// either a recommendation or an informational note.
func (c *Client) FetchOne(ctx context.Context, ticker string, exchange Exchange) (*LookupResponse, error) {
	path := c.analyzePath + "/" + url.PathEscape(ticker)
	params := map[string]string{"exchange": string(exchange)}
	var out LookupResponse
	if err := c.get(ctx, KindLookup, ErrLookup, path, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs one GET and decodes a successful body into result. Any
// failure is wrapped with the sentinel for the request kind.
func (c *Client) get(ctx context.Context, kind string, sentinel error, path string, params map[string]string, result any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordRequest(kind, time.Since(start), err) }()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		ForceContentType("application/json").
		Get(path)
	if err != nil {
		c.log.Warn("request failed", "kind", kind, "path", path, "error", err)
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	if !resp.IsSuccess() {
		c.log.Warn("request rejected", "kind", kind, "path", path, "status", resp.StatusCode())
		return fmt.Errorf("%w: %s", sentinel, resp.Status())
	}

	c.log.Debug("request ok", "kind", kind, "path", path, "status", resp.StatusCode(),
		"elapsed", resp.Time())
	return nil
}
