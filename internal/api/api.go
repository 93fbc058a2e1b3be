package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"trading-journal/internal/logger"
)

// Client is the REST transport shared by the platform adapters
type Client struct {
	rc         *resty.Client
	limiter    *rate.Limiter
	useLogging bool
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.rc.SetTimeout(timeout)
		}
	}
}

// WithBaseURL sets the base URL for all requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.rc.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.rc.SetHeader(key, value)
	}
}

// WithRetry retries transport errors and 5xx/429 responses with exponential backoff
func WithRetry(count int, wait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait)
	}
}

// WithRateLimit caps the request rate for this client, allowing bursts of perSecond
func WithRateLimit(perSecond int) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// WithLogging enables request logging
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		rc: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "trading-journal/1.0"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})

	return c
}

// HTTPError is returned for any non-2xx response
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return "HTTP " + http.StatusText(e.StatusCode) + " " + e.Method + " " + e.URL + ": " + e.Body
}

// IsStatus reports whether err is an HTTPError with the given status code
func IsStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

// Request describes a single call
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

// Response is the raw result of a call
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do executes req and returns the raw response. Non-2xx statuses become *HTTPError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limit wait")
		}
	}

	r := c.rc.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	if c.useLogging {
		logger.Debug(ctx, "HTTP Request", "method", req.Method, "path", req.Path)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		if c.useLogging {
			logger.Warn(ctx, "HTTP request failed", "method", req.Method, "path", req.Path, "error", err)
		}
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.Path)
	}

	if c.useLogging {
		logger.Debug(ctx, "HTTP Response",
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bodySize", len(resp.Body()))
	}

	if !resp.IsSuccess() {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.Path,
			StatusCode: resp.StatusCode(),
			Body:       truncate(strings.TrimSpace(string(resp.Body())), 512),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, nil
}

// GetJSON performs a GET and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, headers map[string]string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Headers: headers})
	if err != nil {
		return err
	}
	return resp.ParseJSON(out)
}

// PostJSON performs a POST with a JSON body and decodes the JSON response into out
func (c *Client) PostJSON(ctx context.Context, path string, body any, headers map[string]string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Headers: headers})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.ParseJSON(out)
}

// ParseJSON parses the response body as JSON into the given value
func (r *Response) ParseJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "failed to parse JSON response")
	}
	return nil
}

// String returns the response body as a string
func (r *Response) String() string {
	return string(r.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
