// Package api is the client for the FinSight REST backend.
//
// Every call goes through Client.Do, the single place that attaches
// credentials, interprets the response and classifies failures into
// *APIError. The endpoint functions in users.go, transactions.go and
// categories.go only build paths and bodies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	"finsight/internal/log"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// RequestOptions carries the transport options of one call.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
	Query  url.Values
}

// Client issues requests against one backend origin.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.StructuredLogger
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the underlying http.Client. Its transport is used
// as-is (no tracing wrapper is added).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client is nil")
		}
		c.http = hc
		return nil
	}
}

// WithTimeout bounds every call. Zero keeps the platform default (none).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.http.Timeout = d
		return nil
	}
}

// WithCookieJar keeps cookies set by the backend between calls. Only for
// single-user clients: a server acting for many users must pass each user's
// cookies through the request context instead.
func WithCookieJar() Option {
	return func(c *Client) error {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
		return nil
	}
}

// WithLogger sets the logger used for per-call records.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = log.NewStructuredLogger(logger.WithComponent(log.ComponentAPI))
		}
		return nil
	}
}

// NewClient creates a client for baseURL. An empty baseURL is allowed and
// means same-origin: bind it to the shared public origin with ForOrigin.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		if err := validateBaseURL(baseURL); err != nil {
			return nil, err
		}
	}

	c := &Client{
		baseURL: baseURL,
		http:    newHTTPClient(),
		logger:  log.NewStructuredLogger(log.Default().WithComponent(log.ComponentAPI)),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newHTTPClient() *http.Client {
	d := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           d.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: otelhttp.NewTransport(tr)}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return nil
}

// BaseURL returns the backend origin, empty for same-origin clients.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ForOrigin returns a client bound to origin, sharing the transport. It is a
// no-op when the client already has an explicit base URL.
func (c *Client) ForOrigin(origin string) *Client {
	if c.baseURL != "" || origin == "" {
		return c
	}
	clone := *c
	clone.baseURL = strings.TrimRight(origin, "/")
	return &clone
}

// resolve joins a relative API route with the base URL.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "", fmt.Errorf("invalid API path %q: must be a relative route", path)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid API path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("invalid API path %q: must be a relative route", path)
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("no backend origin configured for %s", path)
	}
	if len(query) > 0 {
		q := ref.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		ref.RawQuery = q.Encode()
	}
	return c.baseURL + ref.String(), nil
}

// Do performs one call and decodes a successful JSON answer into out (which
// may be nil). Every failure is returned as *APIError.
func (c *Client) Do(ctx context.Context, path string, opts *RequestOptions, out any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(path, opts.Query)
	if err != nil {
		return NewTransportError(err)
	}

	var body io.Reader
	if opts.Body != nil {
		buf, err := json.Marshal(opts.Body)
		if err != nil {
			return NewTransportError(fmt.Errorf("encode request body: %w", err))
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return NewTransportError(err)
	}
	for name, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	for _, cookie := range SessionCookies(ctx) {
		req.AddCookie(cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.LogAPICall(ctx, method, path, 0, time.Since(start).Milliseconds())
		return NewTransportError(err)
	}
	defer resp.Body.Close()
	c.logger.LogAPICall(ctx, method, path, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			Message:    fmt.Sprintf("read response body: %v", err),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{
			Message:    fmt.Sprintf("decode response: %v", err),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return nil
}

// errorFromResponse classifies a non-2xx answer. The body is parsed as a
// problem document when possible; anything else falls back to the status
// line text.
func errorFromResponse(resp *http.Response) *APIError {
	apiErr := &APIError{
		Message:    statusText(resp),
		StatusCode: resp.StatusCode,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return apiErr
	}
	if msg := rawString(payload["message"]); msg != "" {
		apiErr.Message = msg
	}
	apiErr.Detail = rawString(payload["detail"])
	if raw, ok := payload["errors"]; ok {
		apiErr.Fields = rawStringMap(raw)
	}
	return apiErr
}

// statusText returns the reason phrase of the status line ("Bad Request").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func rawStringMap(raw json.RawMessage) map[string]string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		return nil
	}
	fields := make(map[string]string, len(m))
	for k, v := range m {
		if s := rawString(v); s != "" {
			fields[k] = s
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
