// Package httpclient is the shared HTTP transport for the LMS and git
// hosting clients. It retries rate limits and transient network failures
// with exponential backoff and maps failure statuses onto the error
// taxonomy, so callers only ever deal with typed errors and decoded bodies.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/edulab/reporover/internal/apperr"
)

// RetryConfig bounds the backoff loop.
type RetryConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultRetryConfig matches the defaults used by every client: 500ms
// doubling up to 30s, four attempts total.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  4,
	}
}

const requestTimeout = 30 * time.Second

// Request describes one HTTP call. Body is buffered so the call can be
// replayed on retry.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully-read HTTP response. The body is read once into a
// string so it can serve both decoding and error previews.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Client wraps an http.Client with the retry policy.
type Client struct {
	http  *http.Client
	retry RetryConfig
}

// New returns a client with the given retry policy and the standard request
// timeout.
func New(retry RetryConfig) *Client {
	return &Client{
		http:  &http.Client{Timeout: requestTimeout},
		retry: retry,
	}
}

// NewDefault returns a client with DefaultRetryConfig.
func NewDefault() *Client {
	return New(DefaultRetryConfig())
}

// WithTransport replaces the underlying round tripper, keeping the timeout
// and retry policy. Used for oauth2 transports.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	return &Client{
		http:  &http.Client{Timeout: c.http.Timeout, Transport: rt},
		retry: c.retry,
	}
}

// Do performs the request, retrying 429 responses and network errors. A
// non-2xx final status is returned as a typed error; the response is still
// populated for callers that want the raw body.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	delay := c.retry.InitialDelay
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return Response{}, err
			}
			delay = time.Duration(float64(delay) * c.retry.Multiplier)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		resp, err := c.once(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			// Network-level failure, retry.
			lastErr = err
			continue
		}

		if resp.Status == http.StatusTooManyRequests {
			if after := retryAfter(resp.Header); after > 0 {
				delay = after
			}
			lastErr = apperr.NewRateLimit("rate limited by "+req.URL, retryAfter(resp.Header))
			continue
		}

		if resp.Status < 200 || resp.Status > 299 {
			return resp, statusError(req, resp)
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = apperr.NewUnexpected("request failed with no attempts")
	}
	return Response{}, lastErr
}

// DoJSON performs a request with optional JSON request and response bodies.
func (c *Client) DoJSON(ctx context.Context, method, url string, header http.Header, in, out any) error {
	req := Request{Method: method, URL: url, Header: cloneHeader(header)}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return apperr.NewUnexpected("encoding request body", err)
		}
		req.Body = body
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return apperr.NewUnexpected(fmt.Sprintf("decoding response from %s", url), err)
	}
	return nil
}

// GetJSON is DoJSON for a bare GET.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, header, nil, out)
}

func (c *Client) once(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, apperr.NewInvalidURL("building request for "+req.URL, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: string(raw)}, nil
}

func statusError(req Request, resp Response) error {
	switch resp.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.NewAuth(fmt.Sprintf("%s %s rejected (status %d)", req.Method, req.URL, resp.Status))
	case http.StatusNotFound:
		return apperr.NewNotFound(fmt.Sprintf("%s not found", req.URL))
	default:
		return apperr.NewAPI(fmt.Sprintf("%s %s failed", req.Method, req.URL), resp.Status, bodyPreview(resp.Body))
	}
}

// bodyPreview truncates a response body for error messages.
func bodyPreview(body string) string {
	const max = 512
	if len(body) > max {
		return body[:max] + "..."
	}
	return body
}

// retryAfter parses a Retry-After header, either delay-seconds or an HTTP
// date. Zero when absent or unparseable.
func retryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
