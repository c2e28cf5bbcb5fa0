// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"research-assistant/internal/common/errors"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultBackoff = 200 * time.Millisecond

	// DefaultMaxBodyBytes caps how much of a webhook reply is read.
	DefaultMaxBodyBytes = 16 << 20
)

// Options configures webhook calls. MaxRetries counts extra attempts after
// the first one and only applies to transport failures and 5xx replies.
// Replies longer than MaxBodyBytes fail with WEBHOOK_RESPONSE_TOO_LARGE.
type Options struct {
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
	MaxBodyBytes int64
	Headers      map[string]string
}

// Response is a fully read webhook reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Duration   time.Duration
}

type Client struct {
	httpClient *http.Client
	opts       Options
}

func NewClient(timeout time.Duration) *Client {
	return NewWebhookClient(Options{Timeout: timeout})
}

// NewWebhookClient builds a client whose per-attempt deadline is opts.Timeout.
func NewWebhookClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Client{
		// Deadlines come from the per-attempt context so timeouts can be told apart.
		httpClient: &http.Client{},
		opts:       opts,
	}
}

// WithOptions returns a client sharing the connection pool with different options.
// A zero MaxBodyBytes keeps the receiver's limit.
func (c *Client) WithOptions(opts Options) *Client {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = c.opts.MaxBodyBytes
	}
	clone := NewWebhookClient(opts)
	clone.httpClient = c.httpClient
	return clone
}

func (c *Client) Options() Options {
	return c.opts
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

// PostJSON posts payload as JSON. Failures are *errors.StandardError with a
// WEBHOOK_* code. For WEBHOOK_HTTP_ERROR the returned Response is non-nil so
// callers can inspect the reply.
func (c *Client) PostJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewWebhookRequestFailedError(fmt.Errorf("encode payload: %w", err))
	}

	start := time.Now()
	var (
		resp    *Response
		lastErr error
	)

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return resp, c.classify(url, ctx.Err())
			}
		}

		resp, lastErr = c.attempt(ctx, url, body, headers)
		if resp != nil {
			resp.Attempts = attempt + 1
			resp.Duration = time.Since(start)
		}
		if lastErr == nil {
			return resp, nil
		}

		stdErr, ok := errors.As(lastErr)
		if !ok || !stdErr.Retryable || ctx.Err() != nil {
			break
		}
	}

	return resp, lastErr
}

func (c *Client) attempt(ctx context.Context, url string, body []byte, headers map[string]string) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewWebhookRequestFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(url, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, c.classify(url, err)
	}
	if int64(len(data)) > c.opts.MaxBodyBytes {
		return nil, errors.NewWebhookTooLargeError(url, c.opts.MaxBodyBytes)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, errors.NewWebhookHTTPError(url, httpResp.StatusCode, serverMessage(data))
	}
	return resp, nil
}

func (c *Client) classify(url string, err error) error {
	if isTimeout(err) {
		return errors.NewWebhookTimeoutError(url, err)
	}
	return errors.NewWebhookUnreachableError(url, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// serverMessage pulls a top-level string "message" out of an error body.
func serverMessage(body []byte) string {
	var reply struct {
		Message interface{} `json:"message"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	if s, ok := reply.Message.(string); ok {
		return s
	}
	return ""
}
