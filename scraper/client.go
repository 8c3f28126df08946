// Package scraper adapts the storefront's public JSON and XML endpoints into
// normalized catalog entries, price records, exchange rates and active shops.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"eshopscout/config"
	"eshopscout/errs"
)

const maxBodyBytes = 32 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is the shared outbound HTTP client: rate limited, retrying with
// exponential backoff, and aware of throttle interstitials.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	retry      RetryOptions
	detector   *ThrottleDetector
	logger     *slog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryOptions overrides the retry policy.
func WithRetryOptions(opts RetryOptions) ClientOption {
	return func(c *Client) { c.retry = opts }
}

func NewClient(cfg config.StorefrontConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), rps),
		retry:      DefaultRetryOptions(cfg.MaxRetries),
		detector:   NewThrottleDetector(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the JSON body into target.
func (c *Client) GetJSON(ctx context.Context, url string, timeout time.Duration, target interface{}) error {
	body, err := c.Get(ctx, url, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.Wrapf(err, "decode response from %s", url)
	}
	return nil
}

// PostJSON sends payload as JSON and decodes the JSON response into target.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}, timeout time.Duration, target interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "encode request body")
	}
	body, err := c.do(ctx, timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.Wrapf(err, "decode response from %s", url)
	}
	return nil
}

// Get returns the raw body of a GET request.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return c.do(ctx, timeout, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// do runs build with retries. timeout bounds the whole call, retries and
// backoff included.
func (c *Client) do(ctx context.Context, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retry.Backoff(attempt)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= backoff {
				return nil, errs.Wrapf(lastErr, "no time left for retry %d", attempt)
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errs.Wrap(lastErr, ctx.Err().Error())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return nil, errs.Wrap(lastErr, err.Error())
			}
			return nil, err
		}

		body, retryable, err := c.attempt(ctx, build)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug("Retrying upstream request", "attempt", attempt+1, "error", err)
	}
	return nil, errs.Wrapf(lastErr, "after %d retries", c.retry.MaxRetries)
}

func (c *Client) attempt(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, bool, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, false, errs.Wrap(err, "build request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, errs.Wrapf(err, "%s %s", req.Method, req.URL.Redacted())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, errs.Wrapf(err, "read body from %s", req.URL.Redacted())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, URL: req.URL.Redacted()}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, true, errs.Mark(statusErr, errs.ErrThrottled)
		}
		return nil, statusErr.Retryable(), statusErr
	}

	if throttled, reason := c.detector.Detect(body, resp.Header.Get("Content-Type")); throttled {
		c.logger.Warn("⚠️ Upstream served an interstitial page", "url", req.URL.Redacted(), "reason", reason)
		return nil, true, errs.Mark(errs.Newf("interstitial from %s: %s", req.URL.Redacted(), reason), errs.ErrThrottled)
	}
	return body, false, nil
}
