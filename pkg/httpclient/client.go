// Package httpclient is the outbound HTTP stack for third-party lookups:
// pooled transport with trace propagation, bounded retries on transient
// failures, and a circuit breaker in front.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// Client retries network errors and 5xx answers (except 501) with capped
// exponential backoff. Only idempotent GETs are sent through it.
type Client struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 3 * time.Second,
	}
	return NewWithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   cfg.Timeout,
	}, cfg)
}

// NewWithHTTPClient uses hc as is; tests pass httptest servers' clients.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	return &Client{http: hc, cfg: cfg}
}

func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.wait(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if retryable(ctx, err) {
				continue
			}
			return nil, fmt.Errorf("GET %s: %w", url, err)
		}
		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
			drain(resp)
			lastErr = &StatusError{StatusCode: resp.StatusCode, URL: url}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("GET %s after %d attempts: %w", url, c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) wait(attempt int) time.Duration {
	d := c.cfg.RetryWaitMin << (attempt - 1)
	if d > c.cfg.RetryWaitMax {
		d = c.cfg.RetryWaitMax
	}
	return d
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// StatusError reports a response whose status the caller treats as failure.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}
