package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	Breaker         CircuitBreakerConfig
}

// DefaultConfig returns defaults for calls to an identity provider named name.
func DefaultConfig(name string) Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 20,
		Breaker:         DefaultCircuitBreakerConfig(name),
	}
}

// New returns an *http.Client whose transport retries idempotent requests
// and sits behind a circuit breaker. The result can be handed to libraries
// that accept a plain *http.Client.
func New(cfg Config, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewBreakerTransport(NewRetryTransport(base, cfg), cfg.Breaker, logger),
	}
}

// RetryTransport retries GET and HEAD requests on network errors and 5xx
// responses other than 501, with capped exponential backoff. Other methods
// pass through once; a token exchange must not be replayed.
type RetryTransport struct {
	next http.RoundTripper
	cfg  Config
}

// NewRetryTransport wraps next.
func NewRetryTransport(next http.RoundTripper, cfg Config) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RetryTransport{next: next, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = t.next.RoundTrip(req)
		if attempt >= t.cfg.MaxRetries || !shouldRetry(resp, err) {
			return resp, err
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.backoff(attempt)):
		}
	}
}

func (t *RetryTransport) backoff(attempt int) time.Duration {
	wait := t.cfg.RetryWaitMin << attempt
	if t.cfg.RetryWaitMax > 0 && wait > t.cfg.RetryWaitMax {
		wait = t.cfg.RetryWaitMax
	}
	return wait
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented
}
