package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/metrics"
)

// Options configures a network routing provider.
type Options struct {
	BaseURL string
	Profile string
	APIKey  string
	// Timeout bounds a single HTTP attempt. Zero means 10s.
	Timeout time.Duration
	// RequestsPerSecond caps outbound calls. Zero disables limiting.
	RequestsPerSecond float64
	// MaxAttempts for transient failures. Zero means 4.
	MaxAttempts int
	// HTTPClient overrides the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// client is the shared HTTP transport of the network providers: auth header,
// rate limiting, retry with exponential backoff and latency metrics.
type client struct {
	provider    string
	session     *http.Client
	limiter     *rate.Limiter
	apiKey      string
	maxAttempts int
	backoff     time.Duration
}

func newClient(provider string, opts Options) *client {
	session := opts.HTTPClient
	if session == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		session = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}

	return &client{
		provider:    provider,
		session:     session,
		limiter:     limiter,
		apiKey:      opts.APIKey,
		maxAttempts: maxAttempts,
		backoff:     200 * time.Millisecond,
	}
}

func (c *client) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *client) do(endpoint string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.session.Do(req)
	if err != nil {
		metrics.ProviderLatency.WithLabelValues(c.provider, endpoint, "error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	metrics.ProviderLatency.WithLabelValues(c.provider, endpoint, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx responses)
// using exponential backoff while respecting context cancellation.
func (c *client) doWithRetry(
	ctx context.Context,
	endpoint string,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := c.backoff

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(endpoint, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == c.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	resp, err := c.doWithRetry(ctx, endpoint, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// postJSON marshals in, POSTs it and decodes the JSON body into out.
func (c *client) postJSON(ctx context.Context, endpoint, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", endpoint, err)
	}

	resp, err := c.doWithRetry(ctx, endpoint, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// unavailable classifies a transport failure. When ctx itself is done its error is
// returned as is so callers can tell abandonment from an unreachable service.
func unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
}

// kmAndMinutes converts provider units once, at ingestion.
func kmAndMinutes(meters, seconds float64) (float64, float64) {
	return meters / 1000, seconds / 60
}

func requireRoutable(points []domain.GeoPoint) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: a route needs at least 2 points, got %d", domain.ErrInvalidRequest, len(points))
	}
	return nil
}

// requirePath rejects provider geometry that cannot describe a path. A provider
// answering with fewer than 2 samples has not produced a route.
func requirePath(op string, geometry []domain.GeoPoint) error {
	if len(geometry) < 2 {
		return fmt.Errorf("%s: %w: %w: route geometry has %d points",
			op, domain.ErrProviderUnavailable, domain.ErrMalformedGeometry, len(geometry))
	}
	return nil
}
