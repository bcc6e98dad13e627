package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// Client is a browser-fingerprinted HTTP client using tls-client.
// One Client is owned by one worker; it is not shared across workers.
type Client struct {
	tlsClient tls_client.HttpClient
	userAgent string
	headers   map[string]string
	retrier   *Retrier
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout            time.Duration
	MaxRetries         int
	UserAgent          string
	Headers            map[string]string
	ProxyURL           string
	InsecureSkipVerify bool
	Retry              RetrierOptions
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		InsecureSkipVerify: true,
		Retry:              DefaultRetrierOptions(),
	}
}

// NewClient creates a new HTTP client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutMilliseconds(int(opts.Timeout.Milliseconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
	}
	if opts.InsecureSkipVerify {
		tlsOpts = append(tlsOpts, tls_client.WithInsecureSkipVerify())
	}
	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	retryOpts := opts.Retry
	retryOpts.MaxRetries = opts.MaxRetries

	return &Client{
		tlsClient: tlsClient,
		userAgent: opts.UserAgent,
		headers:   opts.Headers,
		retrier:   NewRetrier(retryOpts),
	}, nil
}

// Get issues a GET and returns the open response on a 2xx status.
// Transient failures are retried; the caller must close the body.
func (c *Client) Get(ctx context.Context, url string) (*fhttp.Response, error) {
	return RetryWithValue(ctx, c.retrier, func() (*fhttp.Response, error) {
		return c.doRequest(ctx, url)
	})
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, targetURL string) (*fhttp.Response, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, targetURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(targetURL, 0, fmt.Errorf("failed to create request: %w", err))
	}

	for k, v := range RequestHeaders(c.userAgent) {
		req.Header.Set(k, v)
	}
	// user supplied headers win over the defaults
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, domain.NewFetchError(targetURL, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		resp.Body.Close()
		return nil, statusError(targetURL, resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	return resp, nil
}

func statusError(targetURL string, status int, retryAfter string) error {
	cause := fmt.Errorf("HTTP %d", status)
	switch status {
	case fhttp.StatusNotFound, fhttp.StatusGone:
		cause = domain.ErrNotFound
	case fhttp.StatusTooManyRequests:
		cause = domain.ErrRateLimited
	}
	fetchErr := domain.NewFetchError(targetURL, status, cause)
	if ShouldRetryStatus(status) {
		return &domain.RetryableError{
			Err:        fetchErr,
			RetryAfter: int(ParseRetryAfter(retryAfter).Seconds()),
		}
	}
	return fetchErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Close releases idle connections
func (c *Client) Close() error {
	c.tlsClient.CloseIdleConnections()
	return nil
}
