package fetcher

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	maxRetryAfter   time.Duration
}

// RetrierOptions contains options for creating a Retrier
type RetrierOptions struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// MaxRetryAfter caps how long a server-sent Retry-After can stall a fetch.
	MaxRetryAfter time.Duration
}

// DefaultRetrierOptions returns default retrier options
func DefaultRetrierOptions() RetrierOptions {
	return RetrierOptions{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		MaxRetryAfter:   30 * time.Second,
	}
}

// NewRetrier creates a new Retrier. A zero MaxRetries means a single attempt.
func NewRetrier(opts RetrierOptions) *Retrier {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 5 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	if opts.MaxRetryAfter <= 0 {
		opts.MaxRetryAfter = 30 * time.Second
	}

	return &Retrier{
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
		multiplier:      opts.Multiplier,
		maxRetryAfter:   opts.MaxRetryAfter,
	}
}

// newBackoff creates a new exponential backoff
func (r *Retrier) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.Multiplier = r.multiplier
	b.RandomizationFactor = 0.5
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(r.maxRetries))
}

// retryAfterBackOff stretches the next backoff interval to the delay the
// server asked for, bounded by limit.
type retryAfterBackOff struct {
	backoff.BackOff
	limit time.Duration
	wait  time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	wait := b.wait
	b.wait = 0
	if next == backoff.Stop {
		return next
	}
	if wait > b.limit {
		wait = b.limit
	}
	if wait > next {
		return wait
	}
	return next
}

// Retry executes an operation with exponential backoff. Errors that are not
// retryable stop the loop immediately. A RetryableError carrying a
// Retry-After delay holds the next attempt back for at least that long.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	ra := &retryAfterBackOff{BackOff: r.newBackoff(), limit: r.maxRetryAfter}
	b := backoff.WithContext(ra, ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		var re *domain.RetryableError
		if errors.As(err, &re) && re.RetryAfter > 0 {
			ra.wait = time.Duration(re.RetryAfter) * time.Second
		}
		return err
	}, b)
}

// RetryWithValue executes an operation with exponential backoff and returns a value
func RetryWithValue[T any](ctx context.Context, r *Retrier, operation func() (T, error)) (T, error) {
	var result T
	var lastErr error

	err := r.Retry(ctx, func() error {
		var err error
		result, err = operation()
		if err != nil {
			lastErr = err
		}
		return err
	})
	if err != nil {
		var zero T
		if lastErr != nil {
			return zero, lastErr
		}
		return zero, err
	}

	return result, nil
}

// ShouldRetryStatus returns true if the HTTP status code should be retried
func ShouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	// Cloudflare errors (520-530)
	return statusCode >= 520 && statusCode <= 530
}

// ParseRetryAfter parses the Retry-After header value, either delay seconds
// or an HTTP date
func ParseRetryAfter(retryAfter string) time.Duration {
	retryAfter = strings.TrimSpace(retryAfter)
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(when); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
