package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNotFound indicates the remote artifact does not exist
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrInvalidURL indicates a target could not be parsed as a URL
	ErrInvalidURL = errors.New("invalid URL")

	// ErrOutsideGitDir indicates a discovered reference resolves outside its .git/ base
	ErrOutsideGitDir = errors.New("artifact resolves outside of .git directory")

	// ErrUnsafePath indicates a local destination escapes the output root
	ErrUnsafePath = errors.New("path is outside of trusted root")

	// ErrHTMLResponse indicates the server answered a git artifact with an HTML page
	ErrHTMLResponse = errors.New("unexpected text/html response")

	// ErrDirectoryListing indicates the HTML response is a server directory index
	ErrDirectoryListing = errors.New("directory listing returned")

	// ErrCorruptObject indicates a loose object failed to inflate
	ErrCorruptObject = errors.New("corrupt object")

	// ErrObjectTooLarge indicates an inflated object exceeded the configured cap
	ErrObjectTooLarge = errors.New("object exceeds size limit")

	// ErrGitNotFound indicates the external git binary is unavailable
	ErrGitNotFound = errors.New("git binary not found")

	// ErrNoTargets indicates no target origins were provided
	ErrNoTargets = errors.New("no targets provided")
)

// FetchError represents an error during fetching
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 503, 502, 504:
			return true
		}
		// Cloudflare origin errors
		if fetchErr.StatusCode >= 520 && fetchErr.StatusCode <= 530 {
			return true
		}
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ParseError reports a discovery failure for one downloaded artifact
type ParseError struct {
	Path string
	Kind string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(path, kind string, err error) *ParseError {
	return &ParseError{
		Path: path,
		Kind: kind,
		Err:  err,
	}
}
