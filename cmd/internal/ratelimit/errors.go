package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is returned when a key is over its budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable wraps backend failures. Callers decide whether to fail open.
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// LimitError carries the remaining window for Retry-After.
type LimitError struct {
	RetryAfter time.Duration
}

func (e LimitError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e LimitError) Unwrap() error { return ErrRateLimited }

// RetryAfter extracts the retry hint from err, if any.
func RetryAfter(err error) time.Duration {
	var le LimitError
	if errors.As(err, &le) {
		return le.RetryAfter
	}
	return 0
}
