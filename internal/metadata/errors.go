package metadata

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited = errors.New("rate limited by upstream")
	ErrUpstream    = errors.New("upstream error")
	ErrDecode      = errors.New("invalid upstream response")
)

// FetchError wraps a provider failure with the operation that failed.
// It is logged, never returned to API callers.
type FetchError struct {
	Provider string
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func wrapError(provider, op string, err error) error {
	return &FetchError{Provider: provider, Op: op, Err: err}
}

func statusError(code int) error {
	if code == 429 {
		return ErrRateLimited
	}
	return fmt.Errorf("%w: status %d", ErrUpstream, code)
}
