package fetch

import (
	"context"
	"errors"
	"fmt"
)

// FetchError is returned for network failures and non-2xx upstream responses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: upstream status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed: network errors and 5xx only.
func (e *FetchError) Retryable() bool {
	if e.StatusCode != 0 {
		return e.StatusCode >= 500
	}
	return !errors.Is(e.Err, context.Canceled)
}

func isRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}
