// Package errs holds the error kinds shared by the scraping pipeline and the API layer.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError is returned before any network call when a request parameter is missing or malformed.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// AuthError means the API key was missing, unknown, revoked or out of quota.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// ExtractionEmptyError is returned when a page was fetched but nothing recognisable was found on it.
type ExtractionEmptyError struct {
	Provider string
	What     string
}

func (e *ExtractionEmptyError) Error() string {
	return fmt.Sprintf("%s: no %s found", e.Provider, e.What)
}

var (
	ErrHostNotAllowed = errors.New("host not allowed")
	ErrChainTooLong   = errors.New("chain too long")
	ErrCycle          = errors.New("redirect cycle")
	ErrNoNextHop      = errors.New("no next hop")
)

// ResolutionError wraps the reason a link chain could not reach a terminal URL.
type ResolutionError struct {
	URL  string
	Hops int
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v after %d hops", e.URL, e.Err, e.Hops)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
