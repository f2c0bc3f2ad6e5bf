package scout

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies fetch failures so callers can decide whether to
// retry, degrade, or fail.
type FetchErrorKind string

// Fetch failure kinds.
const (
	KindTimeout FetchErrorKind = "timeout"
	KindNetwork FetchErrorKind = "network"
	KindStatus  FetchErrorKind = "status"
)

// FetchError describes a failed fetch of a single URL.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError of the given kind.
func NewFetchError(kind FetchErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTimeout
}

// ErrBudgetExceeded signals that the per-request wall-clock budget ran out
// before the pipeline finished. Partial results may accompany it.
var ErrBudgetExceeded = errors.New("enrichment budget exceeded")

// ValidationError reports a malformed input URL, email, or domain.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(input, reason string) *ValidationError {
	return &ValidationError{Input: input, Reason: reason}
}
