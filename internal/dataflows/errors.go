package dataflows

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes carried inside a ProviderError so callers can tell a
// missing symbol from a throttled or unauthenticated request.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrAuthFailed  = errors.New("authentication failed")
)

// InvalidInputError reports a malformed ticker or date before any I/O.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ProviderError wraps any failure at a provider boundary. Cause may be a
// sentinel above, a context error, or the raw transport error.
type ProviderError struct {
	Provider string
	Ticker   string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Ticker, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// CacheMissError means offline mode was requested but no snapshot exists.
type CacheMissError struct {
	Ticker string
	Path   string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("no offline snapshot for %s at %s", e.Ticker, e.Path)
}

// UnknownIndicatorError names the requested indicator and the registry.
type UnknownIndicatorError struct {
	Indicator string
	Known     []string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("indicator %s is not supported. Please choose from: %s",
		e.Indicator, strings.Join(e.Known, ", "))
}

// InvalidWindowError reports a date window with start after end.
type InvalidWindowError struct {
	Start string
	End   string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid date window: start %s is after end %s", e.Start, e.End)
}
