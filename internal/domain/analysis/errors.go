package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited indicates the AI provider returned HTTP 429.
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrTransport indicates the provider could not be reached.
	ErrTransport = errors.New("ai provider unreachable")
	// ErrMalformedEnvelope indicates the provider response lacked a completion.
	ErrMalformedEnvelope = errors.New("ai provider response malformed")
	ErrInvalidRequest    = errors.New("invalid analysis request")
	ErrUnknownAllergen   = errors.New("unknown allergen")
)

// ProviderStatusError is a non-2xx, non-429 provider response.
type ProviderStatusError struct {
	StatusCode int
	Err        error
}

func (e *ProviderStatusError) Error() string {
	return fmt.Sprintf("ai provider returned %d %s: %v", e.StatusCode, http.StatusText(e.StatusCode), e.Err)
}

func (e *ProviderStatusError) Unwrap() error { return e.Err }

// ErrorKind is what callers see once retries are exhausted.
type ErrorKind string

const (
	ErrorRateLimited   ErrorKind = "rate_limited"
	ErrorNetwork       ErrorKind = "network"
	ErrorUnrecoverable ErrorKind = "unrecoverable"
)

// AnalysisError is returned by the orchestrator after the last attempt failed.
type AnalysisError struct {
	Kind ErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed (%s): %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Classify maps the last failure of a requester to an AnalysisError.
func Classify(err error) *AnalysisError {
	switch {
	case errors.Is(err, ErrRateLimited):
		return &AnalysisError{Kind: ErrorRateLimited, Err: err}
	case errors.Is(err, ErrTransport):
		return &AnalysisError{Kind: ErrorNetwork, Err: err}
	default:
		return &AnalysisError{Kind: ErrorUnrecoverable, Err: err}
	}
}
