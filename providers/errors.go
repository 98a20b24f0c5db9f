package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a failure reported by an upstream provider API or by
// the transport on the way there. StatusCode is zero when no HTTP
// response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s: %s (status %d, code %s)", e.Provider, e.Message, e.StatusCode, e.Code)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError for an upstream failure
func NewProviderError(provider string, statusCode int, code, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NonRetriableError marks a failure that retrying cannot fix, such as a
// malformed request or an invalid API key. It always carries the original
// error as its cause.
type NonRetriableError struct {
	Cause error
}

func (e *NonRetriableError) Error() string {
	return "non-retriable: " + e.Cause.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Cause
}

// IsRetriable reports whether a failed call is worth retrying.
//
// Classification: a NonRetriableError is final. An error carrying an HTTP
// status follows RetriableStatus. Everything else, which covers network
// faults (connection resets, DNS failures, refused connections, timeouts)
// as well as errors this core cannot recognize, is treated as transient.
// The default fails open: an upstream that breaks in unrecognizable ways
// consumes the full attempt budget before the error surfaces.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}

	var nonRetriable *NonRetriableError
	if errors.As(err, &nonRetriable) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.StatusCode != 0 {
		return RetriableStatus(provErr.StatusCode)
	}

	return true
}

// RetriableStatus classifies an HTTP status code. Server errors, rate
// limits and request timeouts are transient; any other client error is a
// request defect that retrying cannot fix.
func RetriableStatus(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return true
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return true
	case status >= http.StatusBadRequest:
		return false
	default:
		return true
	}
}

// Classify applies the adapter-side conversion rule: non-retriable
// failures are wrapped in a NonRetriableError carrying the original as
// cause, retriable failures pass through unchanged.
func Classify(err error) error {
	if err == nil || IsRetriable(err) {
		return err
	}
	var nonRetriable *NonRetriableError
	if errors.As(err, &nonRetriable) {
		return err
	}
	return &NonRetriableError{Cause: err}
}
