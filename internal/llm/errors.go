package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for the pipeline's failure taxonomy. Callers match with
// errors.Is; messages carry the specific cause.
var (
	// ErrInvalidConfig means the configuration failed validation. Surfaced
	// at client construction, never per call.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidRequest means the caller's request failed validation. The
	// network and the cache are never touched.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTimeout means a network call exceeded the client timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrHTTP means the transport failed before an HTTP status was received.
	ErrHTTP = errors.New("http request failed")

	// ErrInvalidResponse means a 2xx body could not be normalized into a
	// Response with non-empty text.
	ErrInvalidResponse = errors.New("invalid llm response")
)

// APIError reports a non-2xx upstream status together with the body text.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api returned error: status=%d body=%s", e.Status, e.Body)
}

// IsRetryableStatus reports whether an upstream status is eligible for
// backoff-retry: 429 or any 5xx.
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status <= 599)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// a timeout, a transport-level failure, or an API error with a retryable
// status.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrHTTP) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return IsRetryableStatus(apiErr.Status)
	}
	return false
}

// classifyTransportError wraps a transport error as ErrTimeout or ErrHTTP.
func classifyTransportError(err error) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrHTTP, err)
}
