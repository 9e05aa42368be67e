package validate

import (
	"fmt"

	"github.com/nobodyrpg/nobody/internal/llm"
)

// DefaultMaxAttempts bounds how many retry candidates Resolve will request
// after the initial response fails validation.
const DefaultMaxAttempts = 3

// RetryExhaustedError reports that every candidate, retries and fallback
// included, failed validation.
type RetryExhaustedError struct {
	Attempts  int
	LastError error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastError
}

// RetryFunc produces a replacement candidate for the given attempt number
// (1-based). Returning nil skips the attempt; the attempt slot is still
// consumed.
type RetryFunc func(attempt int) *llm.Response

// Resolver applies constraints to a response and, on failure, works through
// retry candidates and a fallback until one validates.
type Resolver struct {
	MaxAttempts int
}

// NewResolver returns a Resolver with the default attempt budget.
func NewResolver() *Resolver {
	return &Resolver{MaxAttempts: DefaultMaxAttempts}
}

// Resolve returns the first response that satisfies cons, trying initial,
// then up to MaxAttempts retry candidates, then the fallback. A nil retry
// function skips straight to the fallback. The fallback is validated like
// any other candidate; an invalid fallback does not mask the failure.
func (r *Resolver) Resolve(initial *llm.Response, cons Constraints, retry RetryFunc, fallback *llm.Response) (*llm.Response, error) {
	lastErr := Response(initial, cons)
	if lastErr == nil {
		return initial, nil
	}

	attempts := 0
	if retry != nil {
		maxAttempts := r.MaxAttempts
		if maxAttempts < 1 {
			maxAttempts = DefaultMaxAttempts
		}
		for attempts < maxAttempts {
			attempts++
			candidate := retry(attempts)
			if candidate == nil {
				continue
			}
			if err := Response(candidate, cons); err != nil {
				lastErr = err
				continue
			}
			return candidate, nil
		}
	}

	if fallback != nil {
		if err := Response(fallback, cons); err != nil {
			lastErr = err
		} else {
			return fallback, nil
		}
	}

	return nil, &RetryExhaustedError{Attempts: attempts, LastError: lastErr}
}
