package llm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nobodyrpg/nobody/internal/llm"
)

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, llm.IsRetryableStatus(429))
	for status := 500; status <= 599; status++ {
		assert.True(t, llm.IsRetryableStatus(status), "status %d", status)
	}

	for _, status := range []int{200, 301, 400, 401, 403, 404, 418, 499, 600} {
		assert.False(t, llm.IsRetryableStatus(status), "status %d", status)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, llm.IsRetryable(llm.ErrTimeout))
	assert.True(t, llm.IsRetryable(fmt.Errorf("%w: connection refused", llm.ErrHTTP)))
	assert.True(t, llm.IsRetryable(&llm.APIError{Status: 503, Body: "oops"}))
	assert.True(t, llm.IsRetryable(&llm.APIError{Status: 429, Body: "slow down"}))

	assert.False(t, llm.IsRetryable(&llm.APIError{Status: 400, Body: "bad"}))
	assert.False(t, llm.IsRetryable(llm.ErrInvalidRequest))
	assert.False(t, llm.IsRetryable(llm.ErrInvalidResponse))
	assert.False(t, llm.IsRetryable(llm.ErrInvalidConfig))
}

func TestAPIError_Message(t *testing.T) {
	err := &llm.APIError{Status: 502, Body: "upstream sad"}
	assert.Equal(t, "llm api returned error: status=502 body=upstream sad", err.Error())
}
