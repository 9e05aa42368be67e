package llm

import (
	"context"
	"sync"
)

// MockResult defines a canned outcome for the mock generator.
type MockResult struct {
	Response *Response
	Err      error
}

// MockGenerator is a test double that returns pre-configured results in
// sequence. After all results are exhausted, it keeps returning the last
// one. It records every request for later assertion.
type MockGenerator struct {
	mu      sync.Mutex
	results []MockResult
	calls   []Request
	idx     int
}

// Compile-time check that MockGenerator satisfies the Generator interface.
var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock that returns the given results in order.
// If no results are provided, Generate returns an empty Response.
func NewMockGenerator(results ...MockResult) *MockGenerator {
	return &MockGenerator{results: results}
}

// Generate returns the next canned result and records the request.
// It respects context cancellation.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.results) == 0 {
		return &Response{Model: "mock"}, nil
	}

	r := m.results[m.idx]
	if m.idx < len(m.results)-1 {
		m.idx++
	}

	if r.Err != nil {
		return nil, r.Err
	}
	resp := *r.Response
	if resp.Model == "" {
		resp.Model = "mock"
	}
	return &resp, nil
}

// Calls returns a copy of all requests received by this mock.
func (m *MockGenerator) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears call history and resets the result index to zero.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
	m.idx = 0
}
