// Package llm provides the request orchestration pipeline for the game's
// text-generation backend: a validated client with response caching and
// bounded retries, plus a provider-agnostic Generator interface and
// implementations.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator abstracts a text-generation backend behind a single synchronous
// call. Implementations must respect context cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Config holds the validated connection settings for a backend. It is
// immutable for the lifetime of a Client; any "current configuration" notion
// lives with the caller, not here.
type Config struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Validate checks every field. A Config that fails validation must never
// reach the network layer.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api_key must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be greater than 0", ErrInvalidConfig)
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: temperature must be in range [0.0, 2.0]", ErrInvalidConfig)
	}
	return nil
}

// Request describes a single generation request.
type Request struct {
	// Prompt is the user message to send. Must be non-empty after trimming.
	Prompt string

	// MaxTokens overrides the configured maximum for this call. The
	// effective value is clamped to the configuration ceiling.
	MaxTokens *int

	// Temperature overrides the configured temperature for this call.
	Temperature *float64
}

// Response is the normalized result of a generation call, produced only by
// successfully parsing one of the accepted upstream payload shapes.
type Response struct {
	Text             string `json:"text"`
	Model            string `json:"model,omitempty"`
	FinishReason     string `json:"finish_reason,omitempty"`
	PromptTokens     *int   `json:"prompt_tokens,omitempty"`
	CompletionTokens *int   `json:"completion_tokens,omitempty"`
	TotalTokens      *int   `json:"total_tokens,omitempty"`
}
