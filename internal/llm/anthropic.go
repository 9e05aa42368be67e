package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// defaultAnthropicModel is the model used when no override is provided.
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	// defaultAnthropicMaxTokens caps output length when the caller does not
	// supply a per-call override.
	defaultAnthropicMaxTokens = 1024
)

// AnthropicGenerator is an alternate Generator backed by the official
// Anthropic SDK, for installations pointed at Anthropic instead of an
// OpenAI-compatible endpoint. The SDK handles transient-error retries
// itself, so this generator carries no retry loop of its own.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// Compile-time check that AnthropicGenerator satisfies Generator.
var _ Generator = (*AnthropicGenerator)(nil)

// AnthropicOption configures an AnthropicGenerator.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	apiKey    string
	model     string
	maxTokens int
}

// WithAnthropicAPIKey sets the API key. If not provided, the generator reads
// ANTHROPIC_API_KEY from the environment.
func WithAnthropicAPIKey(key string) AnthropicOption {
	return func(c *anthropicConfig) { c.apiKey = key }
}

// WithAnthropicModel overrides the default model for all requests.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) { c.model = model }
}

// WithAnthropicMaxTokens sets the default max output tokens per request.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = n }
}

// NewAnthropicGenerator creates an Anthropic-backed generator. It returns an
// error if no API key is available (neither via option nor env).
func NewAnthropicGenerator(opts ...AnthropicOption) (*AnthropicGenerator, error) {
	cfg := anthropicConfig{
		model:     defaultAnthropicModel,
		maxTokens: defaultAnthropicMaxTokens,
	}
	for _, o := range opts {
		o(&cfg)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: ANTHROPIC_API_KEY not set and no API key provided")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicGenerator{
		client:    client,
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
	}, nil
}

// Generate sends the prompt to the Anthropic Messages API and normalizes the
// result into a Response.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", ErrInvalidRequest)
	}

	maxTokens := g.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 && *req.MaxTokens < maxTokens {
		maxTokens = *req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTP, err)
	}

	var text string
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: unable to locate text content", ErrInvalidResponse)
	}

	in := int(msg.Usage.InputTokens)
	out := int(msg.Usage.OutputTokens)
	total := in + out

	return &Response{
		Text:             text,
		Model:            string(msg.Model),
		FinishReason:     string(msg.StopReason),
		PromptTokens:     &in,
		CompletionTokens: &out,
		TotalTokens:      &total,
	}, nil
}

// Model returns the default model configured for this generator.
func (g *AnthropicGenerator) Model() string {
	return g.model
}
