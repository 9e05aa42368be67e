package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nobodyrpg/nobody/internal/tokens"
)

const (
	defaultTimeout = 30 * time.Second

	// maxRetries is the number of additional attempts after the first (3
	// total) for retryable failures.
	maxRetries = 2

	// retryBackoff is multiplied by the 1-based attempt number before each
	// retry. Linear rather than exponential: backend latency is second-scale,
	// so sub-second linear backoff is sufficient.
	retryBackoff = 200 * time.Millisecond

	// promptTokenFactor bounds the estimated prompt size relative to the
	// effective max-tokens, guarding against pathological inputs.
	promptTokenFactor = 64
)

// Client executes generation requests against an OpenAI-compatible endpoint
// with response caching and bounded retries. A single Client is safe for
// concurrent use; the configuration is validated once at construction and
// never mutated.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *ResponseCache
	group      singleflight.Group
}

// Compile-time check that Client satisfies the Generator interface.
var _ Generator = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	cache      *ResponseCache
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithTimeout overrides the default 30s per-call network timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// WithCache substitutes the response cache, e.g. to change its bounds.
func WithCache(cache *ResponseCache) ClientOption {
	return func(o *clientOptions) { o.cache = cache }
}

// NewClient validates cfg and constructs a Client. An invalid configuration
// fails here with ErrInvalidConfig; it never reaches a request path.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	if o.cache == nil {
		o.cache = NewResponseCache(DefaultCacheMaxEntries, DefaultCacheTTL)
	}

	return &Client{
		cfg:        cfg,
		httpClient: o.httpClient,
		cache:      o.cache,
	}, nil
}

// Config returns the immutable configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// Generate validates req, consults the cache, and on a miss executes the
// call with bounded retries, normalizes the result and populates the cache.
// Concurrent calls with an identical fingerprint are collapsed into a single
// network round-trip.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	maxTokens, temperature, err := c.validateRequest(req)
	if err != nil {
		return nil, err
	}

	key := c.fingerprint(req.Prompt, maxTokens, temperature)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A collapsed caller may have populated the cache while this one
		// waited on the flight group.
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}

		resp, err := c.execute(ctx, req.Prompt, maxTokens, temperature)
		if err != nil {
			return nil, err
		}
		c.cache.Insert(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// validateRequest resolves the effective max-tokens and temperature and
// enforces the request invariants. Failures never touch the network or the
// cache.
func (c *Client) validateRequest(req Request) (int, float64, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return 0, 0, fmt.Errorf("%w: prompt must not be empty", ErrInvalidRequest)
	}

	maxTokens := c.cfg.MaxTokens
	if req.MaxTokens != nil && *req.MaxTokens < maxTokens {
		maxTokens = *req.MaxTokens
	}
	if maxTokens <= 0 {
		return 0, 0, fmt.Errorf("%w: max_tokens must be greater than 0", ErrInvalidRequest)
	}

	temperature := c.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0.0 || temperature > 2.0 {
		return 0, 0, fmt.Errorf("%w: temperature must be in range [0.0, 2.0]", ErrInvalidRequest)
	}

	estimated := tokens.Estimate(req.Prompt)
	limit := maxTokens * promptTokenFactor
	if estimated > limit {
		return 0, 0, fmt.Errorf("%w: estimated prompt tokens %d exceeds prompt limit %d",
			ErrInvalidRequest, estimated, limit)
	}

	return maxTokens, temperature, nil
}

// fingerprint derives the deterministic cache key. The temperature is hashed
// by its exact bit pattern so distinguishable float values never collide.
func (c *Client) fingerprint(prompt string, maxTokens int, temperature float64) string {
	h := sha256.New()
	// NUL separators prevent collisions from field concatenation.
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%016x",
		c.cfg.Endpoint, c.cfg.Model, prompt, maxTokens, math.Float64bits(temperature))
	return hex.EncodeToString(h.Sum(nil))
}

// execute performs the network round-trips for one logical call, retrying
// retryable failures up to maxRetries times with linear backoff.
func (c *Client) execute(ctx context.Context, prompt string, maxTokens int, temperature float64) (*Response, error) {
	payload, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"stream":      false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrInvalidRequest, err)
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.send(ctx, payload)
		if err == nil {
			return resp, nil
		}

		if attempt <= maxRetries && IsRetryable(err) {
			slog.Debug("retrying llm request",
				"attempt", attempt, "error", err)
			if serr := c.sleep(ctx, time.Duration(attempt)*retryBackoff); serr != nil {
				return nil, serr
			}
			continue
		}
		return nil, err
	}
}

// send performs exactly one HTTP round-trip and normalizes the outcome.
func (c *Client) send(ctx context.Context, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTP, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // best-effort close

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		body := "failed to read error response body"
		if b, rerr := io.ReadAll(httpResp.Body); rerr == nil {
			body = string(b)
		}
		return nil, &APIError{Status: httpResp.StatusCode, Body: body}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrHTTP, err)
	}
	return parseResponse(body)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrHTTP, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// wirePayload covers every accepted upstream response shape at once; the
// extractors below decide which one actually matched.
type wirePayload struct {
	Model      string `json:"model"`
	OutputText string `json:"output_text"`
	Choices    []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
}

// textExtractors is the ordered list of shape strategies: chat-style,
// completion-style, then the flat output_text field. The first strategy
// yielding non-empty trimmed text wins.
var textExtractors = []func(*wirePayload) string{
	func(w *wirePayload) string {
		if len(w.Choices) == 0 {
			return ""
		}
		return w.Choices[0].Message.Content
	},
	func(w *wirePayload) string {
		if len(w.Choices) == 0 {
			return ""
		}
		return w.Choices[0].Text
	},
	func(w *wirePayload) string {
		return w.OutputText
	},
}

// parseResponse normalizes a 2xx body into a Response, failing with
// ErrInvalidResponse when no recognized shape yields non-empty text.
func parseResponse(body []byte) (*Response, error) {
	var wire wirePayload
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var text string
	for _, extract := range textExtractors {
		if t := strings.TrimSpace(extract(&wire)); t != "" {
			text = t
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("%w: unable to locate text content", ErrInvalidResponse)
	}

	resp := &Response{
		Text:             text,
		Model:            wire.Model,
		PromptTokens:     wire.Usage.PromptTokens,
		CompletionTokens: wire.Usage.CompletionTokens,
		TotalTokens:      wire.Usage.TotalTokens,
	}
	if len(wire.Choices) > 0 {
		resp.FinishReason = wire.Choices[0].FinishReason
	}
	return resp, nil
}
