package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nobodyrpg/nobody/internal/llm"
)

// Provider selects which Generator implementation a resolved configuration
// drives.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// EnvProvider selects the provider when resolving from the environment.
const EnvProvider = "NOBODY_LLM_PROVIDER"

// Settings is a resolved configuration: the provider plus the LLM settings
// it needs. For the anthropic provider the endpoint is unused and only the
// API key is required; model and max tokens override the SDK defaults when
// set.
type Settings struct {
	Provider string
	LLM      llm.Config
}

// normalize fills the default provider and rejects unknown ones.
func (s *Settings) normalize() error {
	if s.Provider == "" {
		s.Provider = ProviderOpenAI
	}
	switch s.Provider {
	case ProviderOpenAI, ProviderAnthropic:
		return nil
	default:
		return fmt.Errorf("%w: unknown provider %q", llm.ErrInvalidConfig, s.Provider)
	}
}

// validate checks the provider-specific requirements, filling OpenAI
// defaults in place.
func (s *Settings) validate() error {
	if err := s.normalize(); err != nil {
		return err
	}
	if s.Provider == ProviderAnthropic {
		if s.LLM.APIKey == "" {
			return fmt.Errorf("%w: api key must not be empty", llm.ErrInvalidConfig)
		}
		return nil
	}
	applyDefaults(&s.LLM)
	return s.LLM.Validate()
}

// NewGenerator constructs the Generator the settings describe.
func (s *Settings) NewGenerator() (llm.Generator, error) {
	if s.Provider == ProviderAnthropic {
		opts := []llm.AnthropicOption{llm.WithAnthropicAPIKey(s.LLM.APIKey)}
		if s.LLM.Model != "" {
			opts = append(opts, llm.WithAnthropicModel(s.LLM.Model))
		}
		if s.LLM.MaxTokens > 0 {
			opts = append(opts, llm.WithAnthropicMaxTokens(s.LLM.MaxTokens))
		}
		return llm.NewAnthropicGenerator(opts...)
	}
	return llm.NewClient(s.LLM)
}

// SettingsFromEnv builds settings from NOBODY_LLM_* variables. The anthropic
// provider needs only the API key; anything else goes through FromEnv.
func SettingsFromEnv() (*Settings, bool) {
	if os.Getenv(EnvProvider) == ProviderAnthropic {
		apiKey := os.Getenv(EnvAPIKey)
		if apiKey == "" {
			return nil, false
		}
		s := &Settings{
			Provider: ProviderAnthropic,
			LLM: llm.Config{
				APIKey: apiKey,
				Model:  os.Getenv(EnvModel),
			},
		}
		if raw := os.Getenv(EnvMaxTokens); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				s.LLM.MaxTokens = v
			}
		}
		return s, true
	}

	cfg, ok := FromEnv()
	if !ok {
		return nil, false
	}
	return &Settings{Provider: ProviderOpenAI, LLM: *cfg}, true
}
