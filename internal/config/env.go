package config

import (
	"os"
	"strconv"

	"github.com/nobodyrpg/nobody/internal/llm"
)

// Environment variables consulted when no runtime or file config exists.
const (
	EnvEndpoint    = "NOBODY_LLM_ENDPOINT"
	EnvAPIKey      = "NOBODY_LLM_API_KEY"
	EnvModel       = "NOBODY_LLM_MODEL"
	EnvMaxTokens   = "NOBODY_LLM_MAX_TOKENS"
	EnvTemperature = "NOBODY_LLM_TEMPERATURE"
)

// Defaults for the optional settings.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
)

// FromEnv builds a config from NOBODY_LLM_* variables. Endpoint and API key
// are required; model, max tokens and temperature fall back to defaults.
// Malformed numeric values are treated as unset.
func FromEnv() (*llm.Config, bool) {
	endpoint := os.Getenv(EnvEndpoint)
	apiKey := os.Getenv(EnvAPIKey)
	if endpoint == "" || apiKey == "" {
		return nil, false
	}

	cfg := &llm.Config{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Model:       os.Getenv(EnvModel),
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if raw := os.Getenv(EnvMaxTokens); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.MaxTokens = v
		}
	}
	if raw := os.Getenv(EnvTemperature); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Temperature = v
		}
	}
	return cfg, true
}
