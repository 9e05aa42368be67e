// Package config resolves the LLM endpoint configuration. Explicit runtime
// values win over the .nobody.yaml file, which wins over NOBODY_LLM_*
// environment variables.
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nobodyrpg/nobody/internal/llm"
)

// FileName is the expected config file name.
const FileName = ".nobody.yaml"

// File represents the contents of a .nobody.yaml file. Zero values mean
// "unset" and are filled from defaults during resolution.
type File struct {
	Provider    string  `yaml:"provider,omitempty"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Load reads a config file from path. A missing file yields a zero-value
// File and nil error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user config path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Write marshals the config to YAML and writes it to w.
func Write(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close() //nolint:errcheck // best-effort close
	enc.SetIndent(2)
	return enc.Encode(f)
}

// toSettings converts a file config to resolved settings, filling defaults
// for any unset optional field. Returns false when the fields the provider
// requires are absent.
func (f *File) toSettings() (*Settings, bool) {
	s := &Settings{
		Provider: f.Provider,
		LLM: llm.Config{
			Endpoint:    f.Endpoint,
			APIKey:      f.APIKey,
			Model:       f.Model,
			MaxTokens:   f.MaxTokens,
			Temperature: f.Temperature,
		},
	}
	if err := s.normalize(); err != nil {
		return nil, false
	}
	if s.Provider == ProviderAnthropic {
		if s.LLM.APIKey == "" {
			return nil, false
		}
		return s, true
	}
	if s.LLM.Endpoint == "" || s.LLM.APIKey == "" {
		return nil, false
	}
	applyDefaults(&s.LLM)
	return s, true
}

func applyDefaults(cfg *llm.Config) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
}
