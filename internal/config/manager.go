package config

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// Source identifies where a resolved config came from.
type Source string

const (
	SourceRuntime Source = "runtime"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceNone    Source = "none"
)

// Status summarizes the current resolution without exposing the API key.
type Status struct {
	Source      Source
	Provider    string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	HasAPIKey   bool
}

// Manager holds an in-process config override and persists explicit
// settings to the config file. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	path    string
	runtime *Settings
}

// NewManager returns a manager backed by the config file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Set validates s, installs it as the runtime override and persists it to
// the config file.
func (m *Manager) Set(s Settings) error {
	if err := s.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Create(m.path) //nolint:gosec // user config path
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // write error surfaces below

	fileProvider := s.Provider
	if fileProvider == ProviderOpenAI {
		fileProvider = ""
	}
	if err := Write(f, &File{
		Provider:    fileProvider,
		Endpoint:    s.LLM.Endpoint,
		APIKey:      s.LLM.APIKey,
		Model:       s.LLM.Model,
		MaxTokens:   s.LLM.MaxTokens,
		Temperature: s.LLM.Temperature,
	}); err != nil {
		return err
	}

	m.runtime = &s
	return nil
}

// Clear drops the runtime override and removes the config file.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runtime = nil
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Current returns a copy of the runtime override, if any.
func (m *Manager) Current() (*Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runtime == nil {
		return nil, false
	}
	s := *m.runtime
	return &s, true
}

// Resolve returns the effective settings: runtime override, then config
// file, then environment.
func (m *Manager) Resolve() (*Settings, bool) {
	s, _, ok := m.resolve()
	return s, ok
}

// Status reports the effective config and its source with the API key
// reduced to a presence flag.
func (m *Manager) Status() Status {
	s, source, ok := m.resolve()
	if !ok {
		return Status{Source: SourceNone}
	}
	return Status{
		Source:      source,
		Provider:    s.Provider,
		Endpoint:    s.LLM.Endpoint,
		Model:       s.LLM.Model,
		MaxTokens:   s.LLM.MaxTokens,
		Temperature: s.LLM.Temperature,
		HasAPIKey:   s.LLM.APIKey != "",
	}
}

func (m *Manager) resolve() (*Settings, Source, bool) {
	if s, ok := m.Current(); ok {
		return s, SourceRuntime, true
	}

	if f, err := Load(m.path); err == nil {
		if s, ok := f.toSettings(); ok {
			return s, SourceFile, true
		}
	}

	if s, ok := SettingsFromEnv(); ok {
		return s, SourceEnv, true
	}
	return nil, SourceNone, false
}
