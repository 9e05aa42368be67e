package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobodyrpg/nobody/internal/llm"
)

func TestNewAnthropicGenerator_WithAPIKey(t *testing.T) {
	g, err := llm.NewAnthropicGenerator(llm.WithAnthropicAPIKey("test-key-123"))
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestNewAnthropicGenerator_FromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-test-key")

	g, err := llm.NewAnthropicGenerator()
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestNewAnthropicGenerator_NoKeyError(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	g, err := llm.NewAnthropicGenerator()
	assert.Nil(t, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestAnthropicGenerator_CustomModel(t *testing.T) {
	g, err := llm.NewAnthropicGenerator(
		llm.WithAnthropicAPIKey("test-key"),
		llm.WithAnthropicModel("claude-haiku-3-5-20241022"),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-3-5-20241022", g.Model())
}
