package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGateway_Providers(t *testing.T) {
	g, err := NewGateway("", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GeminiGateway{}, g)

	g, err = NewGateway(ProviderGemini, Options{})
	require.NoError(t, err)
	assert.IsType(t, &GeminiGateway{}, g)

	g, err = NewGateway(ProviderAnthropic, Options{})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGateway{}, g)

	_, err = NewGateway("openai", Options{})
	assert.Error(t, err)
}

func TestNewGateway_ModelDefaults(t *testing.T) {
	gg := NewGeminiGateway(Options{})
	assert.Equal(t, DefaultGeminiModel, gg.model)
	assert.Equal(t, SystemPrompt(), gg.systemPrompt)

	gg = NewGeminiGateway(Options{Model: "gemini-2.5-pro", SystemPrompt: "custom"})
	assert.Equal(t, "gemini-2.5-pro", gg.model)
	assert.Equal(t, "custom", gg.systemPrompt)

	ag := NewAnthropicGateway(Options{})
	assert.Equal(t, DefaultAnthropicModel, ag.model)
	assert.Equal(t, int64(2048), ag.maxOutputTokens)
}

func TestInitializeSession_EmptyCredential(t *testing.T) {
	for name, g := range map[string]Gateway{
		"gemini":    NewGeminiGateway(Options{}),
		"anthropic": NewAnthropicGateway(Options{}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := g.InitializeSession(context.Background(), "  ")
			var ie *InitializationError
			require.ErrorAs(t, err, &ie)
		})
	}
}

func TestInitializeSession_Offline(t *testing.T) {
	// Neither SDK contacts the service until the first turn
	for name, g := range map[string]Gateway{
		"gemini":    NewGeminiGateway(Options{}),
		"anthropic": NewAnthropicGateway(Options{}),
	} {
		t.Run(name, func(t *testing.T) {
			s, err := g.InitializeSession(context.Background(), "not-a-real-key")
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}
