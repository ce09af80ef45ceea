package ai

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Options configures a gateway. Zero values are replaced with defaults
type Options struct {
	// Model is the provider-specific model id. Empty selects the provider's default
	Model string
	// MaxOutputTokens bounds the length of each reply
	MaxOutputTokens int64
	// SystemPrompt defines the persona. Empty selects the coach persona
	SystemPrompt string
	// HTTPClient carries requests to the provider. Its timeout, if any, bounds each turn
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 2048
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = SystemPrompt()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// NewGateway creates a gateway for the named provider
func NewGateway(provider string, opts Options) (Gateway, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGeminiGateway(opts), nil
	case ProviderAnthropic:
		return NewAnthropicGateway(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider '%s', expected '%s' or '%s'", provider, ProviderGemini, ProviderAnthropic)
	}
}
