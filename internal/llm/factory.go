package llm

import (
	"fmt"
	"net/http"

	"github.com/seenimoa/earningsai/internal/config"
)

// NewFromConfig builds the configured primary provider.
func NewFromConfig(cfg config.LLMConfig) (ChatProvider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Primary {
	case ProviderOpenAI, "":
		opts := []OpenAIOption{WithOpenAIHTTPClient(client)}
		if cfg.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		return NewOpenAIProvider(cfg.OpenAIKey, opts...)
	case ProviderAnthropic:
		opts := []AnthropicOption{WithAnthropicHTTPClient(client)}
		if cfg.Model != "" {
			opts = append(opts, WithAnthropicModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithAnthropicBaseURL(cfg.BaseURL))
		}
		return NewAnthropicProvider(cfg.AnthropicKey, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, cfg.Primary)
	}
}

// ChatOptionsFromConfig returns the per-request sampling settings.
func ChatOptionsFromConfig(cfg config.LLMConfig) ChatOptions {
	return ChatOptions{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	}
}
