package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/seenimoa/earningsai/internal/config"
)

const defaultOpenAIModel = config.DefaultOpenAIModel

// OpenAIProvider implements ChatProvider for OpenAI's Chat Completions API.
// Any server speaking the same protocol works through WithOpenAIBaseURL.
type OpenAIProvider struct {
	client  *openai.Client
	baseURL string
	model   string
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAISettings)

type openAISettings struct {
	baseURL string
	model   string
	client  *http.Client
}

// WithOpenAIBaseURL sets a custom base URL (e.g., for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(s *openAISettings) { s.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openAISettings) { s.model = model }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(s *openAISettings) { s.client = client }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	s := openAISettings{
		baseURL: cfg.BaseURL,
		model:   defaultOpenAIModel,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(&s)
	}
	cfg.BaseURL = s.baseURL
	cfg.HTTPClient = s.client

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: s.baseURL,
		model:   s.model,
	}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Ping verifies the API key by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return mapOpenAIError(err)
	}
	return nil
}

// Chat sends a chat completion request to OpenAI.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	req := p.buildRequest(messages, opts)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	r := &Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: mapFinishReason(string(resp.Choices[0].FinishReason)),
		Model:        resp.Model,
		Provider:     ProviderOpenAI,
		Latency:      time.Since(start),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if r.Model == "" {
		r.Model = req.Model
	}
	return r, nil
}

// buildRequest converts messages and options. go-openai omits a zero
// temperature, which the API reads as 1, so zero is sent as the smallest
// positive float32 instead.
func (p *OpenAIProvider) buildRequest(messages []Message, opts *ChatOptions) openai.ChatCompletionRequest {
	o := DefaultChatOptions()
	if opts != nil {
		o = *opts
	}
	model := p.model
	if o.Model != "" {
		model = o.Model
	}

	temperature := float32(o.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: temperature,
		TopP:        float32(o.TopP),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	if o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}
	return req
}

// mapOpenAIError translates go-openai errors onto the package sentinels.
func mapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Message)
		case strings.Contains(code, "context_length"):
			return fmt.Errorf("%w: %s", ErrContextLength, apiErr.Message)
		case strings.Contains(code, "model_not_found"):
			return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Message)
		}
		return fmt.Errorf("openai: API error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: HTTP %d", ErrNoAPIKey, reqErr.HTTPStatusCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: HTTP %d", ErrRateLimit, reqErr.HTTPStatusCode)
		}
		return fmt.Errorf("openai: HTTP %d: %s", reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)))
	}

	return fmt.Errorf("%w: %v", ErrProviderDown, err)
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop", "end_turn", "stop_sequence":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	default:
		return FinishReason(reason)
	}
}
