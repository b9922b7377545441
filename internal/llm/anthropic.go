package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/seenimoa/earningsai/internal/config"
)

const (
	defaultAnthropicModel     = config.DefaultAnthropicModel
	defaultAnthropicMaxTokens = 4096
)

// AnthropicProvider implements ChatProvider on the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	model   string
	baseURL string
	client  *http.Client
}

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(s *anthropicSettings) { s.model = model }
}

// WithAnthropicBaseURL sets a custom base URL.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(s *anthropicSettings) { s.baseURL = strings.TrimRight(url, "/") + "/" }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(s *anthropicSettings) { s.client = client }
}

// NewAnthropicProvider creates an Anthropic provider. SDK retries are
// disabled; a failed call surfaces to the caller as is.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := anthropicSettings{
		model:  defaultAnthropicModel,
		client: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(s.client),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		model:  s.model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Ping verifies the API key by listing models.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return mapAnthropicError(err)
	}
	return nil
}

// Chat sends a Messages API request. System messages are lifted into the
// request's system prompt. TopP is only sent when it narrows sampling,
// since several models reject temperature and top_p together.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	o := DefaultChatOptions()
	if opts != nil {
		o = *opts
	}
	model := p.model
	if o.Model != "" {
		model = o.Model
	}
	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(o.Temperature),
	}
	if o.TopP > 0 && o.TopP < 1 {
		params.TopP = anthropic.Float(o.TopP)
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &Response{
		Content:      text.String(),
		FinishReason: mapFinishReason(string(msg.StopReason)),
		Model:        string(msg.Model),
		Provider:     ProviderAnthropic,
		Latency:      time.Since(start),
		Usage:        Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}

// mapAnthropicError translates SDK API errors onto the package sentinels.
func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrNoAPIKey, err)
	case http.StatusTooManyRequests, 529:
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return fmt.Errorf("anthropic: API error (%d): %w", apiErr.StatusCode, err)
}
