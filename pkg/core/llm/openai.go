package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = "gpt-4"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	name   string
	client *openai.Client
	cfg    ProviderConfig
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for api.openai.com (or cfg.BaseURL).
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return newCompatibleProvider("openai", cfg)
}

func newCompatibleProvider(name string, cfg ProviderConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

// Name returns the provider key used in configuration.
func (p *OpenAIProvider) Name() string { return p.name }

// GenerateResponse sends a system + user message pair and returns the first choice.
// options may override "model" and "temperature".
func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	if p.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrMissingAPIKey)
	}

	model := p.cfg.Model
	if m := optString(options, "model"); m != "" {
		model = m
	}

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: p.cfg.MaxTokens,
	}
	if p.cfg.Temperature > 0 {
		req.Temperature = p.cfg.Temperature
	}
	if t, ok := optFloat(options, "temperature"); ok {
		req.Temperature = t
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) AdaptInstructions(raw string) string {
	return raw
}
