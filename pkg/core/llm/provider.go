// Package llm wraps the chat-completion backends used for statement analysis.
package llm

import (
	"context"
	"errors"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

var (
	// ErrMissingAPIKey is returned when a provider is called without credentials.
	ErrMissingAPIKey = errors.New("api key not configured")
	// ErrEmptyResponse is returned when the model answered with no choices.
	ErrEmptyResponse = errors.New("empty response from model")
)

// ProviderConfig holds per-provider settings from app.yaml. APIKey is usually
// filled from the environment.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

func optString(options map[string]interface{}, key string) string {
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}

func optFloat(options map[string]interface{}, key string) (float32, bool) {
	switch v := options[key].(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	}
	return 0, false
}
