package llm

const (
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	DefaultDeepSeekModel   = "deepseek-chat"
)

// NewDeepSeekProvider uses DeepSeek's OpenAI-compatible chat endpoint.
func NewDeepSeekProvider(cfg ProviderConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeepSeekBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultDeepSeekModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return newCompatibleProvider("deepseek", cfg)
}
