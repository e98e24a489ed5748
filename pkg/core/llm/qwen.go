package llm

const (
	DefaultQwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultQwenModel   = "qwen-max"
)

// NewQwenProvider uses DashScope's OpenAI-compatible mode.
func NewQwenProvider(cfg ProviderConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultQwenBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultQwenModel
	}
	return newCompatibleProvider("qwen", cfg)
}
