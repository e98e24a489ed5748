// Package agent routes prompts to the configured LLM provider.
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"econ_dashboard/pkg/core/llm"

	"github.com/rs/zerolog"
)

const (
	// AgentFinance is the agent type used for statement summaries.
	AgentFinance = "finance"

	DefaultProvider = "openai"
)

type Config struct {
	ActiveProvider string                        `yaml:"active_provider"`
	Timeout        time.Duration                 `yaml:"timeout"`
	Agents         map[string]AgentConfig        `yaml:"agents"`
	Providers      map[string]llm.ProviderConfig `yaml:"providers"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	log       zerolog.Logger
}

// NewManager builds every known provider from its config block.
func NewManager(config Config, log zerolog.Logger) *Manager {
	if config.ActiveProvider == "" {
		config.ActiveProvider = DefaultProvider
	}
	pc := config.Providers
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"openai":   llm.NewOpenAIProvider(pc["openai"]),
			"gemini":   llm.NewGeminiProvider(pc["gemini"]),
			"deepseek": llm.NewDeepSeekProvider(pc["deepseek"]),
			"qwen":     llm.NewQwenProvider(pc["qwen"]),
		},
		log: log.With().Str("component", "agent").Logger(),
	}
}

// Register adds or replaces a provider under name.
func (m *Manager) Register(name string, p llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
}

// ResolveName returns the provider name used for agentType.
func (m *Manager) ResolveName(agentType string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(agentType)
}

func (m *Manager) resolveLocked(agentType string) string {
	// 1. Check for agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if _, ok := m.providers[agentConfig.Provider]; ok {
			return agentConfig.Provider
		}
	}

	// 2. Use global active provider
	if _, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider
	}

	// 3. Fallback
	return DefaultProvider
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[m.resolveLocked(agentType)]
}

// GetProviderByName retrieves a provider instance by its specific name (e.g. "deepseek", "gemini")
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

// ExecutePrompt handles instruction adaptation before sending to the model.
// It returns the answer and the name of the provider that produced it.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, string, error) {
	m.mu.RLock()
	name := m.resolveLocked(agentType)
	provider := m.providers[name]
	timeout := m.config.Timeout
	m.mu.RUnlock()

	if provider == nil {
		return "", name, fmt.Errorf("provider %s not registered", name)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.log.Debug().Str("agent", agentType).Str("provider", name).Msg("Executing prompt")

	// Adapt instructions based on the model's specialized "teaching" style
	adaptedSystemPrompt := provider.AdaptInstructions(rawSystemPrompt)

	start := time.Now()
	out, err := provider.GenerateResponse(ctx, rawPrompt, adaptedSystemPrompt, options)
	if err != nil {
		m.log.Warn().Err(err).Str("provider", name).Dur("elapsed", time.Since(start)).Msg("LLM call failed")
		return "", name, err
	}
	m.log.Info().Str("provider", name).Dur("elapsed", time.Since(start)).Int("chars", len(out)).Msg("LLM call completed")
	return out, name, nil
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.log.Info().Str("provider", newProvider).Msg("Global provider switched")
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names, sorted.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
