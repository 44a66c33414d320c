package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/infrastructure/llm/claude"
	"removal-agent/internal/infrastructure/llm/gemini"
	"removal-agent/internal/infrastructure/llm/openrouter"
)

const (
	ProviderNone       = "none"
	ProviderClaude     = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the advisor backend. Provider "none" or an empty API key yields a
// nil port; the advisor then runs without suggestions.
func New(ctx context.Context, cfg Config, logger output.LoggerPort) (output.LLMPort, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderNone {
		return nil, nil
	}
	if cfg.APIKey == "" {
		logger.Warn("LLM API key missing, advisor disabled", "provider", provider)
		return nil, nil
	}

	switch provider {
	case ProviderClaude, "claude":
		c := claude.DefaultConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		c.BaseURL = cfg.BaseURL
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
		return claude.NewAdapter(c, logger), nil

	case ProviderOpenRouter:
		c := openrouter.DefaultConfig(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			c.BaseURL = cfg.BaseURL
		}
		c.Logger = logger
		return openrouter.NewOpenRouterAdapter(c), nil

	case ProviderGemini:
		c := gemini.DefaultConfig(cfg.APIKey)
		if cfg.Model != "" {
			c.Model = cfg.Model
		}
		if cfg.Timeout > 0 {
			c.Timeout = cfg.Timeout
		}
		a, err := gemini.NewAdapter(ctx, c, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
