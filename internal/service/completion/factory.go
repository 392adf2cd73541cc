package completion

import (
	"fmt"
	"log/slog"

	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	"pathway/internal/config"
	chatSvc "pathway/internal/domain/services/chat"
)

// NewProvider returns the completion provider selected by configuration
//
// Supported providers:
//   - "anthropic" - Claude models via meridian-llm-go
//   - "openai" - any OpenAI-compatible endpoint via go-openai
//   - "lorem" - canned text, no API key required
func NewProvider(cfg *config.Config, logger *slog.Logger) (chatSvc.CompletionProvider, error) {
	switch cfg.CompletionProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
		}
		logger.Info("completion provider ready", "name", "anthropic", "model", cfg.CompletionModel)
		return NewLibraryProvider(provider, cfg.CompletionModel), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		logger.Info("completion provider ready", "name", "openai", "model", cfg.CompletionModel)
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.CompletionModel), nil

	case "lorem":
		logger.Info("completion provider ready", "name", "lorem")
		return NewLibraryProvider(lorem.NewProvider(), "lorem-fast"), nil

	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.CompletionProvider)
	}
}
