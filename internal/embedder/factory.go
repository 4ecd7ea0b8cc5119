package embedder

import (
	"fmt"

	"github.com/Foundation42/entrained.ai-engram/internal/config"
)

// New builds the configured embedder provider (spec §4.1, SPEC_FULL §1.2).
// Supported providers: "ollama", "openai", "fake". An empty provider string
// defaults to "fake" so the engine runs fully offline out of the box.
func New(cfg config.ProviderConfig, dimension int) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			Dimension: dimension,
		}), nil
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: dimension,
		}), nil
	case "fake", "":
		return NewFake(dimension), nil
	default:
		return nil, fmt.Errorf("embedder: unsupported provider %q", cfg.Provider)
	}
}
