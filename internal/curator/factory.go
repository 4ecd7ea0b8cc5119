package curator

import (
	"fmt"

	"github.com/Foundation42/entrained.ai-engram/internal/config"
)

// New builds the configured curator provider (spec §4.3, SPEC_FULL §1.2).
// Supported providers: "anthropic", "fake". An empty provider string
// defaults to "fake" so the engine runs fully offline out of the box.
func New(cfg config.ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}), nil
	case "", "fake":
		return NewFake(), nil
	default:
		return nil, fmt.Errorf("curator: unknown provider %q", cfg.Provider)
	}
}
