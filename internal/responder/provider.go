package responder

import (
	"fmt"

	"github.com/mozawave/market-watch/internal/config"
)

// FromConfig selects the generator named by RESPONDER_PROVIDER
func FromConfig(cfg *config.Config) (Generator, error) {
	switch cfg.ResponderProvider {
	case "", "template":
		return NewTemplate(), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY")
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	return nil, fmt.Errorf("unknown responder provider %q", cfg.ResponderProvider)
}
