package llm

import (
	"fmt"
	"log/slog"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/retry"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	AnthropicURL    string
	OpenAIAPIKey    string
	OpenAIURL       string
	MaxInputTokens  int
}

// New creates the configured provider wrapped with retries.
func New(s Settings, policy retry.Policy, logger *slog.Logger) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch s.Provider {
	case ProviderClaude, "anthropic":
		p, err = NewAnthropic(s.AnthropicAPIKey, s.Model, s.AnthropicURL, s.MaxInputTokens)
	case ProviderOpenAI:
		p, err = NewOpenAI(s.OpenAIAPIKey, s.Model, s.OpenAIURL, s.MaxInputTokens)
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider %q", apperr.ErrConfig, s.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfig, err)
	}
	return WithRetry(p, policy, logger), nil
}
