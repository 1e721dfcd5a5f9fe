// Package llm provides completion clients for hosted language-model APIs.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/starford/web2vault/internal/retry"
)

// Provider names accepted by New.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

const defaultHTTPTimeout = 5 * time.Minute

// Request is a single system + user prompt completion.
type Request struct {
	System string
	User   string
	// MaxTokens caps the response length. Zero means the provider default;
	// values above the provider's limit are clamped.
	MaxTokens int
}

// Provider generates text completions.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
	// MaxInputTokens is the usable context window for prompts.
	MaxInputTokens() int
	// MaxOutputTokens is the largest response the model may produce.
	MaxOutputTokens() int
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider string
	Status   int
	Type     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Message)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return retry.RetryableStatus(e.Status)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func clampTokens(requested, limit int) int {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
