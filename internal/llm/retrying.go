package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/web2vault/internal/apperr"
	"github.com/starford/web2vault/internal/retry"
)

// Retrying decorates a Provider with bounded retries. Transport errors and
// retryable API statuses are repeated; other API errors fail at once. Every
// returned error wraps apperr.ErrLLM.
type Retrying struct {
	Provider
	policy retry.Policy
	logger *slog.Logger
}

// WithRetry wraps p with the given retry policy.
func WithRetry(p Provider, policy retry.Policy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{Provider: p, policy: policy, logger: logger}
}

// Complete calls the wrapped provider until it succeeds or retries run out.
func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	pol := r.policy
	pol.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("llm call failed, retrying",
			slog.String("provider", r.Name()),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}
	text, err := retry.Do(ctx, pol, func(ctx context.Context) (string, error) {
		text, err := r.Provider.Complete(ctx, req)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return "", retry.Permanent(err)
		}
		return text, err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrLLM, err)
	}
	return text, nil
}
