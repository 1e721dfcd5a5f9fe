package generate

import (
	"context"
	"log/slog"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

// summary is a single call over the content.
type summary struct{ e *engine }

// NewSummary returns the summary generator.
func NewSummary(p llm.Provider, logger *slog.Logger) *Generator {
	e := newEngine(p, logger)
	return &Generator{noteType: models.NoteSummary, engine: e, strategy: summary{e: e}}
}

func (s summary) body(ctx context.Context, content string, in Input) (string, error) {
	return s.e.call(ctx,
		summarySystemPrompt(in),
		summaryUserPrompt(content, in.promptTitle(), in.URL),
		s.e.llm.MaxOutputTokens(),
	)
}

func newEngine(p llm.Provider, logger *slog.Logger) *engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &engine{llm: p, logger: logger}
}
