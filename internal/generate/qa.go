package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

// qa plans topics first, then writes the pairs for each topic.
type qa struct{ e *engine }

// NewQA returns the Q&A generator.
func NewQA(p llm.Provider, logger *slog.Logger) *Generator {
	e := newEngine(p, logger)
	return &Generator{noteType: models.NoteQA, engine: e, strategy: qa{e: e}}
}

func (q qa) body(ctx context.Context, content string, in Input) (string, error) {
	title := in.promptTitle()

	plan, err := q.e.call(ctx, qaPlanSystemPrompt(in), qaPlanUserPrompt(content, title, in.URL), planTokens)
	if err != nil {
		return "", fmt.Errorf("plan: %w", err)
	}

	topics := parsePlan(plan)
	if len(topics) == 0 {
		q.e.logger.Debug("topic plan has no topics, using single pass")
		return q.e.call(ctx, qaSystemPrompt(in), qaUserPrompt(content, title, in.URL), q.e.llm.MaxOutputTokens())
	}

	fitted := q.e.fitContent(content, plan, qaSectionSystemPrompt(in))
	sections := make([]string, 0, len(topics))
	for i, t := range topics {
		q.e.logger.Debug("writing Q&A topic",
			slog.Int("topic", i+1),
			slog.Int("of", len(topics)),
			slog.String("name", t.name),
		)
		text, err := q.e.call(ctx, qaSectionSystemPrompt(in), qaSectionUserPrompt(fitted, title, in.URL, t), q.e.llm.MaxOutputTokens())
		if err != nil {
			return "", fmt.Errorf("topic %q: %w", t.name, err)
		}
		sections = append(sections, text)
	}
	return strings.Join(sections, "\n\n"), nil
}
