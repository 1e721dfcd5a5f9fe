package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

// practice plans topics with question counts, then writes each topic's
// questions so that numbering runs on across topics.
type practice struct{ e *engine }

// NewPractice returns the practice questions generator.
func NewPractice(p llm.Provider, logger *slog.Logger) *Generator {
	e := newEngine(p, logger)
	return &Generator{noteType: models.NotePractice, engine: e, strategy: practice{e: e}}
}

func (p practice) body(ctx context.Context, content string, in Input) (string, error) {
	title := in.promptTitle()

	plan, err := p.e.call(ctx, practicePlanSystemPrompt(in), practicePlanUserPrompt(content, title, in.URL), planTokens)
	if err != nil {
		return "", fmt.Errorf("plan: %w", err)
	}

	topics := parsePlan(plan)
	if len(topics) == 0 {
		p.e.logger.Debug("quiz plan has no topics, using single pass")
		return p.e.call(ctx, practiceSystemPrompt(in), practiceUserPrompt(content, title, in.URL), p.e.llm.MaxOutputTokens())
	}

	fitted := p.e.fitContent(content, plan, practiceSectionSystemPrompt(in))
	sections := make([]string, 0, len(topics))
	next := 1
	for i, t := range topics {
		p.e.logger.Debug("writing practice topic",
			slog.Int("topic", i+1),
			slog.Int("of", len(topics)),
			slog.String("name", t.name),
			slog.Int("first_question", next),
		)
		text, err := p.e.call(ctx, practiceSectionSystemPrompt(in), practiceSectionUserPrompt(fitted, title, in.URL, t, next), p.e.llm.MaxOutputTokens())
		if err != nil {
			return "", fmt.Errorf("topic %q: %w", t.name, err)
		}
		sections = append(sections, text)
		next += t.count
	}
	return strings.Join(sections, "\n\n"), nil
}
