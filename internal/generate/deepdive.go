package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

// deepDive outlines the content, then expands each ## outline section with
// its own call. Without a usable outline it falls back to one call.
type deepDive struct{ e *engine }

// NewDeepDive returns the deep dive generator.
func NewDeepDive(p llm.Provider, logger *slog.Logger) *Generator {
	e := newEngine(p, logger)
	return &Generator{noteType: models.NoteDeepDive, engine: e, strategy: deepDive{e: e}}
}

type outlineSection struct {
	heading string
	points  string
}

func (d deepDive) body(ctx context.Context, content string, in Input) (string, error) {
	title := in.promptTitle()

	outline, err := d.e.call(ctx, outlineSystemPrompt(in), outlineUserPrompt(content, title, in.URL), outlineTokens)
	if err != nil {
		return "", fmt.Errorf("outline: %w", err)
	}

	sections := parseOutline(outline)
	if len(sections) == 0 {
		d.e.logger.Debug("outline has no sections, using single pass")
		return d.e.call(ctx, deepDiveSystemPrompt(in), deepDiveUserPrompt(content, title, in.URL), d.e.llm.MaxOutputTokens())
	}

	fitted := d.e.fitContent(content, outline, expandSystemPrompt(in))
	expanded := make([]string, 0, len(sections))
	for i, s := range sections {
		d.e.logger.Debug("expanding section",
			slog.Int("section", i+1),
			slog.Int("of", len(sections)),
			slog.String("heading", s.heading),
		)
		text, err := d.e.call(ctx, expandSystemPrompt(in), expandUserPrompt(fitted, title, in.URL, s, outline), d.e.llm.MaxOutputTokens())
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", s.heading, err)
		}
		expanded = append(expanded, text)
	}
	return strings.Join(expanded, "\n\n"), nil
}

// parseOutline splits an outline into its ## sections. Every non-blank line
// under a section heading belongs to that section's points.
func parseOutline(outline string) []outlineSection {
	var (
		out    []outlineSection
		cur    *outlineSection
		points []string
	)
	flush := func() {
		if cur != nil {
			cur.points = strings.Join(points, "\n")
			out = append(out, *cur)
		}
	}
	for _, line := range strings.Split(outline, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "## ") {
			flush()
			cur = &outlineSection{heading: t}
			points = nil
			continue
		}
		if cur != nil && t != "" {
			points = append(points, line)
		}
	}
	flush()
	return out
}
