// Package generate turns scraped pages into study notes by running prompt
// strategies against a language model. Content that spans several chunks is
// processed per chunk and the partial results are merged by a reduce call.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/web2vault/internal/llm"
	"github.com/starford/web2vault/internal/models"
)

const (
	// reservedTokens is subtracted from the context window for the system
	// prompt and instructions around the source content.
	reservedTokens = 10000
	// minContentTokens is the smallest content budget fitContent allows.
	minContentTokens = 10000
	outlineTokens    = 4096
	planTokens       = 3072

	partSeparator = "\n\n---\n\n"
	truncatedNote = "\n\n[Content truncated to fit context window]"
)

// Input is everything a generator needs about one page.
type Input struct {
	// Name is the display name used in note titles (output name or page title).
	Name string
	// SourceTitle is the scraped page title used in prompts.
	SourceTitle string
	URL         string
	Markdown    string
	// Chunks is the chunked markdown. With more than one chunk generators
	// map over the chunks and reduce the results.
	Chunks []models.Chunk
	// Language is the detected language name, e.g. "German". Empty if unknown.
	Language string
	// VaultContext lists existing vault notes for cross-linking.
	VaultContext string
}

func (in Input) promptTitle() string {
	if in.SourceTitle != "" {
		return in.SourceTitle
	}
	return in.Name
}

// strategy produces a note body from content that fits one context window.
type strategy interface {
	body(ctx context.Context, content string, in Input) (string, error)
}

// Generator produces one type of note.
type Generator struct {
	noteType models.NoteType
	engine   *engine
	strategy strategy
}

// Type returns the note type the generator produces.
func (g *Generator) Type() models.NoteType {
	return g.noteType
}

// Generate produces the note for in. LLM failures are returned wrapped; the
// caller decides whether sibling generators continue.
func (g *Generator) Generate(ctx context.Context, in Input) (models.GeneratedNote, error) {
	var (
		body string
		err  error
	)
	if len(in.Chunks) > 1 {
		body, err = g.fromChunks(ctx, in)
	} else {
		body, err = g.strategy.body(ctx, in.Markdown, in)
	}
	if err != nil {
		return models.GeneratedNote{}, fmt.Errorf("generate: %s: %w", g.noteType, err)
	}

	return models.GeneratedNote{
		Type:     g.noteType,
		FileName: g.noteType.FileName(),
		Title:    NoteTitle(in.Name, g.noteType),
		Body:     Clean(body, in.Name, g.noteType),
		Tags:     DefaultTags(g.noteType),
	}, nil
}

func (g *Generator) fromChunks(ctx context.Context, in Input) (string, error) {
	g.engine.logger.Debug("content split into chunks",
		slog.String("type", string(g.noteType)),
		slog.Int("chunks", len(in.Chunks)),
	)
	parts := make([]string, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		g.engine.logger.Debug("processing chunk",
			slog.String("type", string(g.noteType)),
			slog.Int("chunk", i+1),
			slog.Int("of", len(in.Chunks)),
		)
		part, err := g.strategy.body(ctx, c.Text, in)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i+1, err)
		}
		parts = append(parts, part)
	}
	return g.engine.reduce(ctx, parts, in)
}

// NoteTitle returns "<name> - <type label>".
func NoteTitle(name string, t models.NoteType) string {
	return name + " - " + t.Label()
}

// DefaultTags are the fixed tags every note of type t carries.
func DefaultTags(t models.NoteType) []string {
	return []string{"web2vault", string(t)}
}

// engine holds what every strategy needs to talk to the model.
type engine struct {
	llm    llm.Provider
	logger *slog.Logger
}

func (e *engine) call(ctx context.Context, system, user string, maxTokens int) (string, error) {
	e.logger.Debug("llm call",
		slog.String("model", e.llm.Model()),
		slog.Int("prompt_tokens_est", estimateTokens(system)+estimateTokens(user)),
	)
	return e.llm.Complete(ctx, llm.Request{System: system, User: user, MaxTokens: maxTokens})
}

// reduce merges partial results into one document: a single synthesis call
// when everything fits, otherwise pairwise rounds until one result remains.
func (e *engine) reduce(ctx context.Context, parts []string, in Input) (string, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}
	system := reduceSystemPrompt(in)
	title := in.promptTitle()

	combined := strings.Join(parts, partSeparator)
	if estimateTokens(combined) <= e.llm.MaxInputTokens()-reservedTokens {
		e.logger.Debug("merging partial results", slog.Int("parts", len(parts)))
		return e.call(ctx, system, reduceUserPrompt(title, combined), e.llm.MaxOutputTokens())
	}

	e.logger.Debug("merging partial results in pairs", slog.Int("parts", len(parts)))
	for len(parts) > 1 {
		merged := make([]string, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 == len(parts) {
				merged = append(merged, parts[i])
				continue
			}
			pair := parts[i] + partSeparator + parts[i+1]
			out, err := e.call(ctx, system, reduceUserPrompt(title, pair), e.llm.MaxOutputTokens())
			if err != nil {
				return "", fmt.Errorf("reduce: %w", err)
			}
			merged = append(merged, out)
		}
		parts = merged
	}
	return parts[0], nil
}

// fitContent truncates content so that it plus the other prompt parts fit the
// context window, cutting at a paragraph boundary when one is close.
func (e *engine) fitContent(content string, others ...string) string {
	otherTokens := 0
	for _, o := range others {
		otherTokens += estimateTokens(o)
	}
	available := e.llm.MaxInputTokens() - reservedTokens - otherTokens
	if available <= 0 {
		available = minContentTokens
	}
	if estimateTokens(content) <= available {
		return content
	}

	maxChars := available * 4
	runes := []rune(content)
	if maxChars > len(runes) {
		maxChars = len(runes)
	}
	truncated := string(runes[:maxChars])
	if i := strings.LastIndex(truncated, "\n\n"); i > len(truncated)/2 {
		truncated = truncated[:i]
	}
	return truncated + truncatedNote
}

// estimateTokens approximates tokens as four characters each.
func estimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}
